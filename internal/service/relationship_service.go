package service

import (
	"fmt"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/samber/lo"
)

// RelationshipService owns the friend graph and block lists. Every private
// interaction funnels through CanInteract.
type RelationshipService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRequestRepository
	sink       EventSink
}

// NewRelationshipService creates a new RelationshipService
func NewRelationshipService(userRepo repository.UserRepository, friendRepo repository.FriendRequestRepository, sink EventSink) *RelationshipService {
	if sink == nil {
		sink = nopSink{}
	}
	return &RelationshipService{userRepo: userRepo, friendRepo: friendRepo, sink: sink}
}

// CanInteract reports whether two users may exchange private messages:
// false when either side has blocked the other. The check is symmetric.
func (s *RelationshipService) CanInteract(aID, bID string) (bool, error) {
	a, err := s.userRepo.FindByID(aID)
	if err != nil {
		return false, err
	}
	b, err := s.userRepo.FindByID(bID)
	if err != nil {
		return false, err
	}
	return !a.HasBlocked(bID) && !b.HasBlocked(aID), nil
}

// BlockUser adds target to the actor's block list and tears down any pending
// or accepted friend edge between them
func (s *RelationshipService) BlockUser(actorID, targetID string) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot block yourself", common.ErrValidation)
	}
	if _, err := s.userRepo.FindByID(targetID); err != nil {
		return err
	}
	if _, err := s.userRepo.Update(actorID, func(u *domain.User) error {
		if !u.HasBlocked(targetID) {
			u.BlockList = append(u.BlockList, targetID)
		}
		return nil
	}); err != nil {
		return err
	}

	edge, err := s.friendRepo.FindBetween(actorID, targetID)
	if err != nil {
		return err
	}
	if edge != nil && edge.IsActive() {
		wasAccepted := edge.Status == domain.FriendStatusAccepted
		edge.Status = domain.FriendStatusRejected
		if err := s.friendRepo.Save(edge); err != nil {
			return err
		}
		if wasAccepted {
			s.sink.EmitToUsers([]string{targetID}, ws.EventFriendDeleted, map[string]string{"userId": actorID})
		}
	}
	return nil
}

// UnblockUser removes target from the actor's block list. The friend edge
// stays rejected; the pair must re-request.
func (s *RelationshipService) UnblockUser(actorID, targetID string) error {
	_, err := s.userRepo.Update(actorID, func(u *domain.User) error {
		u.BlockList = lo.Without(u.BlockList, targetID)
		return nil
	})
	return err
}

// BlockedUsers returns the actor's block list as user projections
func (s *RelationshipService) BlockedUsers(actorID string) ([]domain.UserRef, error) {
	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, err
	}
	return s.refsFor(actor.BlockList)
}

// AddFriend creates (or revives) the pending edge from actor to target and
// notifies the target
func (s *RelationshipService) AddFriend(actorID, targetID string) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot friend yourself", common.ErrValidation)
	}
	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return err
	}
	target, err := s.userRepo.FindByID(targetID)
	if err != nil {
		return err
	}
	if actor.HasBlocked(targetID) || target.HasBlocked(actorID) {
		return fmt.Errorf("%w: blocked", common.ErrPermission)
	}

	edge, err := s.friendRepo.FindBetween(actorID, targetID)
	if err != nil {
		return err
	}
	switch {
	case edge == nil:
		if err := s.friendRepo.Create(&domain.FriendRequest{
			FromID: actorID,
			ToID:   targetID,
			Status: domain.FriendStatusPending,
		}); err != nil {
			return err
		}
	case edge.Status == domain.FriendStatusAccepted:
		return fmt.Errorf("%w: already friends", common.ErrValidation)
	case edge.Status == domain.FriendStatusPending:
		return fmt.Errorf("%w: request already pending", common.ErrValidation)
	default:
		// rejected edge revives in place with the new direction
		edge.FromID = actorID
		edge.ToID = targetID
		edge.Status = domain.FriendStatusPending
		if err := s.friendRepo.Save(edge); err != nil {
			return err
		}
	}

	s.sink.EmitToUsers([]string{targetID}, ws.EventNewFriendRequest, map[string]interface{}{"user": actor.ToRef()})
	return nil
}

// RespondFriendRequest accepts or rejects the pending request fromID sent to
// the actor
func (s *RelationshipService) RespondFriendRequest(actorID, fromID string, accept bool) error {
	edge, err := s.friendRepo.FindBetween(actorID, fromID)
	if err != nil {
		return err
	}
	if edge == nil || edge.Status != domain.FriendStatusPending || edge.ToID != actorID {
		return fmt.Errorf("%w: no pending request", common.ErrNotFound)
	}

	if accept {
		edge.Status = domain.FriendStatusAccepted
	} else {
		edge.Status = domain.FriendStatusRejected
	}
	if err := s.friendRepo.Save(edge); err != nil {
		return err
	}

	if accept {
		actor, err := s.userRepo.FindByID(actorID)
		if err != nil {
			return err
		}
		s.sink.EmitToUsers([]string{fromID}, ws.EventFriendRequestAccepted, map[string]interface{}{"user": actor.ToRef()})
	}
	return nil
}

// DeleteFriend dissolves an accepted friendship and notifies the other side
func (s *RelationshipService) DeleteFriend(actorID, targetID string) error {
	edge, err := s.friendRepo.FindBetween(actorID, targetID)
	if err != nil {
		return err
	}
	if edge == nil || edge.Status != domain.FriendStatusAccepted {
		return fmt.Errorf("%w: not friends", common.ErrNotFound)
	}
	edge.Status = domain.FriendStatusRejected
	if err := s.friendRepo.Save(edge); err != nil {
		return err
	}
	s.sink.EmitToUsers([]string{targetID}, ws.EventFriendDeleted, map[string]string{"userId": actorID})
	return nil
}

// FriendIDs returns the ids of everyone the user has an accepted edge with
func (s *RelationshipService) FriendIDs(userID string) ([]string, error) {
	edges, err := s.friendRepo.FindAccepted(userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(edges, func(e *domain.FriendRequest, _ int) string {
		return e.OtherSide(userID)
	}), nil
}

// ListFriends returns the user's friends as user projections
func (s *RelationshipService) ListFriends(userID string) ([]domain.UserRef, error) {
	ids, err := s.FriendIDs(userID)
	if err != nil {
		return nil, err
	}
	return s.refsFor(ids)
}

// ListPendingRequests returns the senders of pending requests addressed to
// the user
func (s *RelationshipService) ListPendingRequests(userID string) ([]domain.UserRef, error) {
	edges, err := s.friendRepo.FindPendingTo(userID)
	if err != nil {
		return nil, err
	}
	return s.refsFor(lo.Map(edges, func(e *domain.FriendRequest, _ int) string {
		return e.FromID
	}))
}

func (s *RelationshipService) refsFor(ids []string) ([]domain.UserRef, error) {
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u *domain.User, _ int) domain.UserRef {
		return u.ToRef()
	}), nil
}
