package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/google/uuid"
)

// StatusInput is a status as submitted by its owner
type StatusInput struct {
	Content string
	Media   *MediaUpload
}

// FriendStatuses groups one friend's active statuses for the feed
type FriendStatuses struct {
	User     domain.UserRef                 `json:"user"`
	Statuses []*domain.FriendStatusResponse `json:"statuses"`
}

// StatusService owns ephemeral 24h broadcasts and their viewer lists
type StatusService struct {
	statusRepo    repository.StatusRepository
	userRepo      repository.UserRepository
	relationships *RelationshipService
	media         *MediaService
	sink          EventSink
	now           func() time.Time
}

// NewStatusService creates a new StatusService
func NewStatusService(statusRepo repository.StatusRepository, userRepo repository.UserRepository,
	relationships *RelationshipService, media *MediaService, sink EventSink) *StatusService {
	if sink == nil {
		sink = nopSink{}
	}
	return &StatusService{
		statusRepo:    statusRepo,
		userRepo:      userRepo,
		relationships: relationships,
		media:         media,
		sink:          sink,
		now:           time.Now,
	}
}

// Create publishes a status that expires after 24 hours and pushes it to
// every friend
func (s *StatusService) Create(ctx context.Context, ownerID string, input *StatusInput) (*domain.StatusResponse, error) {
	if input == nil || (input.Content == "" && input.Media == nil) {
		return nil, fmt.Errorf("%w: status needs content or media", common.ErrValidation)
	}

	status := &domain.Status{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Content:   input.Content,
		ExpiresAt: s.now().Add(domain.StatusTTL),
	}
	if input.Media != nil {
		stored, err := s.media.Store(ctx, input.Media, "status", ownerID, status.ID)
		if err != nil {
			return nil, err
		}
		status.MediaURL = stored.URL
		status.MediaType = stored.MediaType
	}
	if err := s.statusRepo.Create(status); err != nil {
		return nil, err
	}

	friendIDs, err := s.relationships.FriendIDs(ownerID)
	if err != nil {
		return nil, err
	}
	owner, err := s.userRepo.FindByID(ownerID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) > 0 {
		s.sink.EmitToUsers(friendIDs, ws.EventNewFriendStatus, map[string]interface{}{
			"user":   owner.ToRef(),
			"status": status.ToFriendResponse(""),
		})
	}
	return status.ToResponse(), nil
}

// OwnStatuses returns the owner's active statuses with viewer lists
func (s *StatusService) OwnStatuses(ownerID string) ([]*domain.StatusResponse, error) {
	statuses, err := s.statusRepo.FindActiveByUser(ownerID, s.now())
	if err != nil {
		return nil, err
	}
	responses := make([]*domain.StatusResponse, 0, len(statuses))
	for _, st := range statuses {
		responses = append(responses, st.ToResponse())
	}
	return responses, nil
}

// FriendFeed returns the active statuses of every friend, grouped per friend,
// without viewer lists
func (s *StatusService) FriendFeed(viewerID string) ([]*FriendStatuses, error) {
	friendIDs, err := s.relationships.FriendIDs(viewerID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return []*FriendStatuses{}, nil
	}

	statuses, err := s.statusRepo.FindActiveByUsers(friendIDs, s.now())
	if err != nil {
		return nil, err
	}
	friends, err := s.userRepo.FindByIDs(friendIDs)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*FriendStatuses, len(friends))
	feed := make([]*FriendStatuses, 0, len(friends))
	for _, f := range friends {
		entry := &FriendStatuses{User: f.ToRef(), Statuses: []*domain.FriendStatusResponse{}}
		byUser[f.ID] = entry
		feed = append(feed, entry)
	}
	for _, st := range statuses {
		if entry, ok := byUser[st.UserID]; ok {
			entry.Statuses = append(entry.Statuses, st.ToFriendResponse(viewerID))
		}
	}
	return feed, nil
}

// See records the viewer on an active status, once, and tells the owner.
// Owners don't count as viewers of their own statuses.
func (s *StatusService) See(viewerID, statusID string) error {
	status, err := s.statusRepo.FindByID(statusID)
	if err != nil {
		return err
	}
	if !status.IsActive(s.now()) {
		return common.ErrStatusNotFound
	}
	if status.UserID == viewerID {
		return nil
	}
	if status.SeenBy(viewerID) {
		return nil
	}

	updated, err := s.statusRepo.Update(statusID, func(st *domain.Status) error {
		if !st.SeenBy(viewerID) {
			st.Viewers = append(st.Viewers, viewerID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.sink.EmitToUsers([]string{updated.UserID}, ws.EventStatusSeen, map[string]string{
		"statusId": statusID,
		"userId":   viewerID,
	})
	return nil
}

// Delete soft-deletes the owner's status and retracts it from friends
func (s *StatusService) Delete(ownerID, statusID string) error {
	status, err := s.statusRepo.FindByID(statusID)
	if err != nil {
		return err
	}
	if status.UserID != ownerID {
		return common.ErrPermission
	}
	if _, err := s.statusRepo.Update(statusID, func(st *domain.Status) error {
		st.IsDeleted = true
		return nil
	}); err != nil {
		return err
	}

	friendIDs, err := s.relationships.FriendIDs(ownerID)
	if err != nil {
		return err
	}
	if len(friendIDs) > 0 {
		s.sink.EmitToUsers(friendIDs, ws.EventDeleteFriendStatus, map[string]string{
			"statusId": statusID,
			"userId":   ownerID,
		})
	}
	return nil
}
