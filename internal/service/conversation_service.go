package service

import (
	"fmt"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/google/uuid"
)

// ConversationService resolves conversations and owns per-user watermarks
type ConversationService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

// NewConversationService creates a new ConversationService
func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *ConversationService {
	return &ConversationService{convRepo: convRepo, msgRepo: msgRepo}
}

// ResolvePrivate returns the private conversation between the pair, creating
// it when absent. Symmetric: both orderings map to the same canonical key.
// A concurrent create from the other side loses the unique-index race and
// re-reads the winner's row.
func (s *ConversationService) ResolvePrivate(aID, bID string) (*domain.Conversation, error) {
	if aID == bID {
		return nil, fmt.Errorf("%w: cannot converse with yourself", common.ErrValidation)
	}
	key := domain.PrivateParticipantKey(aID, bID)

	conv, err := s.convRepo.FindByParticipantKey(key)
	if err == nil {
		return conv, nil
	}
	if err != common.ErrConversationNotFound {
		return nil, err
	}

	conv = &domain.Conversation{
		ID:             uuid.NewString(),
		Type:           domain.ConversationPrivate,
		ParticipantKey: &key,
		Participants:   []string{aID, bID},
	}
	if err := s.convRepo.Create(conv); err != nil {
		if repository.IsDuplicateKey(err) {
			return s.convRepo.FindByParticipantKey(key)
		}
		return nil, err
	}
	return conv, nil
}

// ResolveGroup returns the group conversation, or not-found for a private one
func (s *ConversationService) ResolveGroup(conversationID string) (*domain.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup() {
		return nil, common.ErrConversationNotFound
	}
	return conv, nil
}

// List returns the viewer's conversations, most recently active first.
// Conversations with no message visible above the viewer's watermark are
// left out entirely, so a cleared chat disappears from the list until new
// activity arrives.
func (s *ConversationService) List(viewerID string) ([]*domain.ConversationResponse, error) {
	convs, err := s.convRepo.FindByParticipant(viewerID)
	if err != nil {
		return nil, err
	}
	responses := make([]*domain.ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		last, err := s.visibleLastMessage(conv, viewerID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			continue
		}
		responses = append(responses, conv.ToResponse(viewerID, last))
	}
	return responses, nil
}

// Get returns one conversation projected for the viewer
func (s *ConversationService) Get(viewerID, conversationID string) (*domain.ConversationResponse, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, common.ErrPermission
	}
	last, err := s.visibleLastMessage(conv, viewerID)
	if err != nil {
		return nil, err
	}
	return conv.ToResponse(viewerID, last), nil
}

// Clear moves the viewer's watermark to now, hiding the history from this
// viewer only. Nothing is deleted and the other side is unaffected.
func (s *ConversationService) Clear(viewerID, conversationID string) error {
	_, err := s.convRepo.Update(conversationID, func(conv *domain.Conversation) error {
		if !conv.HasParticipant(viewerID) {
			return common.ErrPermission
		}
		conv.SetClearedAt(viewerID, time.Now())
		return nil
	})
	return err
}

func (s *ConversationService) visibleLastMessage(conv *domain.Conversation, viewerID string) (*domain.Message, error) {
	if conv.LastMessageID == nil {
		return nil, nil
	}
	msg, err := s.msgRepo.FindByID(*conv.LastMessageID)
	if err != nil {
		if err == common.ErrMessageNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !msg.CreatedAt.After(conv.WatermarkFor(viewerID)) {
		return nil, nil
	}
	return msg, nil
}
