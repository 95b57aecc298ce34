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

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// MessageInput is a message as submitted by a client
type MessageInput struct {
	Text           string
	ReplyMessageID *string
	Media          *MediaUpload
}

// MessagePage is one page of history, newest first
type MessagePage struct {
	Messages []*domain.MessageResponse `json:"messages"`
	HasMore  bool                      `json:"hasMore"`
}

// MessageService owns the message lifecycle: send, react, seen, delete,
// forward and history paging
type MessageService struct {
	msgRepo       repository.MessageRepository
	convRepo      repository.ConversationRepository
	userRepo      repository.UserRepository
	relationships *RelationshipService
	conversations *ConversationService
	media         *MediaService
	sink          EventSink
}

// NewMessageService creates a new MessageService
func NewMessageService(msgRepo repository.MessageRepository, convRepo repository.ConversationRepository,
	userRepo repository.UserRepository, relationships *RelationshipService,
	conversations *ConversationService, media *MediaService, sink EventSink) *MessageService {
	if sink == nil {
		sink = nopSink{}
	}
	return &MessageService{
		msgRepo:       msgRepo,
		convRepo:      convRepo,
		userRepo:      userRepo,
		relationships: relationships,
		conversations: conversations,
		media:         media,
		sink:          sink,
	}
}

// SendPrivate delivers a message to another user, resolving the private
// conversation on the way. Blocked pairs cannot send in either direction.
// Returns the stored message and the sender's view of the conversation it
// landed in.
func (s *MessageService) SendPrivate(ctx context.Context, fromID, toID string, input *MessageInput) (*domain.MessageResponse, *domain.ConversationResponse, error) {
	ok, err := s.relationships.CanInteract(fromID, toID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: messaging not allowed", common.ErrPermission)
	}

	conv, err := s.conversations.ResolvePrivate(fromID, toID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.createMessage(ctx, conv, fromID, toID, input)
	if err != nil {
		return nil, nil, err
	}

	resp := msg.ToResponse()
	s.sink.EmitToUsers([]string{toID, fromID}, ws.EventReceiveMessage, map[string]interface{}{
		"message":      resp,
		"conversation": conv.ToResponse("", msg),
	})
	// an explicit message supersedes any live typing indicator
	s.sink.EmitToUsers([]string{toID}, ws.EventTyping, typingPayload(conv.ID, fromID, false))
	return resp, conv.ToResponse(fromID, msg), nil
}

// SendGroup delivers a message to a group the sender may post in
func (s *MessageService) SendGroup(ctx context.Context, fromID, conversationID string, input *MessageInput) (*domain.MessageResponse, *domain.ConversationResponse, error) {
	conv, err := s.conversations.ResolveGroup(conversationID)
	if err != nil {
		return nil, nil, err
	}
	if !CanSendMessage(conv, fromID) {
		return nil, nil, fmt.Errorf("%w: posting not allowed", common.ErrPermission)
	}

	msg, err := s.createMessage(ctx, conv, fromID, "", input)
	if err != nil {
		return nil, nil, err
	}

	resp := msg.ToResponse()
	s.sink.EmitToRooms([]string{ws.ConversationRoom(conv.ID)}, ws.EventReceiveMessage, map[string]interface{}{
		"message":      resp,
		"conversation": conv.ToResponse("", msg),
	})
	return resp, conv.ToResponse(fromID, msg), nil
}

func (s *MessageService) createMessage(ctx context.Context, conv *domain.Conversation, fromID, toID string, input *MessageInput) (*domain.Message, error) {
	if input == nil || (input.Text == "" && input.Media == nil) {
		return nil, fmt.Errorf("%w: message needs text or media", common.ErrValidation)
	}
	if input.ReplyMessageID != nil {
		replied, err := s.msgRepo.FindByID(*input.ReplyMessageID)
		if err != nil {
			return nil, err
		}
		if replied.ConversationID != conv.ID {
			return nil, fmt.Errorf("%w: reply crosses conversations", common.ErrValidation)
		}
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		FromID:         fromID,
		ToID:           toID,
		Text:           input.Text,
		ReplyMessageID: input.ReplyMessageID,
	}
	// media is uploaded before the row exists so a failed upload aborts the
	// send with nothing persisted
	if input.Media != nil {
		stored, err := s.media.Store(ctx, input.Media, "message", fromID, msg.ID)
		if err != nil {
			return nil, err
		}
		msg.MediaURL = stored.URL
		msg.MediaType = stored.MediaType
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, err
	}

	if _, err := s.convRepo.Update(conv.ID, func(c *domain.Conversation) error {
		c.LastMessageID = &msg.ID
		return nil
	}); err != nil {
		return nil, err
	}
	return msg, nil
}

// React toggles the actor's reaction: same reaction removes it, a different
// one replaces it, at most one entry per user
func (s *MessageService) React(actorID, messageID, react string) (*domain.MessageResponse, error) {
	if !domain.ValidReactions[react] {
		return nil, fmt.Errorf("%w: unknown reaction %s", common.ErrValidation, react)
	}
	existing, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.convRepo.FindByID(existing.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, common.ErrPermission
	}

	msg, err := s.msgRepo.Update(messageID, func(m *domain.Message) error {
		switch i := m.ReactBy(actorID); {
		case i >= 0 && m.Reacts[i].React == react:
			m.Reacts = append(m.Reacts[:i], m.Reacts[i+1:]...)
		case i >= 0:
			m.Reacts[i].React = react
		default:
			m.Reacts = append(m.Reacts, domain.React{UserID: actorID, React: react})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := msg.ToResponse()
	payload := map[string]interface{}{
		"conversationId": conv.ID,
		"messageId":      msg.ID,
		"reacts":         resp.Reacts,
	}
	if conv.IsGroup() {
		s.sink.EmitToRooms([]string{ws.ConversationRoom(conv.ID)}, ws.EventMessageReaction, payload)
	} else {
		s.sink.EmitToUsers([]string{conv.OtherParticipant(actorID)}, ws.EventMessageReaction, payload)
	}
	return resp, nil
}

// SeeAll marks every unseen message addressed to the actor in the
// conversation as seen, in one statement, and tells the other side unless
// the actor has read receipts disabled
func (s *MessageService) SeeAll(actorID, conversationID string) error {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(actorID) {
		return common.ErrPermission
	}
	return s.markSeen(conv, actorID)
}

// SeeAllWith marks the private conversation with toID as read, resolving the
// conversation lazily like the socket contract allows
func (s *MessageService) SeeAllWith(actorID, toID string) error {
	conv, err := s.conversations.ResolvePrivate(actorID, toID)
	if err != nil {
		return err
	}
	return s.markSeen(conv, actorID)
}

func (s *MessageService) markSeen(conv *domain.Conversation, actorID string) error {
	if !conv.IsGroup() {
		actor, err := s.userRepo.FindByID(actorID)
		if err != nil {
			return err
		}
		// read receipts off: the read state stays entirely on the actor's
		// side, nothing is marked and nothing is emitted
		if actor.Settings.Privacy.ReadReceipts == domain.ReadReceiptsDisable {
			return nil
		}
	}
	rows, err := s.msgRepo.MarkAllSeen(conv.ID, actorID)
	if err != nil {
		return err
	}
	if rows == 0 || conv.IsGroup() {
		return nil
	}
	s.sink.EmitToUsers([]string{conv.OtherParticipant(actorID)}, ws.EventMessagesSeen,
		map[string]string{"conversationId": conv.ID})
	return nil
}

// Delete removes a message the actor sent and recomputes the conversation's
// last message when it was the one deleted
func (s *MessageService) Delete(actorID, messageID string) error {
	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.FromID != actorID {
		return fmt.Errorf("%w: only the sender deletes a message", common.ErrPermission)
	}
	if err := s.msgRepo.Delete(messageID); err != nil {
		return err
	}

	_, err = s.convRepo.Update(msg.ConversationID, func(c *domain.Conversation) error {
		if c.LastMessageID == nil || *c.LastMessageID != messageID {
			return nil
		}
		latest, err := s.msgRepo.FindLatest(c.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			c.LastMessageID = nil
		} else {
			c.LastMessageID = &latest.ID
		}
		return nil
	})
	return err
}

// ListPage returns a page of history above the actor's watermark, newest
// first. The first page also marks pending messages as seen.
func (s *MessageService) ListPage(actorID, conversationID string, before *time.Time, limit int) (*MessagePage, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, common.ErrPermission
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, err := s.msgRepo.FindPage(conversationID, conv.WatermarkFor(actorID), before, limit)
	if err != nil {
		return nil, err
	}
	if before == nil {
		if err := s.markSeen(conv, actorID); err != nil {
			return nil, err
		}
	}

	responses := make([]*domain.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, m.ToResponse())
	}
	return &MessagePage{Messages: responses, HasMore: len(messages) == limit}, nil
}

// Forward copies a message the actor can see into another conversation as a
// fresh message. The actor must be able to post in the target: membership for
// a private chat plus the block gate, the posting switch for a group.
func (s *MessageService) Forward(ctx context.Context, actorID, messageID, targetConversationID string) (*domain.MessageResponse, error) {
	if targetConversationID == "" {
		return nil, fmt.Errorf("%w: target conversation required", common.ErrValidation)
	}
	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	source, err := s.convRepo.FindByID(msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if !source.HasParticipant(actorID) {
		return nil, common.ErrPermission
	}

	target, err := s.convRepo.FindByID(targetConversationID)
	if err != nil {
		return nil, err
	}
	var toID string
	if target.IsGroup() {
		if !CanSendMessage(target, actorID) {
			return nil, fmt.Errorf("%w: posting not allowed", common.ErrPermission)
		}
	} else {
		if !target.HasParticipant(actorID) {
			return nil, common.ErrPermission
		}
		toID = target.OtherParticipant(actorID)
		ok, err := s.relationships.CanInteract(actorID, toID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: messaging not allowed", common.ErrPermission)
		}
	}

	// the copy carries content only: no reply link, no reactions, unseen
	copied := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: target.ID,
		FromID:         actorID,
		ToID:           toID,
		Text:           msg.Text,
		MediaURL:       msg.MediaURL,
		MediaType:      msg.MediaType,
	}
	if err := s.msgRepo.Create(copied); err != nil {
		return nil, err
	}
	if _, err := s.convRepo.Update(target.ID, func(c *domain.Conversation) error {
		c.LastMessageID = &copied.ID
		return nil
	}); err != nil {
		return nil, err
	}

	resp := copied.ToResponse()
	payload := map[string]interface{}{
		"message":      resp,
		"conversation": target.ToResponse("", copied),
	}
	if target.IsGroup() {
		s.sink.EmitToRooms([]string{ws.ConversationRoom(target.ID)}, ws.EventReceiveMessage, payload)
	} else {
		s.sink.EmitToUsers([]string{toID, actorID}, ws.EventReceiveMessage, payload)
	}
	return resp, nil
}

// Typing relays a typing indicator to the conversation's other side. Private
// pairs pass the block gate first; a blocked user types into the void.
func (s *MessageService) Typing(actorID, conversationID string, typing bool) error {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(actorID) {
		return common.ErrPermission
	}
	if conv.IsGroup() {
		s.sink.EmitToRooms([]string{ws.ConversationRoom(conv.ID)}, ws.EventTyping, typingPayload(conv.ID, actorID, typing))
		return nil
	}
	return s.typingPrivate(actorID, conv, typing)
}

// TypingTo relays a typing indicator straight to another user, resolving the
// private conversation lazily
func (s *MessageService) TypingTo(actorID, toID string, typing bool) error {
	ok, err := s.relationships.CanInteract(actorID, toID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: messaging not allowed", common.ErrPermission)
	}
	conv, err := s.conversations.ResolvePrivate(actorID, toID)
	if err != nil {
		return err
	}
	s.sink.EmitToUsers([]string{toID}, ws.EventTyping, typingPayload(conv.ID, actorID, typing))
	return nil
}

func (s *MessageService) typingPrivate(actorID string, conv *domain.Conversation, typing bool) error {
	other := conv.OtherParticipant(actorID)
	ok, err := s.relationships.CanInteract(actorID, other)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: messaging not allowed", common.ErrPermission)
	}
	s.sink.EmitToUsers([]string{other}, ws.EventTyping, typingPayload(conv.ID, actorID, typing))
	return nil
}

func typingPayload(conversationID, fromID string, typing bool) map[string]interface{} {
	return map[string]interface{}{
		"conversationId": conversationID,
		"from":           fromID,
		"typing":         typing,
	}
}
