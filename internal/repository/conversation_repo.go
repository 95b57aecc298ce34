package repository

import (
	"errors"
	"strings"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	Create(conv *domain.Conversation) error
	FindByID(id string) (*domain.Conversation, error)
	FindByParticipantKey(key string) (*domain.Conversation, error)
	FindByParticipant(userID string) ([]*domain.Conversation, error)
	FindByLinkToken(token string) (*domain.Conversation, error)
	// Update applies mutate under a row lock and saves the result
	Update(id string, mutate func(*domain.Conversation) error) (*domain.Conversation, error)
	Delete(id string) error
}

// IsDuplicateKey reports whether err is a unique-constraint violation
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// MySQL driver surfaces error 1062 before GORM translation in some paths
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create persists a new conversation. Private conversations rely on the
// unique participant_key index; callers handle IsDuplicateKey.
func (r *conversationRepository) Create(conv *domain.Conversation) error {
	return r.db.Create(conv).Error
}

// FindByID finds a conversation by ID
func (r *conversationRepository) FindByID(id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindByParticipantKey finds a private conversation by its canonical key
func (r *conversationRepository) FindByParticipantKey(key string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.Where("participant_key = ?", key).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindByLinkToken finds a group by its invite token. The token lives inside
// the group_settings JSON blob; the LIKE match narrows candidates and the
// caller re-verifies the exact token.
func (r *conversationRepository) FindByLinkToken(token string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.Where("type = ? AND group_settings LIKE ?",
		domain.ConversationGroup, `%"linkToken":"`+token+`"%`).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindByParticipant returns all conversations containing userID,
// most recently updated first. Participants are stored as a JSON array;
// the LIKE match on the quoted id narrows candidates and the exact set
// membership is re-checked in memory.
func (r *conversationRepository) FindByParticipant(userID string) ([]*domain.Conversation, error) {
	var candidates []*domain.Conversation
	err := r.db.Where("participants LIKE ?", `%"`+userID+`"%`).
		Order("updated_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	convs := make([]*domain.Conversation, 0, len(candidates))
	for _, c := range candidates {
		if c.HasParticipant(userID) {
			convs = append(convs, c)
		}
	}
	return convs, nil
}

// Update applies mutate to the conversation under a row lock and saves the
// result. All lastMessage, participant and settings mutations go through
// here so concurrent writers serialize per conversation.
func (r *conversationRepository) Update(id string, mutate func(*domain.Conversation) error) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&conv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrConversationNotFound
			}
			return err
		}
		if err := mutate(&conv); err != nil {
			return err
		}
		return tx.Save(&conv).Error
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Delete removes a conversation row (groups only; private conversations are
// never deleted, only watermark-cleared)
func (r *conversationRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&domain.Conversation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrConversationNotFound
	}
	return nil
}
