package repository

import (
	"errors"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository message data access interface
type MessageRepository interface {
	Create(msg *domain.Message) error
	FindByID(id string) (*domain.Message, error)
	// FindPage returns up to limit messages newer than after (exclusive) and,
	// when before is set, older than before (exclusive), newest first
	FindPage(conversationID string, after time.Time, before *time.Time, limit int) ([]*domain.Message, error)
	// FindLatest returns the newest message in the conversation, or nil
	FindLatest(conversationID string) (*domain.Message, error)
	// MarkAllSeen bulk-marks unseen messages addressed to userID as seen
	MarkAllSeen(conversationID, userID string) (int64, error)
	// Update applies mutate under a row lock (reaction list changes)
	Update(id string, mutate func(*domain.Message) error) (*domain.Message, error)
	Delete(id string) error
	DeleteByConversation(conversationID string) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create persists a new message
func (r *messageRepository) Create(msg *domain.Message) error {
	return r.db.Create(msg).Error
}

// FindByID finds a message by ID
func (r *messageRepository) FindByID(id string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// FindPage returns a cursor page of messages, newest first
func (r *messageRepository) FindPage(conversationID string, after time.Time, before *time.Time, limit int) ([]*domain.Message, error) {
	q := r.db.Where("conversation_id = ? AND created_at > ?", conversationID, after)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	var messages []*domain.Message
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// FindLatest returns the newest surviving message in the conversation
func (r *messageRepository) FindLatest(conversationID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// MarkAllSeen bulk-marks unseen messages addressed to userID. This is the
// only bulk mutation in the model; a single UPDATE keeps it atomic per
// conversation.
func (r *messageRepository) MarkAllSeen(conversationID, userID string) (int64, error) {
	result := r.db.Model(&domain.Message{}).
		Where("conversation_id = ? AND to_id = ? AND seen = ?", conversationID, userID, false).
		Update("seen", true)
	return result.RowsAffected, result.Error
}

// Update applies mutate to the message under a row lock and saves the result
func (r *messageRepository) Update(id string, mutate func(*domain.Message) error) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&msg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrMessageNotFound
			}
			return err
		}
		if err := mutate(&msg); err != nil {
			return err
		}
		return tx.Save(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Delete hard-deletes a message
func (r *messageRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&domain.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrMessageNotFound
	}
	return nil
}

// DeleteByConversation removes all messages of a conversation (group deletion)
func (r *messageRepository) DeleteByConversation(conversationID string) error {
	return r.db.Where("conversation_id = ?", conversationID).Delete(&domain.Message{}).Error
}
