package repository

import (
	"errors"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusRepository status data access interface. All readers go through the
// active filter (expires_at > now AND NOT is_deleted); soft-deleted rows are
// kept.
type StatusRepository interface {
	Create(status *domain.Status) error
	FindByID(id string) (*domain.Status, error)
	FindActiveByUser(userID string, now time.Time) ([]*domain.Status, error)
	FindActiveByUsers(userIDs []string, now time.Time) ([]*domain.Status, error)
	Update(id string, mutate func(*domain.Status) error) (*domain.Status, error)
}

type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// Create persists a new status
func (r *statusRepository) Create(status *domain.Status) error {
	return r.db.Create(status).Error
}

// FindByID finds a status by ID, including inactive ones; callers decide
// whether the active filter applies
func (r *statusRepository) FindByID(id string) (*domain.Status, error) {
	var status domain.Status
	if err := r.db.Where("id = ?", id).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrStatusNotFound
		}
		return nil, err
	}
	return &status, nil
}

// FindActiveByUser returns the user's active statuses, oldest first
func (r *statusRepository) FindActiveByUser(userID string, now time.Time) ([]*domain.Status, error) {
	var statuses []*domain.Status
	err := r.active(now).Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&statuses).Error
	return statuses, err
}

// FindActiveByUsers returns the active statuses of multiple users, oldest first
func (r *statusRepository) FindActiveByUsers(userIDs []string, now time.Time) ([]*domain.Status, error) {
	if len(userIDs) == 0 {
		return []*domain.Status{}, nil
	}
	var statuses []*domain.Status
	err := r.active(now).Where("user_id IN ?", userIDs).
		Order("created_at ASC").
		Find(&statuses).Error
	return statuses, err
}

// Update applies mutate under a row lock (viewer appends, soft delete)
func (r *statusRepository) Update(id string, mutate func(*domain.Status) error) (*domain.Status, error) {
	var status domain.Status
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&status).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrStatusNotFound
			}
			return err
		}
		if err := mutate(&status); err != nil {
			return err
		}
		return tx.Save(&status).Error
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepository) active(now time.Time) *gorm.DB {
	return r.db.Where("expires_at > ? AND is_deleted = ?", now, false)
}
