package repository

import (
	"errors"

	"github.com/chatly/chatly-backend/internal/domain"
	"gorm.io/gorm"
)

// FriendRequestRepository relationship edge data access interface
type FriendRequestRepository interface {
	Create(fr *domain.FriendRequest) error
	Save(fr *domain.FriendRequest) error
	// FindBetween returns the single edge for the unordered pair, or nil
	FindBetween(a, b string) (*domain.FriendRequest, error)
	FindAccepted(userID string) ([]*domain.FriendRequest, error)
	FindPendingTo(userID string) ([]*domain.FriendRequest, error)
}

type friendRequestRepository struct {
	db *gorm.DB
}

// NewFriendRequestRepository creates a new FriendRequestRepository
func NewFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &friendRequestRepository{db: db}
}

// Create persists a new edge
func (r *friendRequestRepository) Create(fr *domain.FriendRequest) error {
	return r.db.Create(fr).Error
}

// Save updates an existing edge
func (r *friendRequestRepository) Save(fr *domain.FriendRequest) error {
	return r.db.Save(fr).Error
}

// FindBetween returns the edge between two users regardless of direction
func (r *friendRequestRepository) FindBetween(a, b string) (*domain.FriendRequest, error) {
	var fr domain.FriendRequest
	err := r.db.Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", a, b, b, a).
		First(&fr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fr, nil
}

// FindAccepted returns all accepted edges touching userID
func (r *friendRequestRepository) FindAccepted(userID string) ([]*domain.FriendRequest, error) {
	var edges []*domain.FriendRequest
	err := r.db.Where("(from_id = ? OR to_id = ?) AND status = ?",
		userID, userID, domain.FriendStatusAccepted).
		Find(&edges).Error
	return edges, err
}

// FindPendingTo returns pending requests addressed to userID
func (r *friendRequestRepository) FindPendingTo(userID string) ([]*domain.FriendRequest, error) {
	var edges []*domain.FriendRequest
	err := r.db.Where("to_id = ? AND status = ?", userID, domain.FriendStatusPending).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}
