package repository

import (
	"errors"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository user data access interface
type UserRepository interface {
	FindByID(id string) (*domain.User, error)
	FindByIDOrEmail(idOrEmail string) (*domain.User, error)
	FindByIDs(ids []string) ([]*domain.User, error)
	Create(user *domain.User) error
	Update(id string, mutate func(*domain.User) error) (*domain.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID finds a user by ID
func (r *userRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIDOrEmail finds a user by ID or email address
func (r *userRepository) FindByIDOrEmail(idOrEmail string) (*domain.User, error) {
	var user domain.User
	if err := r.db.Where("id = ? OR email = ?", idOrEmail, idOrEmail).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users matching ids; missing ids are skipped
func (r *userRepository) FindByIDs(ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	var users []*domain.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// Create persists a new user
func (r *userRepository) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

// Update applies mutate to the user under a row lock and saves the result.
// Used for block-list changes so concurrent blocks don't lose writes.
func (r *userRepository) Update(id string, mutate func(*domain.User) error) (*domain.User, error) {
	var user domain.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}
		if err := mutate(&user); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
