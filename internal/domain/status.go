package domain

import (
	"time"

	"github.com/samber/lo"
)

// StatusTTL how long a status stays visible after creation
const StatusTTL = 24 * time.Hour

// Status an ephemeral broadcast with a 24h TTL. Deletion is a soft flag;
// every reader must apply the active filter (ExpiresAt > now AND !IsDeleted).
type Status struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:36;index" json:"userId"`
	Content   string    `gorm:"column:content;size:1000" json:"content,omitempty"`
	MediaURL  string    `gorm:"column:media_url;size:500" json:"mediaUrl,omitempty"`
	MediaType string    `gorm:"column:media_type;size:16" json:"mediaType"`
	Viewers   []string  `gorm:"column:viewers;serializer:json" json:"viewers,omitempty"`
	ExpiresAt time.Time `gorm:"column:expires_at;index" json:"expiresAt"`
	IsDeleted bool      `gorm:"column:is_deleted;default:false" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Status) TableName() string {
	return "statuses"
}

// IsActive reports whether the status is still visible
func (s *Status) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now) && !s.IsDeleted
}

// SeenBy reports whether viewer already saw the status
func (s *Status) SeenBy(viewer string) bool {
	return lo.Contains(s.Viewers, viewer)
}

// StatusResponse full projection, shown to the owner
type StatusResponse struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content,omitempty"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	MediaType string    `json:"mediaType"`
	Viewers   []string  `json:"viewers"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FriendStatusResponse reduced projection shown to friends; viewers stay
// private to the owner
type FriendStatusResponse struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content,omitempty"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	MediaType string    `json:"mediaType"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	IsSeen    bool      `json:"isSeen"`
}

// ToResponse converts a Status to the owner projection
func (s *Status) ToResponse() *StatusResponse {
	viewers := s.Viewers
	if viewers == nil {
		viewers = []string{}
	}
	return &StatusResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Content:   s.Content,
		MediaURL:  s.MediaURL,
		MediaType: s.MediaType,
		Viewers:   viewers,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToFriendResponse converts a Status to the friend projection for a viewer
func (s *Status) ToFriendResponse(viewer string) *FriendStatusResponse {
	return &FriendStatusResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Content:   s.Content,
		MediaURL:  s.MediaURL,
		MediaType: s.MediaType,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		IsSeen:    s.SeenBy(viewer),
	}
}
