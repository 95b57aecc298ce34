package domain

import "time"

// Friend request states
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusRejected = "rejected"
)

// FriendRequest is a directed relationship edge, unique per unordered user
// pair. Re-requesting after a rejection resets from/to/status in place; the
// row is never hard-deleted.
type FriendRequest struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FromID    string    `gorm:"column:from_id;size:36;index:idx_friend_pair" json:"from"`
	ToID      string    `gorm:"column:to_id;size:36;index:idx_friend_pair" json:"to"`
	Status    string    `gorm:"column:status;size:16;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

// OtherSide returns the counterpart of userID on this edge
func (f *FriendRequest) OtherSide(userID string) string {
	if f.FromID == userID {
		return f.ToID
	}
	return f.FromID
}

// IsActive reports whether the edge blocks a new request (pending or accepted)
func (f *FriendRequest) IsActive() bool {
	return f.Status == FriendStatusPending || f.Status == FriendStatusAccepted
}
