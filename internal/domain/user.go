package domain

import (
	"time"

	"github.com/samber/lo"
)

// Online presence privacy options
const (
	OnlineEveryone = "Everyone"
	OnlineFriends  = "Friends"
	OnlineNone     = "None"
)

// Read receipt privacy options
const (
	ReadReceiptsEnable  = "Enable"
	ReadReceiptsDisable = "Disable"
)

// PrivacySettings per-user presence and read-receipt preferences
type PrivacySettings struct {
	Online       string `json:"online"`
	ReadReceipts string `json:"readReceipts"`
}

// UserSettings user preferences blob
type UserSettings struct {
	Privacy PrivacySettings `json:"privacy"`
}

// User is owned by the identity subsystem; the messaging core consults its
// block list and privacy settings read-only, and mutates only the block list.
type User struct {
	ID           string       `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name         string       `gorm:"column:name;size:100" json:"name"`
	Email        string       `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	ProfileImage string       `gorm:"column:profile_image;size:500" json:"userProfileImage"`
	Bio          string       `gorm:"column:bio;size:500" json:"bio,omitempty"`
	BlockList    []string     `gorm:"column:block_list;serializer:json" json:"-"`
	Settings     UserSettings `gorm:"column:settings;serializer:json" json:"settings"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// HasBlocked reports whether the user's block list contains id
func (u *User) HasBlocked(id string) bool {
	return lo.Contains(u.BlockList, id)
}

// DefaultUserSettings returns the settings applied to new users
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Privacy: PrivacySettings{
			Online:       OnlineEveryone,
			ReadReceipts: ReadReceiptsEnable,
		},
	}
}

// UserRef is the compact user projection embedded in event payloads
type UserRef struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"userProfileImage"`
}

// ToRef converts a User to its compact projection
func (u *User) ToRef() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, ProfileImage: u.ProfileImage}
}
