package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Conversation kinds
const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

// ConversationUserSettings per-user conversation state. MessagesClearedAt is
// the visibility watermark: messages created at or before it are hidden from
// that user only.
type ConversationUserSettings struct {
	MessagesClearedAt *time.Time `json:"messagesClearedAt,omitempty"`
}

// MemberPermissions what ordinary group members are allowed to do
type MemberPermissions struct {
	EditGroupData   bool `json:"editGroupData"`
	SendNewMessages bool `json:"sendNewMessages"`
	AddOtherMembers bool `json:"addOtherMembers"`
	InviteViaLink   bool `json:"inviteViaLink"`
}

// AdminSettings group admin-side switches
type AdminSettings struct {
	ApproveNewMembers bool `json:"approveNewMembers"`
}

// GroupSettings group configuration. LinkToken is projected out for ordinary
// members unless InviteViaLink is enabled; the admin always sees it.
type GroupSettings struct {
	LinkToken string            `json:"linkToken,omitempty"`
	Members   MemberPermissions `json:"members"`
	Admin     AdminSettings     `json:"admin"`
}

// DefaultGroupSettings returns the settings applied to new groups
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		Members: MemberPermissions{
			EditGroupData:   false,
			SendNewMessages: true,
			AddOtherMembers: false,
			InviteViaLink:   false,
		},
	}
}

// Conversation is either a private pair channel or an admin-owned group.
// Private conversations are unique per unordered participant pair, enforced
// by the unique index on ParticipantKey; groups leave the key NULL.
type Conversation struct {
	ID             string                              `gorm:"column:id;primaryKey;size:36" json:"id"`
	Type           string                              `gorm:"column:type;size:16;index" json:"type"`
	ParticipantKey *string                             `gorm:"column:participant_key;size:80;uniqueIndex" json:"-"`
	Participants   []string                            `gorm:"column:participants;serializer:json" json:"participants"`
	LastMessageID  *string                             `gorm:"column:last_message_id;size:36" json:"-"`
	UserSettings   map[string]ConversationUserSettings `gorm:"column:user_settings;serializer:json" json:"-"`
	AdminID        string                              `gorm:"column:admin_id;size:36" json:"admin,omitempty"`
	GroupName      string                              `gorm:"column:group_name;size:100" json:"groupName,omitempty"`
	GroupDesc      string                              `gorm:"column:group_desc;size:500" json:"desc,omitempty"`
	GroupImage     string                              `gorm:"column:group_image;size:500" json:"groupImage,omitempty"`
	GroupSettings  *GroupSettings                      `gorm:"column:group_settings;serializer:json" json:"-"`
	CreatedAt      time.Time                           `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time                           `gorm:"column:updated_at;index" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// PrivateParticipantKey builds the canonical key for a private pair:
// the two ids sorted lexicographically and joined with a colon.
func PrivateParticipantKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// IsGroup reports whether the conversation is a group
func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return lo.Contains(c.Participants, userID)
}

// IsAdmin reports whether userID is the group admin
func (c *Conversation) IsAdmin(userID string) bool {
	return c.IsGroup() && c.AdminID == userID
}

// WatermarkFor returns the per-user visibility watermark, defaulting to the
// epoch when the user never cleared the conversation.
func (c *Conversation) WatermarkFor(userID string) time.Time {
	if s, ok := c.UserSettings[userID]; ok && s.MessagesClearedAt != nil {
		return *s.MessagesClearedAt
	}
	return time.Time{}
}

// SetClearedAt upserts the user's watermark
func (c *Conversation) SetClearedAt(userID string, t time.Time) {
	if c.UserSettings == nil {
		c.UserSettings = make(map[string]ConversationUserSettings)
	}
	c.UserSettings[userID] = ConversationUserSettings{MessagesClearedAt: &t}
}

// OtherParticipant returns the other side of a private conversation
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// ConversationResponse API/event projection of a conversation
type ConversationResponse struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	Participants  []string         `json:"participants"`
	LastMessage   *MessageResponse `json:"lastMessage"`
	Admin         string           `json:"admin,omitempty"`
	GroupName     string           `json:"groupName,omitempty"`
	Desc          string           `json:"desc,omitempty"`
	GroupImage    string           `json:"groupImage,omitempty"`
	GroupSettings *GroupSettings   `json:"groupSettings,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ToResponse projects the conversation for a specific viewer. The group link
// token is included for the admin unconditionally, and for members only when
// invites via link are enabled.
func (c *Conversation) ToResponse(viewer string, lastMessage *Message) *ConversationResponse {
	resp := &ConversationResponse{
		ID:           c.ID,
		Type:         c.Type,
		Participants: c.Participants,
		Admin:        c.AdminID,
		GroupName:    c.GroupName,
		Desc:         c.GroupDesc,
		GroupImage:   c.GroupImage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if lastMessage != nil {
		resp.LastMessage = lastMessage.ToResponse()
	}
	if c.IsGroup() && c.GroupSettings != nil {
		settings := *c.GroupSettings
		if viewer != c.AdminID && !settings.Members.InviteViaLink {
			settings.LinkToken = ""
		}
		resp.GroupSettings = &settings
	}
	return resp
}
