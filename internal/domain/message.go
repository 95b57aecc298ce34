package domain

import "time"

// Media kinds attached to a message or status
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeNone  = ""
)

// Supported reaction kinds
var ValidReactions = map[string]bool{
	"like":  true,
	"love":  true,
	"laugh": true,
	"wow":   true,
	"sad":   true,
	"angry": true,
}

// React a single user's reaction to a message. A message holds at most one
// entry per user.
type React struct {
	UserID string `json:"user"`
	React  string `json:"react"`
}

// Message a chat message. ToID is empty for group messages. Reacts is stored
// as a JSON list; mutation goes through a row-locked update.
type Message struct {
	ID             string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;index:idx_msg_conv_created" json:"conversationId"`
	FromID         string    `gorm:"column:from_id;size:36;index" json:"from"`
	ToID           string    `gorm:"column:to_id;size:36" json:"to,omitempty"`
	Text           string    `gorm:"column:text;type:text" json:"text,omitempty"`
	MediaURL       string    `gorm:"column:media_url;size:500" json:"mediaUrl,omitempty"`
	MediaType      string    `gorm:"column:media_type;size:16" json:"mediaType"`
	ReplyMessageID *string   `gorm:"column:reply_message_id;size:36" json:"replyMessage,omitempty"`
	Seen           bool      `gorm:"column:seen;default:false" json:"seen"`
	Reacts         []React   `gorm:"column:reacts;serializer:json" json:"reacts"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_msg_conv_created" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}

// HasContent reports whether the message carries text or media
func (m *Message) HasContent() bool {
	return m.Text != "" || m.MediaURL != ""
}

// ReactBy returns the index of the user's reaction, or -1
func (m *Message) ReactBy(userID string) int {
	for i, r := range m.Reacts {
		if r.UserID == userID {
			return i
		}
	}
	return -1
}

// MessageResponse API/event projection of a message
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	From           string    `json:"from"`
	To             string    `json:"to,omitempty"`
	Text           string    `json:"text,omitempty"`
	MediaURL       string    `json:"mediaUrl,omitempty"`
	MediaType      string    `json:"mediaType"`
	ReplyMessage   *string   `json:"replyMessage,omitempty"`
	Seen           bool      `json:"seen"`
	Reacts         []React   `json:"reacts"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ToResponse converts a Message to its projection
func (m *Message) ToResponse() *MessageResponse {
	reacts := m.Reacts
	if reacts == nil {
		reacts = []React{}
	}
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		From:           m.FromID,
		To:             m.ToID,
		Text:           m.Text,
		MediaURL:       m.MediaURL,
		MediaType:      m.MediaType,
		ReplyMessage:   m.ReplyMessageID,
		Seen:           m.Seen,
		Reacts:         reacts,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
