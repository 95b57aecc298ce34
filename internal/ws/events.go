package ws

// Inbound socket events
const (
	EventSendPrivateMessage = "sendPrivateMessage"
	EventSendGroupMessage   = "sendGroupMessage"
	EventTyping             = "typing"
	EventSeeAllMessages     = "seeAllMessages"
)

// Outbound socket events
const (
	EventReceiveMessage        = "receiveMessage"
	EventMessagesSeen          = "messagesSeen"
	EventMessageReaction       = "messageReaction"
	EventAddedToGroup          = "addedToGroup"
	EventDeletedFromGroup      = "deletedFromGroup"
	EventGroupSettingsUpdated  = "groupSettingsUpdated"
	EventNewFriendStatus       = "newFriendStatus"
	EventStatusSeen            = "statusSeen"
	EventDeleteFriendStatus    = "deleteFriendStatus"
	EventNewFriendRequest      = "newFriendRequest"
	EventFriendRequestAccepted = "friendRequestAccepted"
	EventFriendDeleted         = "friendDeleted"
	EventUserOnline            = "userOnline"
	EventErrors                = "errors"
	EventAck                   = "ack"
)

// Event is the wire envelope for every server-pushed frame
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// UserRoom names the personal room every authenticated connection joins
func UserRoom(userID string) string {
	return "user:" + userID
}

// ConversationRoom names the room shared by a group's connected members
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}
