package service

// EventSink is the delivery surface services push realtime events through.
// *ws.Hub implements it; tests substitute a recorder.
type EventSink interface {
	// EmitToRooms delivers event to every member of any of the rooms,
	// at most once per connection
	EmitToRooms(rooms []string, event string, data interface{})
	// EmitToUsers delivers event to the personal rooms of the given users
	EmitToUsers(userIDs []string, event string, data interface{})
	// JoinRoom subscribes all of the user's connections to the room,
	// synchronously with the membership change that triggered it
	JoinRoom(userID, room string)
	// LeaveRoom unsubscribes all of the user's connections from the room
	LeaveRoom(userID, room string)
}

// nopSink drops everything; used when a service runs without realtime wiring
type nopSink struct{}

func (nopSink) EmitToRooms([]string, string, interface{}) {}
func (nopSink) EmitToUsers([]string, string, interface{}) {}
func (nopSink) JoinRoom(string, string)                   {}
func (nopSink) LeaveRoom(string, string)                  {}
