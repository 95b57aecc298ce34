package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chatly/chatly-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const relayChannel = "chatly:ws:relay"

// relayMessage crosses instances through redis pub/sub so an event reaches
// room members connected to another node. Origin identifies the publishing
// node; redis delivers every publish back to the publisher's own
// subscription, and without the tag local clients would get the frame twice.
type relayMessage struct {
	Origin string          `json:"origin"`
	Rooms  []string        `json:"rooms"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Hub keeps the registry of connected clients and the rooms they belong to.
// Room membership changes are applied synchronously under the lock so a join
// or leave is visible to the next emit.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	users   map[string]map[*Client]bool
	rooms   map[string]map[*Client]bool

	presence *Presence
	redis    *redis.Client
	originID string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. redisClient may be nil for single-node setups and
// tests; emits then stay local.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:  make(map[*Client]bool),
		users:    make(map[string]map[*Client]bool),
		rooms:    make(map[string]map[*Client]bool),
		presence: NewPresence(),
		redis:    redisClient,
		originID: uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Presence exposes the connection-state registry
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Run consumes the redis relay channel until Shutdown. No-op without redis.
func (h *Hub) Run() {
	if h.redis == nil {
		return
	}
	sub := h.redis.Subscribe(h.ctx, relayChannel)
	defer sub.Close()

	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			h.handleRelay([]byte(msg.Payload))
		}
	}
}

// handleRelay applies a cross-instance frame. This node's own publishes come
// back on the subscription and are skipped; local delivery already happened.
func (h *Hub) handleRelay(payload []byte) {
	var relay relayMessage
	if err := json.Unmarshal(payload, &relay); err != nil {
		logger.GetLogger().Warn().Err(err).Msg("ws: bad relay payload")
		return
	}
	if relay.Origin == h.originID {
		return
	}
	h.emitLocal(relay.Rooms, relay.Event, relay.Data)
}

// Shutdown stops the relay subscriber and disconnects every client
func (h *Hub) Shutdown() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.users = make(map[string]map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// Register adds the client and joins its personal user room
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true
	h.joinLocked(client, UserRoom(client.userID))
	h.mu.Unlock()

	h.presence.Set(client.userID, true)
	logger.GetLogger().Debug().Str("user_id", client.userID).Msg("ws: client connected")
}

// Unregister removes the client from every room. Presence only flips to
// offline when this was the user's last connection.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	conns := h.users[client.userID]
	delete(conns, client)
	lastConnection := len(conns) == 0
	if lastConnection {
		delete(h.users, client.userID)
	}
	h.mu.Unlock()

	if lastConnection {
		h.presence.Set(client.userID, false)
	}
	logger.GetLogger().Debug().Str("user_id", client.userID).Msg("ws: client disconnected")
}

// JoinRoom adds every connection of the user to the room, synchronously
func (h *Hub) JoinRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.users[userID] {
		h.joinLocked(client, room)
	}
}

// LeaveRoom removes every connection of the user from the room, synchronously
func (h *Hub) LeaveRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	for client := range h.users[userID] {
		delete(members, client)
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) joinLocked(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// EmitToRooms delivers the event to every client in any of the rooms, once
// per client, and relays it to the other instances
func (h *Hub) EmitToRooms(rooms []string, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.GetLogger().Error().Err(err).Str("event", event).Msg("ws: marshal event")
		return
	}
	h.emitLocal(rooms, event, payload)
	h.relay(rooms, event, payload)
}

// EmitToUsers delivers the event to the personal rooms of the given users
func (h *Hub) EmitToUsers(userIDs []string, event string, data interface{}) {
	h.EmitToRooms(lo.Map(userIDs, func(id string, _ int) string { return UserRoom(id) }), event, data)
}

func (h *Hub) emitLocal(rooms []string, event string, data json.RawMessage) {
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}

	// sends stay under the read lock so Unregister cannot close a channel
	// mid-send; dropped clients are unregistered after release
	h.mu.RLock()
	targets := make(map[*Client]bool)
	for _, room := range rooms {
		for client := range h.rooms[room] {
			targets[client] = true
		}
	}
	var dropped []*Client
	for client := range targets {
		select {
		case client.send <- frame:
		default:
			dropped = append(dropped, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dropped {
		h.Unregister(client)
	}
}

func (h *Hub) relay(rooms []string, event string, data json.RawMessage) {
	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(relayMessage{Origin: h.originID, Rooms: rooms, Event: event, Data: data})
	if err != nil {
		return
	}
	if err := h.redis.Publish(h.ctx, relayChannel, payload).Err(); err != nil {
		logger.GetLogger().Warn().Err(err).Msg("ws: relay publish failed")
	}
}

// RoomSize reports the number of local connections in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
