package ws

import (
	"encoding/json"
	"time"

	"github.com/chatly/chatly-backend/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 20 // media frames carry base64 payloads
	sendBufferSize = 256
)

// AckFunc answers a client frame that asked for an acknowledgement
type AckFunc func(data interface{})

// EventHandler dispatches inbound client frames. Implementations run on the
// client's read goroutine; anything slow belongs in its own goroutine.
type EventHandler interface {
	HandleEvent(client *Client, event string, data json.RawMessage, ack AckFunc)
}

// inboundFrame is the wire shape of client-sent frames
type inboundFrame struct {
	Event string          `json:"event"`
	AckID int64           `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ackFrame struct {
	AckID int64       `json:"ackId"`
	Data  interface{} `json:"data"`
}

// Client is one websocket connection of one authenticated user
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	handler EventHandler

	userID string
}

// NewClient wraps an upgraded connection. The caller registers it on the hub
// and starts both pumps.
func NewClient(hub *Hub, conn *websocket.Conn, handler EventHandler, userID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		handler: handler,
		userID:  userID,
	}
}

// UserID returns the authenticated user behind this connection
func (c *Client) UserID() string {
	return c.userID
}

// Emit pushes a single event to this connection only
func (c *Client) Emit(event string, data interface{}) {
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// EmitError pushes an errors event with a message the client can surface
func (c *Client) EmitError(msg string) {
	c.Emit(EventErrors, map[string]string{"msg": msg})
}

// ReadPump reads frames until the connection drops, dispatching each to the
// handler. Runs as a goroutine per connection; unregisters on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := logger.GetLogger()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", c.userID).Msg("ws: unexpected close")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			c.EmitError("malformed frame")
			continue
		}
		if c.handler == nil {
			continue
		}
		c.handler.HandleEvent(c, frame.Event, frame.Data, c.ackFunc(frame.AckID))
	}
}

func (c *Client) ackFunc(ackID int64) AckFunc {
	if ackID == 0 {
		return nil
	}
	return func(data interface{}) {
		c.Emit(EventAck, ackFrame{AckID: ackID, Data: data})
	}
}

// WritePump flushes the send channel to the socket and keeps the connection
// alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
