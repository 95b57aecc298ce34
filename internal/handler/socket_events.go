package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/chatly/chatly-backend/pkg/logger"
)

var errMalformedPayload = errors.New("malformed payload")

// SocketEventHandler dispatches inbound websocket frames to the services.
// Each frame runs on its own goroutine so a slow database call never stalls
// the connection's read pump.
type SocketEventHandler struct {
	messages *service.MessageService
}

// NewSocketEventHandler creates a new SocketEventHandler
func NewSocketEventHandler(messages *service.MessageService) *SocketEventHandler {
	return &SocketEventHandler{messages: messages}
}

type socketMessagePayload struct {
	To             string  `json:"to"`
	ConversationID string  `json:"conversationId"`
	Text           string  `json:"text"`
	ReplyMessage   *string `json:"replyMessage"`
	// Media is a base64-encoded attachment; the server sniffs its type
	Media string `json:"media"`
}

// typing and seeAllMessages address the other user directly; conversationId
// is accepted as an alternative for group typing
type socketTypingPayload struct {
	To             string `json:"to"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type socketSeenPayload struct {
	To             string `json:"to"`
	ConversationID string `json:"conversationId"`
}

// HandleEvent implements ws.EventHandler
func (h *SocketEventHandler) HandleEvent(client *ws.Client, event string, data json.RawMessage, ack ws.AckFunc) {
	middleware.WSEventReceived(event)
	go h.dispatch(client, event, data, ack)
}

func (h *SocketEventHandler) dispatch(client *ws.Client, event string, data json.RawMessage, ack ws.AckFunc) {
	switch event {
	case ws.EventSendPrivateMessage:
		h.sendPrivate(client, data, ack)
	case ws.EventSendGroupMessage:
		h.sendGroup(client, data, ack)
	case ws.EventTyping:
		h.typing(client, data, ack)
	case ws.EventSeeAllMessages:
		h.seeAll(client, data, ack)
	default:
		client.EmitError("unknown event " + event)
	}
}

func (h *SocketEventHandler) sendPrivate(client *ws.Client, data json.RawMessage, ack ws.AckFunc) {
	var payload socketMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.fail(client, ws.EventSendPrivateMessage, ack, errMalformedPayload)
		return
	}
	input, err := messageInput(&payload)
	if err != nil {
		h.fail(client, ws.EventSendPrivateMessage, ack, err)
		return
	}

	message, conversation, err := h.messages.SendPrivate(context.Background(), client.UserID(), payload.To, input)
	if err != nil {
		h.fail(client, ws.EventSendPrivateMessage, ack, err)
		return
	}
	if ack != nil {
		ack(map[string]interface{}{"success": true, "message": message, "conversation": conversation})
	}
}

func (h *SocketEventHandler) sendGroup(client *ws.Client, data json.RawMessage, ack ws.AckFunc) {
	var payload socketMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.fail(client, ws.EventSendGroupMessage, ack, errMalformedPayload)
		return
	}
	input, err := messageInput(&payload)
	if err != nil {
		h.fail(client, ws.EventSendGroupMessage, ack, err)
		return
	}

	message, conversation, err := h.messages.SendGroup(context.Background(), client.UserID(), payload.ConversationID, input)
	if err != nil {
		h.fail(client, ws.EventSendGroupMessage, ack, err)
		return
	}
	if ack != nil {
		ack(map[string]interface{}{"success": true, "message": message, "conversation": conversation})
	}
}

func (h *SocketEventHandler) typing(client *ws.Client, data json.RawMessage, ack ws.AckFunc) {
	var payload socketTypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.fail(client, ws.EventTyping, ack, errMalformedPayload)
		return
	}
	var err error
	if payload.To != "" {
		err = h.messages.TypingTo(client.UserID(), payload.To, payload.IsTyping)
	} else {
		err = h.messages.Typing(client.UserID(), payload.ConversationID, payload.IsTyping)
	}
	if err != nil {
		h.fail(client, ws.EventTyping, ack, err)
	}
}

func (h *SocketEventHandler) seeAll(client *ws.Client, data json.RawMessage, ack ws.AckFunc) {
	var payload socketSeenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.fail(client, ws.EventSeeAllMessages, ack, errMalformedPayload)
		return
	}
	var err error
	if payload.To != "" {
		err = h.messages.SeeAllWith(client.UserID(), payload.To)
	} else {
		err = h.messages.SeeAll(client.UserID(), payload.ConversationID)
	}
	if err != nil {
		h.fail(client, ws.EventSeeAllMessages, ack, err)
		return
	}
	if ack != nil {
		ack(map[string]interface{}{"success": true})
	}
}

// fail reports the error on both channels: the frame's ack when one was
// requested, and an errors event the client can surface
func (h *SocketEventHandler) fail(client *ws.Client, event string, ack ws.AckFunc, err error) {
	logger.GetLogger().Debug().Err(err).
		Str("user_id", client.UserID()).
		Str("event", event).
		Msg("ws: event rejected")
	if ack != nil {
		ack(map[string]interface{}{"success": false, "error": err.Error()})
	}
	client.EmitError(err.Error())
}

func messageInput(payload *socketMessagePayload) (*service.MessageInput, error) {
	input := &service.MessageInput{
		Text:           payload.Text,
		ReplyMessageID: payload.ReplyMessage,
	}
	if payload.Media != "" {
		data, err := base64.StdEncoding.DecodeString(payload.Media)
		if err != nil {
			return nil, err
		}
		input.Media = &service.MediaUpload{Data: data}
	}
	return input, nil
}
