package handler

import (
	"strconv"
	"time"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ChatHandler conversation and message endpoints
type ChatHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(conversations *service.ConversationService, messages *service.MessageService) *ChatHandler {
	return &ChatHandler{conversations: conversations, messages: messages}
}

// ListConversations GET /chats
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversations, err := h.conversations.List(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversations": conversations})
}

// GetConversation GET /chats/:conversationId
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversation, err := h.conversations.Get(userID, c.Param("conversationId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": conversation})
}

// ClearConversation POST /chats/:conversationId/clear
func (h *ChatHandler) ClearConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.conversations.Clear(userID, c.Param("conversationId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// ListMessages GET /chats/:conversationId/messages?before=<RFC3339>&limit=<n>
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			common.Error(c, 400, "invalid before cursor")
			return
		}
		before = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.messages.ListPage(userID, c.Param("conversationId"), before, limit)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"messages": page.Messages, "hasMore": page.HasMore})
}

// SeeAllMessages POST /chats/:conversationId/seen
func (h *ChatHandler) SeeAllMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.messages.SeeAll(userID, c.Param("conversationId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// SendPrivateMessage POST /messages/private
// JSON {to, text, replyMessage} or multipart with a media file
func (h *ChatHandler) SendPrivateMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var to string
	input := &service.MessageInput{}
	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			common.Error(c, 400, "invalid form")
			return
		}
		to = c.PostForm("to")
		input.Text = c.PostForm("text")
		if reply := c.PostForm("replyMessage"); reply != "" {
			input.ReplyMessageID = &reply
		}
		media, err := formMedia(c, "media")
		if err != nil {
			common.HandleError(c, err)
			return
		}
		input.Media = media
	} else {
		var req struct {
			To           string  `json:"to" binding:"required"`
			Text         string  `json:"text"`
			ReplyMessage *string `json:"replyMessage"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, 400, "invalid request body")
			return
		}
		to = req.To
		input.Text = req.Text
		input.ReplyMessageID = req.ReplyMessage
	}
	if to == "" {
		common.Error(c, 400, "recipient required")
		return
	}

	message, conversation, err := h.messages.SendPrivate(c.Request.Context(), userID, to, input)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, gin.H{"message": message, "conversation": conversation})
}

// SendGroupMessage POST /messages/group/:conversationId
func (h *ChatHandler) SendGroupMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	input := &service.MessageInput{}
	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			common.Error(c, 400, "invalid form")
			return
		}
		input.Text = c.PostForm("text")
		if reply := c.PostForm("replyMessage"); reply != "" {
			input.ReplyMessageID = &reply
		}
		media, err := formMedia(c, "media")
		if err != nil {
			common.HandleError(c, err)
			return
		}
		input.Media = media
	} else {
		var req struct {
			Text         string  `json:"text"`
			ReplyMessage *string `json:"replyMessage"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, 400, "invalid request body")
			return
		}
		input.Text = req.Text
		input.ReplyMessageID = req.ReplyMessage
	}

	message, conversation, err := h.messages.SendGroup(c.Request.Context(), userID, c.Param("conversationId"), input)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, gin.H{"message": message, "conversation": conversation})
}

// ReactToMessage POST /messages/:messageId/react
func (h *ChatHandler) ReactToMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		React string `json:"react" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	message, err := h.messages.React(userID, c.Param("messageId"), req.React)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"message": message})
}

// DeleteMessage DELETE /messages/:messageId
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.messages.Delete(userID, c.Param("messageId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// ForwardMessage POST /messages/:messageId/forward
func (h *ChatHandler) ForwardMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	message, err := h.messages.Forward(c.Request.Context(), userID, c.Param("messageId"), req.ConversationID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, gin.H{"message": message})
}
