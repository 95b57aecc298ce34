package handler

import (
	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// StatusHandler ephemeral status endpoints
type StatusHandler struct {
	statuses *service.StatusService
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(statuses *service.StatusService) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

// CreateStatus POST /statuses
// Multipart: content, media file. JSON works for text-only statuses.
func (h *StatusHandler) CreateStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)

	input := &service.StatusInput{}
	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			common.Error(c, 400, "invalid form")
			return
		}
		input.Content = c.PostForm("content")
		media, err := formMedia(c, "media")
		if err != nil {
			common.HandleError(c, err)
			return
		}
		input.Media = media
	} else {
		var req struct {
			Content string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, 400, "invalid request body")
			return
		}
		input.Content = req.Content
	}

	status, err := h.statuses.Create(c.Request.Context(), userID, input)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, gin.H{"status": status})
}

// ListOwnStatuses GET /statuses
func (h *StatusHandler) ListOwnStatuses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	statuses, err := h.statuses.OwnStatuses(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"statuses": statuses})
}

// FriendFeed GET /statuses/feed
func (h *StatusHandler) FriendFeed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	feed, err := h.statuses.FriendFeed(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"feed": feed})
}

// SeeStatus POST /statuses/:statusId/seen
func (h *StatusHandler) SeeStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.statuses.See(userID, c.Param("statusId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// DeleteStatus DELETE /statuses/:statusId
func (h *StatusHandler) DeleteStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.statuses.Delete(userID, c.Param("statusId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}
