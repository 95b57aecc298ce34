package handler

import (
	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// FriendHandler friend graph and block list endpoints
type FriendHandler struct {
	relationships *service.RelationshipService
}

// NewFriendHandler creates a new FriendHandler
func NewFriendHandler(relationships *service.RelationshipService) *FriendHandler {
	return &FriendHandler{relationships: relationships}
}

// ListFriends GET /friends
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)
	friends, err := h.relationships.ListFriends(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"friends": friends})
}

// ListPendingRequests GET /friends/requests
func (h *FriendHandler) ListPendingRequests(c *gin.Context) {
	userID := middleware.GetUserID(c)
	requests, err := h.relationships.ListPendingRequests(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"requests": requests})
}

// AddFriend POST /friends/requests
func (h *FriendHandler) AddFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	if err := h.relationships.AddFriend(userID, req.UserID); err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, nil)
}

// RespondFriendRequest POST /friends/requests/:userId/respond
func (h *FriendHandler) RespondFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	if err := h.relationships.RespondFriendRequest(userID, c.Param("userId"), *req.Accept); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// DeleteFriend DELETE /friends/:userId
func (h *FriendHandler) DeleteFriend(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.relationships.DeleteFriend(userID, c.Param("userId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// BlockUser POST /users/:userId/block
func (h *FriendHandler) BlockUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.relationships.BlockUser(userID, c.Param("userId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// UnblockUser DELETE /users/:userId/block
func (h *FriendHandler) UnblockUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.relationships.UnblockUser(userID, c.Param("userId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// ListBlockedUsers GET /users/blocked
func (h *FriendHandler) ListBlockedUsers(c *gin.Context) {
	userID := middleware.GetUserID(c)
	blocked, err := h.relationships.BlockedUsers(userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"blocked": blocked})
}
