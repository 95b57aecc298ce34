package handler

import (
	"encoding/json"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// GroupHandler group lifecycle, membership and settings endpoints
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// CreateGroup POST /groups
// Multipart: name, desc, members (JSON array), image file. JSON body works
// without an image.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var (
		name, desc string
		members    []string
		image      *service.MediaUpload
	)
	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			common.Error(c, 400, "invalid form")
			return
		}
		name = c.PostForm("name")
		desc = c.PostForm("desc")
		if raw := c.PostForm("members"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &members); err != nil {
				common.Error(c, 400, "invalid members list")
				return
			}
		}
		var err error
		image, err = formMedia(c, "image")
		if err != nil {
			common.HandleError(c, err)
			return
		}
	} else {
		var req struct {
			Name    string   `json:"name" binding:"required"`
			Desc    string   `json:"desc"`
			Members []string `json:"members"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, 400, "invalid request body")
			return
		}
		name, desc, members = req.Name, req.Desc, req.Members
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, name, desc, members, image)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.Created(c, gin.H{"conversation": group})
}

// DeleteGroup DELETE /groups/:conversationId
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.groups.DeleteGroup(userID, c.Param("conversationId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// UpdateGroupData PATCH /groups/:conversationId
func (h *GroupHandler) UpdateGroupData(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var (
		name, desc *string
		image      *service.MediaUpload
	)
	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			common.Error(c, 400, "invalid form")
			return
		}
		if v, ok := c.GetPostForm("name"); ok {
			name = &v
		}
		if v, ok := c.GetPostForm("desc"); ok {
			desc = &v
		}
		var err error
		image, err = formMedia(c, "image")
		if err != nil {
			common.HandleError(c, err)
			return
		}
	} else {
		var req struct {
			Name *string `json:"name"`
			Desc *string `json:"desc"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Error(c, 400, "invalid request body")
			return
		}
		name, desc = req.Name, req.Desc
	}

	group, err := h.groups.UpdateGroupData(c.Request.Context(), userID, c.Param("conversationId"), name, desc, image)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": group})
}

// UpdateSettings PATCH /groups/:conversationId/settings
func (h *GroupHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	group, err := h.groups.UpdateSettings(userID, c.Param("conversationId"), patch)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": group})
}

// AddMember POST /groups/:conversationId/members
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, 400, "invalid request body")
		return
	}
	group, err := h.groups.AddMember(userID, c.Param("conversationId"), req.UserID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": group})
}

// RemoveMember DELETE /groups/:conversationId/members/:userId
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.groups.RemoveMember(userID, c.Param("conversationId"), c.Param("userId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// LeaveGroup POST /groups/:conversationId/leave
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.groups.LeaveGroup(userID, c.Param("conversationId")); err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, nil)
}

// JoinViaLink POST /groups/join/:token
func (h *GroupHandler) JoinViaLink(c *gin.Context) {
	userID := middleware.GetUserID(c)
	group, err := h.groups.JoinViaLink(userID, c.Param("token"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"conversation": group})
}

// InviteLink GET /groups/:conversationId/invite-link
func (h *GroupHandler) InviteLink(c *gin.Context) {
	userID := middleware.GetUserID(c)
	token, err := h.groups.InviteLink(userID, c.Param("conversationId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"token": token})
}

// ResetInviteLink POST /groups/:conversationId/invite-link/reset
func (h *GroupHandler) ResetInviteLink(c *gin.Context) {
	userID := middleware.GetUserID(c)
	token, err := h.groups.ResetLinkToken(userID, c.Param("conversationId"))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.OK(c, gin.H{"token": token})
}
