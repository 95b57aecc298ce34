package routes

import (
	"github.com/chatly/chatly-backend/internal/handler"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything Setup mounts
type Handlers struct {
	Chat   *handler.ChatHandler
	Group  *handler.GroupHandler
	Friend *handler.FriendHandler
	Status *handler.StatusHandler
	WS     *handler.WSHandler
}

// Setup configures the /api/v1 routes and the websocket endpoint. Every
// route requires a valid JWT.
func Setup(router *gin.Engine, h *Handlers, jwtManager *jwt.Manager) {
	auth := middleware.JWTAuth(jwtManager)

	router.GET("/ws", auth, h.WS.Connect)

	api := router.Group("/api/v1")
	api.Use(auth)

	// Conversations
	chats := api.Group("/chats")
	chats.GET("", h.Chat.ListConversations)
	chats.GET("/:conversationId", h.Chat.GetConversation)
	chats.POST("/:conversationId/clear", h.Chat.ClearConversation)
	chats.GET("/:conversationId/messages", h.Chat.ListMessages)
	chats.POST("/:conversationId/seen", h.Chat.SeeAllMessages)

	// Messages
	messages := api.Group("/messages")
	messages.POST("/private", h.Chat.SendPrivateMessage)
	messages.POST("/group/:conversationId", h.Chat.SendGroupMessage)
	messages.POST("/:messageId/react", h.Chat.ReactToMessage)
	messages.POST("/:messageId/forward", h.Chat.ForwardMessage)
	messages.DELETE("/:messageId", h.Chat.DeleteMessage)

	// Groups
	groups := api.Group("/groups")
	groups.POST("", h.Group.CreateGroup)
	groups.POST("/join/:token", h.Group.JoinViaLink)
	groups.PATCH("/:conversationId", h.Group.UpdateGroupData)
	groups.DELETE("/:conversationId", h.Group.DeleteGroup)
	groups.PATCH("/:conversationId/settings", h.Group.UpdateSettings)
	groups.POST("/:conversationId/members", h.Group.AddMember)
	groups.DELETE("/:conversationId/members/:userId", h.Group.RemoveMember)
	groups.POST("/:conversationId/leave", h.Group.LeaveGroup)
	groups.GET("/:conversationId/invite-link", h.Group.InviteLink)
	groups.POST("/:conversationId/invite-link/reset", h.Group.ResetInviteLink)

	// Friends and blocks
	friends := api.Group("/friends")
	friends.GET("", h.Friend.ListFriends)
	friends.GET("/requests", h.Friend.ListPendingRequests)
	friends.POST("/requests", h.Friend.AddFriend)
	friends.POST("/requests/:userId/respond", h.Friend.RespondFriendRequest)
	friends.DELETE("/:userId", h.Friend.DeleteFriend)

	users := api.Group("/users")
	users.GET("/blocked", h.Friend.ListBlockedUsers)
	users.POST("/:userId/block", h.Friend.BlockUser)
	users.DELETE("/:userId/block", h.Friend.UnblockUser)

	// Statuses
	statuses := api.Group("/statuses")
	statuses.POST("", h.Status.CreateStatus)
	statuses.GET("", h.Status.ListOwnStatuses)
	statuses.GET("/feed", h.Status.FriendFeed)
	statuses.POST("/:statusId/seen", h.Status.SeeStatus)
	statuses.DELETE("/:statusId", h.Status.DeleteStatus)
}
