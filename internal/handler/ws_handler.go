package handler

import (
	"net/http"

	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/chatly/chatly-backend/internal/middleware"
	"github.com/chatly/chatly-backend/internal/repository"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/chatly/chatly-backend/internal/ws"
	"github.com/chatly/chatly-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// cross-origin policy is enforced by the CORS layer; the upgrade itself
	// accepts any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated connections and wires them into the hub
type WSHandler struct {
	hub           *ws.Hub
	events        *SocketEventHandler
	userRepo      repository.UserRepository
	convRepo      repository.ConversationRepository
	relationships *service.RelationshipService
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, events *SocketEventHandler, userRepo repository.UserRepository,
	convRepo repository.ConversationRepository, relationships *service.RelationshipService) *WSHandler {
	return &WSHandler{
		hub:           hub,
		events:        events,
		userRepo:      userRepo,
		convRepo:      convRepo,
		relationships: relationships,
	}
}

// Connect GET /ws
// The JWT comes from the auth middleware (header or ?token=). The connection
// joins the user's personal room and every group room, then pumps until the
// client drops.
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.GetUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("ws: upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, h.events, userID)
	h.hub.Register(client)
	middleware.WSConnectionOpened()
	h.joinGroupRooms(userID)
	h.broadcastPresence(userID, true)

	go client.WritePump()
	client.ReadPump()

	middleware.WSConnectionClosed()
	if !h.hub.Presence().IsOnline(userID) {
		h.broadcastPresence(userID, false)
	}
}

func (h *WSHandler) joinGroupRooms(userID string) {
	convs, err := h.convRepo.FindByParticipant(userID)
	if err != nil {
		logger.GetLogger().Error().Err(err).Str("user_id", userID).Msg("ws: join group rooms")
		return
	}
	for _, conv := range convs {
		if conv.IsGroup() {
			h.hub.JoinRoom(userID, ws.ConversationRoom(conv.ID))
		}
	}
}

// broadcastPresence tells the user's friends about a connection-state change,
// honoring the user's online-visibility privacy setting
func (h *WSHandler) broadcastPresence(userID string, online bool) {
	user, err := h.userRepo.FindByID(userID)
	if err != nil {
		return
	}
	if user.Settings.Privacy.Online == domain.OnlineNone {
		return
	}
	friendIDs, err := h.relationships.FriendIDs(userID)
	if err != nil || len(friendIDs) == 0 {
		return
	}
	h.hub.EmitToUsers(friendIDs, ws.EventUserOnline, map[string]interface{}{
		"userId": userID,
		"online": online,
	})
}
