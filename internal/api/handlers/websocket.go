package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
	ws "github.com/chynybekuuludastan/story_generator/internal/api/websocket"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	Hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{Hub: hub}
}

// HandleStoryWebSocket streams the generation events of the authenticated user
func (h *WebSocketHandler) HandleStoryWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals(middleware.LocalUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		_ = c.Close()
		return
	}

	h.Hub.HandleConnection(c, userID)
}
