package handler

import (
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/domain/entity"
	ws "freshkart/internal/infrastructure/websocket"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
	"freshkart/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  *gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		upgrader:  ws.NewUpgrader(allowedOrigins),
	}
}

// HandleWebSocket upgrades an authenticated request and serves the session
// until it closes.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return response.Error(c, errors.AuthenticationRequired())
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket: upgrade for %s failed: %v", userID, err)
		return nil
	}

	h.wsManager.Serve(conn, &entity.Identity{UserID: userID, Name: middleware.UserName(c)})
	return nil
}
