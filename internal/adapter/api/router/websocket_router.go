package router

import (
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/handler"
	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/infrastructure/ratelimit"
)

// ActionConnect limits WebSocket upgrades per user.
const ActionConnect = "ws_connect"

// SetupWebSocketRouter sets up WebSocket routes
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate, middleware.RateLimit(rateLimiter, ActionConnect))
}
