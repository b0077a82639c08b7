package router

import (
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/middleware"
	"freshkart/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e)
	SetupConversationRouter(e, authMiddleware)
	SetupSessionRouter(e, authMiddleware)
	SetupWebSocketRouter(e, authMiddleware, rateLimiter)
}
