package router

import (
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/handler"
	"freshkart/internal/adapter/api/middleware"
)

func SetupSessionRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	sessionHandler := handler.GetSessionHandler()

	session := e.Group("/v1/session")
	session.Use(authMiddleware.Authenticate)
	session.POST("/logout", sessionHandler.Logout)
}
