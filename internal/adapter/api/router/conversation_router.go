package router

import (
	"github.com/labstack/echo/v4"

	"freshkart/internal/adapter/api/handler"
	"freshkart/internal/adapter/api/middleware"
)

// SetupConversationRouter sets up conversation, message and typing routes
func SetupConversationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	conversationHandler := handler.GetConversationHandler()
	messageHandler := handler.GetMessageHandler()
	typingHandler := handler.GetTypingHandler()

	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", conversationHandler.CreateConversation)
	conversations.GET("", conversationHandler.ListConversations)
	conversations.GET("/:id", conversationHandler.GetConversation)
	conversations.PUT("/:id/archive", conversationHandler.SetArchived)
	conversations.PUT("/:id/mute", conversationHandler.SetMuted)
	conversations.PUT("/:id/read", messageHandler.MarkConversationRead)

	conversations.GET("/:id/messages", messageHandler.ListMessages)
	conversations.POST("/:id/messages", messageHandler.SendMessage)
	conversations.PATCH("/:id/messages/:messageId", messageHandler.EditMessage)
	conversations.DELETE("/:id/messages/:messageId", messageHandler.DeleteMessage)
	conversations.POST("/:id/messages/:messageId/reactions", messageHandler.AddReaction)
	conversations.DELETE("/:id/messages/:messageId/reactions", messageHandler.RemoveReaction)

	conversations.PUT("/:id/typing", typingHandler.StartTyping)
	conversations.DELETE("/:id/typing", typingHandler.StopTyping)
}
