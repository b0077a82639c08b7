package handler

import (
	ws "freshkart/internal/infrastructure/websocket"
	"freshkart/internal/usecase"
)

var (
	conversationHandler *ConversationHandler
	messageHandler      *MessageHandler
	typingHandler       *TypingHandler
	sessionHandler      *SessionHandler
	webSocketHandler    *WebSocketHandler
	healthHandler       *HealthHandler
)

type Options struct {
	AllowedOrigins []string
	StoreBackend   string
	TypingBackend  string
}

func Setup(
	conversationUseCase *usecase.ConversationUseCase,
	messageUseCase *usecase.MessageUseCase,
	typingUseCase *usecase.TypingUseCase,
	sessionUseCase *usecase.SessionUseCase,
	wsManager *ws.Manager,
	opts Options,
) {
	conversationHandler = NewConversationHandler(conversationUseCase)
	messageHandler = NewMessageHandler(messageUseCase)
	typingHandler = NewTypingHandler(typingUseCase)
	sessionHandler = NewSessionHandler(sessionUseCase)
	webSocketHandler = NewWebSocketHandler(wsManager, opts.AllowedOrigins)
	healthHandler = NewHealthHandler(opts.StoreBackend, opts.TypingBackend)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetTypingHandler() *TypingHandler {
	return typingHandler
}

func GetSessionHandler() *SessionHandler {
	return sessionHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
