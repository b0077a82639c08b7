package websocket

import (
	"context"

	"freshkart/internal/domain/entity"
	"freshkart/internal/usecase"
)

// ChatService is what a session needs from the messaging layer.
type ChatService interface {
	WatchConversations(ctx context.Context, userID string, includeArchived bool, emit func([]*entity.Conversation) error) error
	WatchMessages(ctx context.Context, userID, conversationID string, emit func([]*entity.Message) error) error
	WatchTyping(ctx context.Context, userID, conversationID string, emit func([]*entity.TypingIndicator) error) error
	SendMessage(ctx context.Context, userID string, input usecase.SendMessageInput) (*entity.Message, error)
	SetTyping(ctx context.Context, userID, userName, conversationID string) error
	ClearTyping(ctx context.Context, userID, conversationID string) error
	MarkRead(ctx context.Context, userID, conversationID string) (int, error)
}

type chatService struct {
	conversations *usecase.ConversationUseCase
	messages      *usecase.MessageUseCase
	typing        *usecase.TypingUseCase
}

func NewChatService(
	conversations *usecase.ConversationUseCase,
	messages *usecase.MessageUseCase,
	typing *usecase.TypingUseCase,
) ChatService {
	return &chatService{
		conversations: conversations,
		messages:      messages,
		typing:        typing,
	}
}

func (s *chatService) WatchConversations(ctx context.Context, userID string, includeArchived bool, emit func([]*entity.Conversation) error) error {
	return s.conversations.Watch(ctx, userID, includeArchived, emit)
}

func (s *chatService) WatchMessages(ctx context.Context, userID, conversationID string, emit func([]*entity.Message) error) error {
	return s.messages.Watch(ctx, userID, conversationID, emit)
}

func (s *chatService) WatchTyping(ctx context.Context, userID, conversationID string, emit func([]*entity.TypingIndicator) error) error {
	return s.typing.Watch(ctx, userID, conversationID, emit)
}

func (s *chatService) SendMessage(ctx context.Context, userID string, input usecase.SendMessageInput) (*entity.Message, error) {
	return s.messages.Send(ctx, userID, input)
}

func (s *chatService) SetTyping(ctx context.Context, userID, userName, conversationID string) error {
	_, err := s.typing.SetTyping(ctx, userID, userName, conversationID)
	return err
}

func (s *chatService) ClearTyping(ctx context.Context, userID, conversationID string) error {
	return s.typing.ClearTyping(ctx, userID, conversationID)
}

func (s *chatService) MarkRead(ctx context.Context, userID, conversationID string) (int, error) {
	return s.messages.MarkRead(ctx, userID, conversationID)
}
