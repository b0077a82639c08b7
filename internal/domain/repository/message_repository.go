package repository

import (
	"context"
	"time"

	"freshkart/internal/domain/entity"
)

type MessageRepository interface {
	// Append persists msg and, atomically with it, refreshes the owning
	// conversation's preview and updatedAt and bumps the receiver's unread
	// counter according to mode.
	Append(ctx context.Context, msg *entity.Message, mode entity.UnreadMode) error
	GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	// ListByConversation returns messages ordered by timestamp ascending.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)
	WatchByConversation(ctx context.Context, conversationID string) Stream[[]*entity.Message]
	// Mutate applies fn to the stored message inside a transaction. fn
	// returns false to skip the write.
	Mutate(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) (bool, error)) (*entity.Message, error)
	Delete(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) error) error
	// MarkRead flags every unread message addressed to userID as read and
	// zeroes the user's counter. It returns the number of messages updated.
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error)
}
