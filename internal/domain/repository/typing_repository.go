package repository

import (
	"context"

	"freshkart/internal/domain/entity"
)

// TypingRepository stores presence records. Implementations may keep
// expired records around; expiry is evaluated by readers.
type TypingRepository interface {
	Upsert(ctx context.Context, indicator *entity.TypingIndicator) error
	Delete(ctx context.Context, conversationID, userID string) error
	Watch(ctx context.Context, conversationID string) Stream[[]*entity.TypingIndicator]
}
