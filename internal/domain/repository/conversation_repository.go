package repository

import (
	"context"

	"freshkart/internal/domain/entity"
)

type ConversationRepository interface {
	// CreateIfAbsent stores conv under its deterministic id unless a record
	// already exists, in which case the stored record is returned and
	// created is false. Safe under concurrent callers.
	CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (stored *entity.Conversation, created bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// ListByParticipant returns conversations ordered by updatedAt descending.
	ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	// WatchByParticipant streams the same ordering as ListByParticipant.
	WatchByParticipant(ctx context.Context, userID string) Stream[[]*entity.Conversation]
	SetFlag(ctx context.Context, id string, flag ConversationFlag, value bool) error
}

type ConversationFlag string

const (
	FlagArchived ConversationFlag = "archived"
	FlagMuted    ConversationFlag = "muted"
)
