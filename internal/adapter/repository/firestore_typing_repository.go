package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

// firestoreTypingRepository keeps indicators at
// conversations/{id}/typing/{userId}. A TTL policy on expiresAt removes
// records whose writer vanished; readers still check expiresAt because TTL
// deletion is lazy.
type firestoreTypingRepository struct {
	client *firestore.Client
}

func NewFirestoreTypingRepository(client *firestore.Client) repository.TypingRepository {
	return &firestoreTypingRepository{
		client: client,
	}
}

func (r *firestoreTypingRepository) typing(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID).Collection(typingCollection)
}

func (r *firestoreTypingRepository) Upsert(ctx context.Context, indicator *entity.TypingIndicator) error {
	_, err := r.typing(indicator.ConversationID).Doc(indicator.UserID).Set(ctx, indicator)
	return storeError("Typing indicator", "set typing indicator", err)
}

func (r *firestoreTypingRepository) Delete(ctx context.Context, conversationID, userID string) error {
	_, err := r.typing(conversationID).Doc(userID).Delete(ctx)
	return storeError("Typing indicator", "clear typing indicator", err)
}

func (r *firestoreTypingRepository) Watch(ctx context.Context, conversationID string) repository.Stream[[]*entity.TypingIndicator] {
	return newSnapshotStream(ctx, r.typing(conversationID).Query, "Typing indicator", func(doc *firestore.DocumentSnapshot) (*entity.TypingIndicator, error) {
		var t entity.TypingIndicator
		if err := doc.DataTo(&t); err != nil {
			return nil, errors.Internal("Failed to parse typing indicator", err)
		}
		return &t, nil
	})
}
