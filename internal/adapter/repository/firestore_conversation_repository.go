package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

// CreateIfAbsent relies on Create failing with AlreadyExists for a taken
// id, so two participants racing on the same pair+product converge on one
// document.
func (r *firestoreConversationRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	ref := r.client.Collection(conversationsCollection).Doc(conv.ID)

	_, err := ref.Create(ctx, conv)
	if err == nil {
		return conv, true, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return nil, false, storeError("Conversation", "create conversation", err)
	}

	stored, err := r.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("Conversation", "get conversation", err)
	}
	return decodeConversation(doc)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID
	return &conv, nil
}

func (r *firestoreConversationRepository) byParticipant(userID string) firestore.Query {
	return r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)
}

func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.byParticipant(userID)

	total, err := countQuery(ctx, query)
	if err != nil {
		return nil, 0, storeError("Conversation", "count conversations", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError("Conversation", "list conversations", err)
	}

	convs := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, err := decodeConversation(doc)
		if err != nil {
			logger.Warn("Skipping malformed conversation %s for user %s: %v", doc.Ref.ID, userID, err)
			continue
		}
		convs = append(convs, conv)
	}
	return convs, total, nil
}

func (r *firestoreConversationRepository) WatchByParticipant(ctx context.Context, userID string) repository.Stream[[]*entity.Conversation] {
	return newSnapshotStream(ctx, r.byParticipant(userID), "Conversation", decodeConversation)
}

func (r *firestoreConversationRepository) SetFlag(ctx context.Context, id string, flag repository.ConversationFlag, value bool) error {
	_, err := r.client.Collection(conversationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: string(flag), Value: value},
	})
	return storeError("Conversation", "update conversation", err)
}

// countQuery runs a server-side COUNT aggregation.
func countQuery(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, nil
	}
	return v.GetIntegerValue(), nil
}
