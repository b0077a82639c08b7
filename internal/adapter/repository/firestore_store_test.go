package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"freshkart/internal/domain/entity"
	"freshkart/pkg/errors"
)

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "not found", err: status.Error(codes.NotFound, "gone"), want: errors.CodeNotFound},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), want: errors.CodeTransientStore},
		{name: "aborted", err: status.Error(codes.Aborted, "contention"), want: errors.CodeTransientStore},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), want: errors.CodeTransientStore},
		{name: "permission", err: status.Error(codes.PermissionDenied, "rules"), want: errors.CodeForbidden},
		{name: "unknown", err: fmt.Errorf("boom"), want: errors.CodeInternal},
		{name: "app error", err: errors.Validation("bad"), want: errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.CodeOf(storeError("Conversation", "read conversation", tt.err)))
		})
	}

	assert.NoError(t, storeError("Conversation", "read", nil))
	assert.ErrorIs(t, storeError("Conversation", "read", context.Canceled), context.Canceled)
	assert.ErrorIs(t, storeError("Conversation", "read", status.Error(codes.Canceled, "closed")), context.Canceled)
}

// emulatorClient connects to the Firestore emulator; the test is skipped
// when FIRESTORE_EMULATOR_HOST is unset.
func emulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "freshkart-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreSendAndMarkRead(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	convs := NewFirestoreConversationRepository(client)
	msgs := NewFirestoreMessageRepository(client)

	now := time.Now().UTC().Truncate(time.Millisecond)
	buyer := &entity.User{ID: fmt.Sprintf("buyer-%d", now.UnixNano()), Name: "Asha"}
	seller := &entity.User{ID: fmt.Sprintf("seller-%d", now.UnixNano()), Name: "Bhim Farms"}

	conv, created, err := convs.CreateIfAbsent(ctx, entity.NewConversation(buyer, seller, "", now))
	require.NoError(t, err)
	require.True(t, created)

	_, created, err = convs.CreateIfAbsent(ctx, entity.NewConversation(buyer, seller, "", now))
	require.NoError(t, err)
	assert.False(t, created)

	for i := 0; i < 3; i++ {
		at := now.Add(time.Duration(i+1) * time.Second)
		require.NoError(t, msgs.Append(ctx, &entity.Message{
			ID:             entity.NewMessageID(at),
			ConversationID: conv.ID,
			SenderID:       buyer.ID,
			ReceiverID:     seller.ID,
			Content:        fmt.Sprintf("message %d", i),
			Kind:           entity.KindText,
			Timestamp:      at,
			Delivered:      true,
			Reactions:      []entity.Reaction{},
		}, entity.UnreadCount))
	}

	got, err := convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UnreadCount[seller.ID])
	assert.Equal(t, "message 2", got.LastMessage)

	updated, err := msgs.MarkRead(ctx, conv.ID, seller.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	got, err = convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[seller.ID])

	list, total, err := msgs.ListByConversation(ctx, conv.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, m := range list {
		assert.True(t, m.Read)
	}
}

func TestFirestoreDeleteRecomputesUnread(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	convs := NewFirestoreConversationRepository(client)
	msgs := NewFirestoreMessageRepository(client)

	now := time.Now().UTC().Truncate(time.Millisecond)
	buyer := &entity.User{ID: fmt.Sprintf("buyer-%d", now.UnixNano()), Name: "Asha"}
	seller := &entity.User{ID: fmt.Sprintf("seller-%d", now.UnixNano()), Name: "Bhim Farms"}
	conv, _, err := convs.CreateIfAbsent(ctx, entity.NewConversation(buyer, seller, "", now))
	require.NoError(t, err)

	msg := &entity.Message{
		ID:             entity.NewMessageID(now),
		ConversationID: conv.ID,
		SenderID:       buyer.ID,
		ReceiverID:     seller.ID,
		Content:        "only message",
		Kind:           entity.KindText,
		Timestamp:      now,
		Delivered:      true,
		Reactions:      []entity.Reaction{},
	}
	require.NoError(t, msgs.Append(ctx, msg, entity.UnreadFlag))
	require.NoError(t, msgs.Delete(ctx, conv.ID, msg.ID, func(*entity.Message) error { return nil }))

	got, err := convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount[seller.ID])
}
