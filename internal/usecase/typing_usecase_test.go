package usecase

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshkart/internal/domain/entity"
	"freshkart/pkg/errors"
)

func typingIDs(records []*entity.TypingIndicator) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.UserID
	}
	return ids
}

func TestTypingIndicatorLapsesWithoutStoreWrite(t *testing.T) {
	f := newFixture(t, entity.UnreadFlag)
	ctx := context.Background()
	conv := f.conversation(t)

	snapshots, stop := watchInto(t, func(ctx context.Context, emit func([]*entity.TypingIndicator) error) error {
		return f.typing.Watch(ctx, sellerID, conv.ID, emit)
	})
	waitFor(t, snapshots, func(records []*entity.TypingIndicator) bool { return len(records) == 0 })

	indicator, err := f.typing.SetTyping(ctx, buyerID, "", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", indicator.UserName)
	assert.Equal(t, 150*time.Millisecond, indicator.ExpiresAt.Sub(indicator.UpdatedAt))

	shown := waitFor(t, snapshots, func(records []*entity.TypingIndicator) bool { return len(records) == 1 })
	assert.Equal(t, []string{buyerID}, typingIDs(shown))

	// No clear is issued: the record stays in the store but must stop showing.
	waitFor(t, snapshots, func(records []*entity.TypingIndicator) bool { return len(records) == 0 })

	stream := f.typingRepo.Watch(ctx, conv.ID)
	defer stream.Stop()
	stored, err := stream.Next()
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	assert.NoError(t, stop())
}

func TestTypingWatchExcludesWatcher(t *testing.T) {
	f := newFixture(t, entity.UnreadFlag)
	ctx := context.Background()
	conv := f.conversation(t)
	f.typing.window = time.Minute

	snapshots, stop := watchInto(t, func(ctx context.Context, emit func([]*entity.TypingIndicator) error) error {
		return f.typing.Watch(ctx, buyerID, conv.ID, emit)
	})

	_, err := f.typing.SetTyping(ctx, buyerID, "Asha", conv.ID)
	require.NoError(t, err)
	_, err = f.typing.SetTyping(ctx, sellerID, "Bhim", conv.ID)
	require.NoError(t, err)

	got := waitFor(t, snapshots, func(records []*entity.TypingIndicator) bool { return len(records) == 1 })
	assert.Equal(t, []string{sellerID}, typingIDs(got))
	assert.Equal(t, "Bhim", got[0].UserName)

	require.NoError(t, f.typing.ClearTyping(ctx, sellerID, conv.ID))
	waitFor(t, snapshots, func(records []*entity.TypingIndicator) bool { return len(records) == 0 })

	assert.NoError(t, stop())
}

func TestTypingRequiresParticipant(t *testing.T) {
	f := newFixture(t, entity.UnreadFlag)
	ctx := context.Background()
	conv := f.conversation(t)

	_, err := f.typing.SetTyping(ctx, strangerID, "", conv.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	err = f.typing.ClearTyping(ctx, "", conv.ID)
	assert.True(t, errors.Is(err, errors.CodeAuthenticationRequired))
	err = f.typing.Watch(ctx, strangerID, conv.ID, func([]*entity.TypingIndicator) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestTypingWatchSurfacesFailures(t *testing.T) {
	f := newFixture(t, entity.UnreadFlag)
	conv := f.conversation(t)

	f.store.FailWatches(stderrors.New("listener dropped"))
	err := f.typing.Watch(context.Background(), buyerID, conv.ID, func([]*entity.TypingIndicator) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeTransientStore))
	f.store.FailWatches(nil)

	boom := stderrors.New("client gone")
	err = f.typing.Watch(context.Background(), buyerID, conv.ID, func([]*entity.TypingIndicator) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewTypingUseCaseDefaultsWindow(t *testing.T) {
	uc := NewTypingUseCase(nil, nil, nil, 0)
	assert.Equal(t, DefaultTypingWindow, uc.window)
}
