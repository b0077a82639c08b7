package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freshkart/internal/adapter/repository/memory"
	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/internal/infrastructure/ratelimit"
)

const (
	buyerID    = "buyer-a"
	sellerID   = "seller-b"
	strangerID = "stranger-c"
	productID  = "Tomatoes-123"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now advances by a millisecond per call so consecutive writes order
// deterministically.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	store      *memory.Store
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	typingRepo repository.TypingRepository
	conv       *ConversationUseCase
	msg        *MessageUseCase
	typing     *TypingUseCase
	clock      *fakeClock
}

func newFixture(t *testing.T, mode entity.UnreadMode) *fixture {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	products := memory.NewProductRepository(store)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &entity.User{ID: buyerID, Name: "Asha", Role: entity.RoleBuyer}))
	require.NoError(t, users.Create(ctx, &entity.User{ID: sellerID, Name: "Bhim Farms", Role: entity.RoleSeller}))
	require.NoError(t, users.Create(ctx, &entity.User{ID: strangerID, Name: "Chetan", Role: entity.RoleBuyer}))
	require.NoError(t, products.Create(ctx, &entity.Product{ID: productID, Name: "Tomatoes", SellerID: sellerID}))

	f := &fixture{
		store:      store,
		convRepo:   memory.NewConversationRepository(store),
		msgRepo:    memory.NewMessageRepository(store),
		typingRepo: memory.NewTypingRepository(store),
		clock:      &fakeClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)},
	}
	f.conv = NewConversationUseCase(f.convRepo, users, products, ratelimit.Unlimited())
	f.conv.now = f.clock.Now
	f.msg = NewMessageUseCase(f.convRepo, f.msgRepo, f.typingRepo, products, ratelimit.Unlimited(), mode)
	f.msg.now = f.clock.Now
	f.typing = NewTypingUseCase(f.convRepo, f.typingRepo, ratelimit.Unlimited(), 150*time.Millisecond)
	return f
}

func (f *fixture) conversation(t *testing.T) *entity.Conversation {
	t.Helper()
	conv, _, err := f.conv.CreateOrGet(context.Background(), buyerID, sellerID, productID)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, from, convID, content string) *entity.Message {
	t.Helper()
	msg, err := f.msg.Send(context.Background(), from, SendMessageInput{ConversationID: convID, Content: content})
	require.NoError(t, err)
	return msg
}

// watchInto runs a Watch call in the background, forwarding snapshots to
// the returned channel. stop cancels it and returns Watch's result.
func watchInto[T any](t *testing.T, watch func(ctx context.Context, emit func(T) error) error) (<-chan T, func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	snapshots := make(chan T, 64)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, func(v T) error {
			select {
			case snapshots <- v:
			case <-ctx.Done():
			}
			return nil
		})
	}()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not return after cancel")
			return nil
		}
	}
	return snapshots, stop
}

func waitFor[T any](t *testing.T, ch <-chan T, cond func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatal("condition not reached before deadline")
			var zero T
			return zero
		}
	}
}
