// Package memory implements the repository ports on process memory. It
// backs tests and STORE_BACKEND=memory local runs; writes are serialized by
// one mutex, which gives every operation the atomicity the Firestore
// adapters get from transactions.
package memory

import (
	"context"
	stderrors "errors"
	"sync"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
)

// ErrStopped is returned by Next after Stop.
var ErrStopped = stderrors.New("memory: stream stopped")

type Store struct {
	mu            sync.Mutex
	users         map[string]*entity.User
	products      map[string]*entity.Product
	conversations map[string]*entity.Conversation
	messages      map[string]map[string]*entity.Message
	typing        map[string]map[string]*entity.TypingIndicator
	changed       chan struct{}
	watchErr      error
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*entity.User),
		products:      make(map[string]*entity.Product),
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string]map[string]*entity.Message),
		typing:        make(map[string]map[string]*entity.TypingIndicator),
		changed:       make(chan struct{}),
	}
}

// notifyLocked wakes every open stream. Callers hold s.mu.
func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// FailWatches makes every open and future stream fail with err, simulating
// a dropped listener. A nil err restores normal behavior.
func (s *Store) FailWatches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchErr = err
	s.notifyLocked()
}

type stream[T any] struct {
	ctx      context.Context
	store    *Store
	snapshot func() T
	started  bool
	wait     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newStream[T any](ctx context.Context, s *Store, snapshot func() T) repository.Stream[T] {
	return &stream[T]{
		ctx:      ctx,
		store:    s,
		snapshot: snapshot,
		stopped:  make(chan struct{}),
	}
}

func (st *stream[T]) Next() (T, error) {
	var zero T

	st.store.mu.Lock()
	if !st.started {
		st.started = true
		defer st.store.mu.Unlock()
		if st.store.watchErr != nil {
			return zero, st.store.watchErr
		}
		st.wait = st.store.changed
		return st.snapshot(), nil
	}
	wait := st.wait
	st.store.mu.Unlock()

	select {
	case <-wait:
	case <-st.ctx.Done():
		return zero, st.ctx.Err()
	case <-st.stopped:
		return zero, ErrStopped
	}

	st.store.mu.Lock()
	defer st.store.mu.Unlock()
	if st.store.watchErr != nil {
		return zero, st.store.watchErr
	}
	st.wait = st.store.changed
	return st.snapshot(), nil
}

func (st *stream[T]) Stop() {
	st.stopOnce.Do(func() { close(st.stopped) })
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		out.UnreadCount[k] = v
	}
	return &out
}

func cloneMessage(m *entity.Message) *entity.Message {
	out := *m
	out.Reactions = append([]entity.Reaction{}, m.Reactions...)
	if m.ReadAt != nil {
		t := *m.ReadAt
		out.ReadAt = &t
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	return &out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
