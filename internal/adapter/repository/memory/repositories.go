package memory

import (
	"context"
	"sort"
	"time"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

type userRepository struct{ s *Store }

func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := *user
	r.s.users[user.ID] = &u
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	out := *u
	return &out, nil
}

type productRepository struct{ s *Store }

func NewProductRepository(s *Store) repository.ProductRepository {
	return &productRepository{s: s}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := *product
	r.s.products[product.ID] = &p
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	out := *p
	return &out, nil
}

type conversationRepository struct{ s *Store }

func NewConversationRepository(s *Store) repository.ConversationRepository {
	return &conversationRepository{s: s}
}

func (r *conversationRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.conversations[conv.ID]; ok {
		return cloneConversation(existing), false, nil
	}
	r.s.conversations[conv.ID] = cloneConversation(conv)
	r.s.notifyLocked()
	return cloneConversation(conv), true, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(c), nil
}

func (r *conversationRepository) listLocked(userID string) []*entity.Conversation {
	var out []*entity.Conversation
	for _, c := range r.s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.listLocked(userID)
	return paginate(all, limit, offset), int64(len(all)), nil
}

func (r *conversationRepository) WatchByParticipant(ctx context.Context, userID string) repository.Stream[[]*entity.Conversation] {
	return newStream(ctx, r.s, func() []*entity.Conversation {
		return r.listLocked(userID)
	})
}

func (r *conversationRepository) SetFlag(ctx context.Context, id string, flag repository.ConversationFlag, value bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	switch flag {
	case repository.FlagArchived:
		c.Archived = value
	case repository.FlagMuted:
		c.Muted = value
	}
	r.s.notifyLocked()
	return nil
}

type messageRepository struct{ s *Store }

func NewMessageRepository(s *Store) repository.MessageRepository {
	return &messageRepository{s: s}
}

func (r *messageRepository) Append(ctx context.Context, msg *entity.Message, mode entity.UnreadMode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	conv, ok := r.s.conversations[msg.ConversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if !conv.HasParticipant(msg.SenderID) || !conv.HasParticipant(msg.ReceiverID) {
		return errors.NotFound("Conversation", nil)
	}

	msgs := r.s.messages[msg.ConversationID]
	if msgs == nil {
		msgs = make(map[string]*entity.Message)
		r.s.messages[msg.ConversationID] = msgs
	}
	msgs[msg.ID] = cloneMessage(msg)

	conv.LastMessage = entity.PreviewOf(msg)
	conv.LastMessageAt = msg.Timestamp
	conv.UpdatedAt = msg.Timestamp
	if conv.UnreadCount == nil {
		conv.UnreadCount = make(map[string]int)
	}
	conv.UnreadCount[msg.ReceiverID] = mode.Bump(conv.UnreadCount[msg.ReceiverID])

	r.s.notifyLocked()
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return cloneMessage(m), nil
}

func (r *messageRepository) listLocked(conversationID string) []*entity.Message {
	out := make([]*entity.Message, 0, len(r.s.messages[conversationID]))
	for _, m := range r.s.messages[conversationID] {
		out = append(out, cloneMessage(m))
	}
	entity.SortMessages(out)
	return out
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.listLocked(conversationID)
	return paginate(all, limit, offset), int64(len(all)), nil
}

func (r *messageRepository) WatchByConversation(ctx context.Context, conversationID string) repository.Stream[[]*entity.Message] {
	return newStream(ctx, r.s, func() []*entity.Message {
		return r.listLocked(conversationID)
	})
}

func (r *messageRepository) Mutate(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) (bool, error)) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	working := cloneMessage(stored)
	changed, err := fn(working)
	if err != nil {
		return nil, err
	}
	if changed {
		r.s.messages[conversationID][messageID] = cloneMessage(working)
		r.s.notifyLocked()
	}
	return working, nil
}

func (r *messageRepository) Delete(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.messages[conversationID][messageID]
	if !ok {
		return errors.NotFound("Message", nil)
	}
	if err := fn(cloneMessage(stored)); err != nil {
		return err
	}
	delete(r.s.messages[conversationID], messageID)
	if conv, ok := r.s.conversations[conversationID]; ok && !stored.Read {
		othersUnread := false
		for _, m := range r.s.messages[conversationID] {
			if m.ReceiverID == stored.ReceiverID && !m.Read {
				othersUnread = true
				break
			}
		}
		if conv.UnreadCount == nil {
			conv.UnreadCount = make(map[string]int)
		}
		conv.UnreadCount[stored.ReceiverID] = entity.UnreadAfterDelete(conv.UnreadCount[stored.ReceiverID], othersUnread)
	}
	r.s.notifyLocked()
	return nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	conv, ok := r.s.conversations[conversationID]
	if !ok {
		return 0, errors.NotFound("Conversation", nil)
	}
	updated := 0
	for _, m := range r.s.messages[conversationID] {
		if m.ReceiverID == userID && !m.Read {
			m.Read = true
			readAt := at
			m.ReadAt = &readAt
			updated++
		}
	}
	if conv.UnreadCount == nil {
		conv.UnreadCount = make(map[string]int)
	}
	conv.UnreadCount[userID] = 0
	r.s.notifyLocked()
	return updated, nil
}

type typingRepository struct{ s *Store }

func NewTypingRepository(s *Store) repository.TypingRepository {
	return &typingRepository{s: s}
}

func (r *typingRepository) Upsert(ctx context.Context, indicator *entity.TypingIndicator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byUser := r.s.typing[indicator.ConversationID]
	if byUser == nil {
		byUser = make(map[string]*entity.TypingIndicator)
		r.s.typing[indicator.ConversationID] = byUser
	}
	t := *indicator
	byUser[indicator.UserID] = &t
	r.s.notifyLocked()
	return nil
}

func (r *typingRepository) Delete(ctx context.Context, conversationID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.typing[conversationID][userID]; !ok {
		return nil
	}
	delete(r.s.typing[conversationID], userID)
	r.s.notifyLocked()
	return nil
}

func (r *typingRepository) Watch(ctx context.Context, conversationID string) repository.Stream[[]*entity.TypingIndicator] {
	return newStream(ctx, r.s, func() []*entity.TypingIndicator {
		out := make([]*entity.TypingIndicator, 0, len(r.s.typing[conversationID]))
		for _, t := range r.s.typing[conversationID] {
			c := *t
			out = append(out, &c)
		}
		return out
	})
}
