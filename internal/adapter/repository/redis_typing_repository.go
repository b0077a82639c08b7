package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

const typingPrefix = "typing"

// redisTypingRepository stores each indicator under its own key with a
// native TTL, so Redis expires records of writers that disconnected. A
// per-conversation set indexes the live keys and a pub/sub channel
// announces changes.
type redisTypingRepository struct {
	cli *redis.Client
}

func NewRedisTypingRepository(cli *redis.Client) repository.TypingRepository {
	return &redisTypingRepository{
		cli: cli,
	}
}

func typingRecordKey(conversationID, userID string) string {
	return fmt.Sprintf("%s:%s:user:%s", typingPrefix, conversationID, userID)
}

func typingMembersKey(conversationID string) string {
	return fmt.Sprintf("%s:%s:members", typingPrefix, conversationID)
}

func typingChannel(conversationID string) string {
	return fmt.Sprintf("%s:%s:events", typingPrefix, conversationID)
}

func (r *redisTypingRepository) Upsert(ctx context.Context, indicator *entity.TypingIndicator) error {
	data, err := json.Marshal(indicator)
	if err != nil {
		return errors.Internal("Failed to encode typing indicator", err)
	}
	ttl := indicator.ExpiresAt.Sub(indicator.UpdatedAt)
	if ttl <= 0 {
		return r.Delete(ctx, indicator.ConversationID, indicator.UserID)
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := typingMembersKey(indicator.ConversationID)
		pipe.Set(ctx, typingRecordKey(indicator.ConversationID, indicator.UserID), data, ttl)
		pipe.SAdd(ctx, members, indicator.UserID)
		pipe.Expire(ctx, members, ttl)
		pipe.Publish(ctx, typingChannel(indicator.ConversationID), indicator.UserID)
		return nil
	})
	if err != nil {
		return errors.Transient("Failed to set typing indicator", err)
	}
	return nil
}

func (r *redisTypingRepository) Delete(ctx context.Context, conversationID, userID string) error {
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, typingRecordKey(conversationID, userID))
		pipe.SRem(ctx, typingMembersKey(conversationID), userID)
		pipe.Publish(ctx, typingChannel(conversationID), userID)
		return nil
	})
	if err != nil {
		return errors.Transient("Failed to clear typing indicator", err)
	}
	return nil
}

func (r *redisTypingRepository) Watch(ctx context.Context, conversationID string) repository.Stream[[]*entity.TypingIndicator] {
	pubsub := r.cli.Subscribe(ctx, typingChannel(conversationID))
	return &redisTypingStream{
		ctx:            ctx,
		repo:           r,
		conversationID: conversationID,
		pubsub:         pubsub,
	}
}

// load reads the live indicators of a conversation and prunes index
// entries whose record already expired.
func (r *redisTypingRepository) load(ctx context.Context, conversationID string) ([]*entity.TypingIndicator, error) {
	members := typingMembersKey(conversationID)
	userIDs, err := r.cli.SMembers(ctx, members).Result()
	if err != nil {
		return nil, errors.Transient("Failed to list typing indicators", err)
	}
	if len(userIDs) == 0 {
		return []*entity.TypingIndicator{}, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = typingRecordKey(conversationID, id)
	}
	vals, err := r.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Transient("Failed to read typing indicators", err)
	}

	out := make([]*entity.TypingIndicator, 0, len(vals))
	var stale []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, userIDs[i])
			continue
		}
		var t entity.TypingIndicator
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			logger.Warn("Dropping malformed typing record %s: %v", keys[i], err)
			stale = append(stale, userIDs[i])
			continue
		}
		out = append(out, &t)
	}
	if len(stale) > 0 {
		if err := r.cli.SRem(ctx, members, stale...).Err(); err != nil {
			logger.Debug("Failed to prune typing index %s: %v", members, err)
		}
	}
	return out, nil
}

type redisTypingStream struct {
	ctx            context.Context
	repo           *redisTypingRepository
	conversationID string
	pubsub         *redis.PubSub
	events         <-chan *redis.Message
	started        bool
}

func (s *redisTypingStream) Next() ([]*entity.TypingIndicator, error) {
	if !s.started {
		s.started = true
		// Wait for the subscription so no change between load and
		// subscribe is missed.
		if _, err := s.pubsub.Receive(s.ctx); err != nil {
			return nil, errors.Transient("Failed to subscribe to typing changes", err)
		}
		s.events = s.pubsub.Channel()
		return s.repo.load(s.ctx, s.conversationID)
	}
	select {
	case _, ok := <-s.events:
		if !ok {
			return nil, errors.Transient("Typing channel closed", nil)
		}
		return s.repo.load(s.ctx, s.conversationID)
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *redisTypingStream) Stop() {
	if err := s.pubsub.Close(); err != nil {
		logger.Debug("Closing typing subscription for %s: %v", s.conversationID, err)
	}
}
