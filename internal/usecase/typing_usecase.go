package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/pkg/errors"
)

const DefaultTypingWindow = 3 * time.Second

type TypingUseCase struct {
	convRepo    repository.ConversationRepository
	typingRepo  repository.TypingRepository
	rateLimiter *ratelimit.RateLimiter
	window      time.Duration
	now         func() time.Time
}

func NewTypingUseCase(
	convRepo repository.ConversationRepository,
	typingRepo repository.TypingRepository,
	rateLimiter *ratelimit.RateLimiter,
	window time.Duration,
) *TypingUseCase {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &TypingUseCase{
		convRepo:    convRepo,
		typingRepo:  typingRepo,
		rateLimiter: rateLimiter,
		window:      window,
		now:         time.Now,
	}
}

// SetTyping marks the actor as typing for one window. Callers keep the
// indicator alive by calling again before it lapses.
func (uc *TypingUseCase) SetTyping(ctx context.Context, actorID, userName, conversationID string) (*entity.TypingIndicator, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	conv, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := allow(uc.rateLimiter, actorID, ratelimit.ActionTyping); err != nil {
		return nil, err
	}
	if userName == "" {
		userName = conv.NameOf(actorID)
	}

	now := uc.now().UTC()
	indicator := &entity.TypingIndicator{
		ConversationID: conversationID,
		UserID:         actorID,
		UserName:       userName,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(uc.window),
	}
	if err := uc.typingRepo.Upsert(ctx, indicator); err != nil {
		return nil, err
	}
	return indicator, nil
}

func (uc *TypingUseCase) ClearTyping(ctx context.Context, actorID, conversationID string) error {
	if actorID == "" {
		return errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return err
	}
	return uc.typingRepo.Delete(ctx, conversationID, actorID)
}

// Watch emits the users currently typing in a conversation, excluding the
// actor. Besides store changes it re-evaluates when the earliest indicator
// lapses, so a writer that vanished stops showing without any store write.
func (uc *TypingUseCase) Watch(ctx context.Context, actorID, conversationID string, emit func([]*entity.TypingIndicator) error) error {
	if actorID == "" {
		return errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	updates := make(chan []*entity.TypingIndicator)

	g.Go(func() error {
		stream := uc.typingRepo.Watch(gctx, conversationID)
		return pump(gctx, stream, "Typing indicator", func(records []*entity.TypingIndicator) error {
			select {
			case updates <- records:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	g.Go(func() error {
		var (
			records []*entity.TypingIndicator
			timer   *time.Timer
			expiry  <-chan time.Time
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-gctx.Done():
				return nil
			case records = <-updates:
			case <-expiry:
			}

			now := uc.now()
			active, next := entity.ActiveTyping(records, actorID, now)
			if timer != nil {
				timer.Stop()
			}
			expiry = nil
			if !next.IsZero() {
				timer = time.NewTimer(next.Sub(now))
				expiry = timer.C
			}
			if err := emit(active); err != nil {
				return err
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
