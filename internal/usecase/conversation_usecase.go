package usecase

import (
	"context"
	"fmt"
	"time"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	rateLimiter *ratelimit.RateLimiter,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:    convRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

// CreateOrGet returns the conversation between actor and other about
// productID, creating it on first use. created reports whether this call
// stored the record.
func (uc *ConversationUseCase) CreateOrGet(ctx context.Context, actorID, otherID, productID string) (*entity.Conversation, bool, error) {
	if actorID == "" {
		return nil, false, errors.AuthenticationRequired()
	}
	if otherID == "" {
		return nil, false, errors.Validation("Participant is required")
	}
	if otherID == actorID {
		return nil, false, errors.Validation("Cannot start a conversation with yourself")
	}
	if err := allow(uc.rateLimiter, actorID, ratelimit.ActionCreateConversation); err != nil {
		return nil, false, err
	}

	actor, err := uc.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, false, err
	}
	other, err := uc.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return nil, false, err
	}

	buyer, seller, err := uc.assignRoles(ctx, actor, other, productID)
	if err != nil {
		return nil, false, err
	}

	conv := entity.NewConversation(buyer, seller, productID, uc.now().UTC())
	stored, created, err := uc.convRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.Info("Conversation %s created between %s and %s", stored.ID, buyer.ID, seller.ID)
	}
	return stored, created, nil
}

// assignRoles decides who is the seller. A product fixes it; otherwise
// profile roles decide and the actor defaults to buyer.
func (uc *ConversationUseCase) assignRoles(ctx context.Context, actor, other *entity.User, productID string) (buyer, seller *entity.User, err error) {
	if productID != "" {
		product, err := uc.productRepo.GetByID(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		switch product.SellerID {
		case actor.ID:
			return other, actor, nil
		case other.ID:
			return actor, other, nil
		}
		return nil, nil, errors.Validation("Product is not sold by either participant")
	}

	if actor.Role == entity.RoleSeller && other.Role != entity.RoleSeller {
		return other, actor, nil
	}
	return actor, other, nil
}

// Watch emits the actor's conversation list, newest activity first, every
// time it changes. It blocks until ctx is done or the subscription fails.
func (uc *ConversationUseCase) Watch(ctx context.Context, userID string, includeArchived bool, emit func([]*entity.Conversation) error) error {
	if userID == "" {
		return errors.AuthenticationRequired()
	}
	stream := uc.convRepo.WatchByParticipant(ctx, userID)
	return pump(ctx, stream, "Conversation list", func(convs []*entity.Conversation) error {
		return emit(entity.FilterArchived(convs, includeArchived))
	})
}

func (uc *ConversationUseCase) List(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	if userID == "" {
		return nil, 0, errors.AuthenticationRequired()
	}
	return uc.convRepo.ListByParticipant(ctx, userID, limit, offset)
}

func (uc *ConversationUseCase) Get(ctx context.Context, actorID, conversationID string) (*entity.Conversation, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	return visibleConversation(ctx, uc.convRepo, actorID, conversationID)
}

func (uc *ConversationUseCase) SetArchived(ctx context.Context, actorID, conversationID string, archived bool) error {
	return uc.setFlag(ctx, actorID, conversationID, repository.FlagArchived, archived)
}

func (uc *ConversationUseCase) SetMuted(ctx context.Context, actorID, conversationID string, muted bool) error {
	return uc.setFlag(ctx, actorID, conversationID, repository.FlagMuted, muted)
}

func (uc *ConversationUseCase) setFlag(ctx context.Context, actorID, conversationID string, flag repository.ConversationFlag, value bool) error {
	if actorID == "" {
		return errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return err
	}
	return uc.convRepo.SetFlag(ctx, conversationID, flag, value)
}

// visibleConversation loads a conversation the actor takes part in.
// Conversations of other users are reported as missing.
func visibleConversation(ctx context.Context, repo repository.ConversationRepository, actorID, conversationID string) (*entity.Conversation, error) {
	if conversationID == "" {
		return nil, errors.Validation("Conversation ID is required")
	}
	conv, err := repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv, nil
}

func allow(rl *ratelimit.RateLimiter, userID, action string) error {
	ok, retryAfter := rl.Allow(userID, action)
	if ok {
		return nil
	}
	return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %s", retryAfter.Round(time.Second)))
}
