package usecase

import (
	"context"
	"strings"
	"time"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/internal/infrastructure/metrics"
	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

type MessageUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	typingRepo  repository.TypingRepository
	productRepo repository.ProductRepository
	attachments AttachmentVerifier
	rateLimiter *ratelimit.RateLimiter
	unreadMode  entity.UnreadMode
	now         func() time.Time
}

func NewMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	typingRepo repository.TypingRepository,
	productRepo repository.ProductRepository,
	rateLimiter *ratelimit.RateLimiter,
	unreadMode entity.UnreadMode,
) *MessageUseCase {
	return &MessageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		typingRepo:  typingRepo,
		productRepo: productRepo,
		rateLimiter: rateLimiter,
		unreadMode:  unreadMode,
		now:         time.Now,
	}
}

// WithAttachmentVerifier makes Send check image and file attachments
// against v.
func (uc *MessageUseCase) WithAttachmentVerifier(v AttachmentVerifier) *MessageUseCase {
	uc.attachments = v
	return uc
}

type SendMessageInput struct {
	ConversationID string
	ReceiverID     string
	Content        string
	Kind           string
	Attachment     string
	ReplyTo        string
}

func (uc *MessageUseCase) Send(ctx context.Context, actorID string, input SendMessageInput) (*entity.Message, error) {
	msg, err := uc.send(ctx, actorID, input)
	if err != nil {
		metrics.RecordSendFailure(errors.CodeOf(err))
		return nil, err
	}
	metrics.RecordSend(msg.Kind)

	if err := uc.typingRepo.Delete(ctx, msg.ConversationID, actorID); err != nil {
		logger.Warn("Failed to clear typing indicator of %s in %s: %v", actorID, msg.ConversationID, err)
	}
	return msg, nil
}

func (uc *MessageUseCase) send(ctx context.Context, actorID string, input SendMessageInput) (*entity.Message, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	if input.Kind == "" {
		input.Kind = entity.KindText
	}
	if reason := entity.ValidateContent(input.Kind, input.Content, input.Attachment); reason != "" {
		return nil, errors.Validation(reason)
	}

	conv, err := visibleConversation(ctx, uc.convRepo, actorID, input.ConversationID)
	if err != nil {
		return nil, err
	}
	receiverID := conv.Other(actorID)
	if input.ReceiverID != "" && input.ReceiverID != receiverID {
		return nil, errors.Validation("Receiver must be the other participant")
	}

	if err := allow(uc.rateLimiter, actorID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	if input.ReplyTo != "" {
		if _, err := uc.msgRepo.GetByID(ctx, conv.ID, input.ReplyTo); err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return nil, errors.Validation("Replied message does not exist")
			}
			return nil, err
		}
	}
	if err := uc.checkAttachment(ctx, input.Kind, input.Attachment); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	msg := &entity.Message{
		ID:             entity.NewMessageID(now),
		ConversationID: conv.ID,
		SenderID:       actorID,
		SenderName:     conv.NameOf(actorID),
		SenderRole:     conv.RoleOf(actorID),
		ReceiverID:     receiverID,
		ReceiverName:   conv.NameOf(receiverID),
		Content:        input.Content,
		Kind:           input.Kind,
		Attachment:     input.Attachment,
		ReplyTo:        input.ReplyTo,
		Timestamp:      now,
		Delivered:      true,
		Reactions:      []entity.Reaction{},
	}

	if err := uc.msgRepo.Append(ctx, msg, uc.unreadMode); err != nil {
		return nil, err
	}
	return msg, nil
}

func (uc *MessageUseCase) checkAttachment(ctx context.Context, kind, attachment string) error {
	switch kind {
	case entity.KindProduct:
		if _, err := uc.productRepo.GetByID(ctx, attachment); err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return errors.Validation("Attachment must reference an existing product")
			}
			return err
		}
	case entity.KindImage, entity.KindFile:
		if uc.attachments == nil {
			return nil
		}
		ok, err := uc.attachments.Exists(ctx, attachment)
		if err != nil {
			return errors.Transient("Failed to verify attachment", err)
		}
		if !ok {
			return errors.Validation("Attachment was not uploaded")
		}
	}
	return nil
}

// Edit replaces the content of the actor's own message. The original
// timestamp is kept.
func (uc *MessageUseCase) Edit(ctx context.Context, actorID, conversationID, messageID, content string) (*entity.Message, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	editedAt := uc.now().UTC()
	return uc.msgRepo.Mutate(ctx, conversationID, messageID, func(m *entity.Message) (bool, error) {
		if m.SenderID != actorID {
			return false, errors.Forbidden("Only the sender can edit a message", nil)
		}
		if m.Kind == entity.KindText && strings.TrimSpace(content) == "" {
			return false, errors.Validation("content is required for text messages")
		}
		m.Content = content
		m.Edited = true
		m.EditedAt = &editedAt
		return true, nil
	})
}

// Delete removes the actor's own message permanently.
func (uc *MessageUseCase) Delete(ctx context.Context, actorID, conversationID, messageID string) error {
	if actorID == "" {
		return errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return err
	}

	return uc.msgRepo.Delete(ctx, conversationID, messageID, func(m *entity.Message) error {
		if m.SenderID != actorID {
			return errors.Forbidden("Only the sender can delete a message", nil)
		}
		return nil
	})
}

// React adds the actor's emoji to a message. Reacting twice with the same
// emoji leaves a single reaction.
func (uc *MessageUseCase) React(ctx context.Context, actorID, conversationID, messageID, emoji string) (*entity.Message, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	if strings.TrimSpace(emoji) == "" {
		return nil, errors.Validation("Emoji is required")
	}
	conv, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := allow(uc.rateLimiter, actorID, ratelimit.ActionReact); err != nil {
		return nil, err
	}

	reaction := entity.Reaction{
		UserID:    actorID,
		UserName:  conv.NameOf(actorID),
		Emoji:     emoji,
		Timestamp: uc.now().UTC(),
	}
	return uc.msgRepo.Mutate(ctx, conversationID, messageID, func(m *entity.Message) (bool, error) {
		return m.AddReaction(reaction), nil
	})
}

func (uc *MessageUseCase) Unreact(ctx context.Context, actorID, conversationID, messageID, emoji string) (*entity.Message, error) {
	if actorID == "" {
		return nil, errors.AuthenticationRequired()
	}
	if strings.TrimSpace(emoji) == "" {
		return nil, errors.Validation("Emoji is required")
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return nil, err
	}

	return uc.msgRepo.Mutate(ctx, conversationID, messageID, func(m *entity.Message) (bool, error) {
		return m.RemoveReaction(actorID, emoji), nil
	})
}

// MarkRead flags every message addressed to the actor as read and resets
// the actor's unread counter. It returns the number of messages updated.
func (uc *MessageUseCase) MarkRead(ctx context.Context, actorID, conversationID string) (int, error) {
	if actorID == "" {
		return 0, errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return 0, err
	}
	return uc.msgRepo.MarkRead(ctx, conversationID, actorID, uc.now().UTC())
}

func (uc *MessageUseCase) List(ctx context.Context, actorID, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	if actorID == "" {
		return nil, 0, errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return nil, 0, err
	}
	return uc.msgRepo.ListByConversation(ctx, conversationID, limit, offset)
}

// Watch emits the full ordered message list of a conversation on every
// change until ctx is done or the subscription fails.
func (uc *MessageUseCase) Watch(ctx context.Context, actorID, conversationID string, emit func([]*entity.Message) error) error {
	if actorID == "" {
		return errors.AuthenticationRequired()
	}
	if _, err := visibleConversation(ctx, uc.convRepo, actorID, conversationID); err != nil {
		return err
	}
	stream := uc.msgRepo.WatchByConversation(ctx, conversationID)
	return pump(ctx, stream, "Message", emit)
}
