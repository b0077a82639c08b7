package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"freshkart/internal/domain/entity"
	"freshkart/internal/domain/repository"
	"freshkart/pkg/errors"
)

// markReadBatch stays below Firestore's 500 writes per transaction, leaving
// room for the counter reset.
const markReadBatch = 400

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) conversation(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversation(conversationID).Collection(messagesCollection)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	msg.ID = doc.Ref.ID
	if msg.Reactions == nil {
		msg.Reactions = []entity.Reaction{}
	}
	return &msg, nil
}

// Append inserts the message and updates the conversation in one
// transaction. Reading the conversation inside the transaction serializes
// Append against MarkRead on the same conversation.
func (r *firestoreMessageRepository) Append(ctx context.Context, msg *entity.Message, mode entity.UnreadMode) error {
	convRef := r.conversation(msg.ConversationID)
	msgRef := r.messages(msg.ConversationID).Doc(msg.ID)

	var bump interface{} = 1
	if mode == entity.UnreadCount {
		bump = firestore.Increment(1)
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		conv, err := decodeConversation(snap)
		if err != nil {
			return err
		}
		if !conv.HasParticipant(msg.SenderID) || !conv.HasParticipant(msg.ReceiverID) {
			return errors.NotFound("Conversation", nil)
		}

		if err := tx.Create(msgRef, msg); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: entity.PreviewOf(msg)},
			{Path: "lastMessageAt", Value: msg.Timestamp},
			{Path: "updatedAt", Value: msg.Timestamp},
			{FieldPath: firestore.FieldPath{"unreadCount", msg.ReceiverID}, Value: bump},
		})
	})
	return storeError("Conversation", "send message", err)
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		return nil, storeError("Message", "get message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) ordered(conversationID string) firestore.Query {
	return r.messages(conversationID).
		OrderBy("timestamp", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc)
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.ordered(conversationID)

	total, err := countQuery(ctx, query)
	if err != nil {
		return nil, 0, storeError("Message", "count messages", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError("Message", "list messages", err)
	}

	msgs := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, total, nil
}

func (r *firestoreMessageRepository) WatchByConversation(ctx context.Context, conversationID string) repository.Stream[[]*entity.Message] {
	return newSnapshotStream(ctx, r.ordered(conversationID), "Message", decodeMessage)
}

func (r *firestoreMessageRepository) Mutate(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) (bool, error)) (*entity.Message, error) {
	ref := r.messages(conversationID).Doc(messageID)

	var result *entity.Message
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		msg, err := decodeMessage(snap)
		if err != nil {
			return err
		}
		changed, err := fn(msg)
		if err != nil {
			return err
		}
		result = msg
		if !changed {
			return nil
		}
		return tx.Set(ref, msg)
	})
	if err != nil {
		return nil, storeError("Message", "update message", err)
	}
	return result, nil
}

// Delete removes the message. Deleting an unread message recomputes the
// receiver's counter so it stays non-zero only while unread messages remain.
func (r *firestoreMessageRepository) Delete(ctx context.Context, conversationID, messageID string, fn func(*entity.Message) error) error {
	convRef := r.conversation(conversationID)
	ref := r.messages(conversationID).Doc(messageID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		msg, err := decodeMessage(snap)
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
		if msg.Read {
			return tx.Delete(ref)
		}

		convSnap, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		conv, err := decodeConversation(convSnap)
		if err != nil {
			return err
		}
		// Limit 2: the message being deleted is one of the results.
		docs, err := tx.Documents(r.messages(conversationID).
			Where("receiverId", "==", msg.ReceiverID).
			Where("read", "==", false).
			Limit(2)).GetAll()
		if err != nil {
			return err
		}
		othersUnread := false
		for _, doc := range docs {
			if doc.Ref.ID != messageID {
				othersUnread = true
			}
		}

		if err := tx.Delete(ref); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{FieldPath: firestore.FieldPath{"unreadCount", msg.ReceiverID}, Value: entity.UnreadAfterDelete(conv.UnreadCount[msg.ReceiverID], othersUnread)},
		})
	})
	return storeError("Message", "delete message", err)
}

// MarkRead pages through unread messages addressed to userID. The counter
// is zeroed by the transaction that sees the final page, so a message sent
// concurrently is either marked read with it or bumps the counter after.
func (r *firestoreMessageRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	convRef := r.conversation(conversationID)
	unread := r.messages(conversationID).
		Where("receiverId", "==", userID).
		Where("read", "==", false).
		Limit(markReadBatch)

	total := 0
	for {
		var (
			updated int
			done    bool
		)
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			updated, done = 0, false

			snap, err := tx.Get(convRef)
			if err != nil {
				return err
			}
			conv, err := decodeConversation(snap)
			if err != nil {
				return err
			}
			if !conv.HasParticipant(userID) {
				return errors.NotFound("Conversation", nil)
			}

			docs, err := tx.Documents(unread).GetAll()
			if err != nil {
				return err
			}
			for _, doc := range docs {
				if err := tx.Update(doc.Ref, []firestore.Update{
					{Path: "read", Value: true},
					{Path: "readAt", Value: at},
				}); err != nil {
					return err
				}
			}
			updated = len(docs)

			if updated < markReadBatch {
				done = true
				return tx.Update(convRef, []firestore.Update{
					{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
				})
			}
			return nil
		})
		if err != nil {
			return total, storeError("Conversation", "mark conversation read", err)
		}
		total += updated
		if done {
			return total, nil
		}
	}
}
