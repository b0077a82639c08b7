package entity

import (
	"crypto/rand"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	KindText    = "text"
	KindImage   = "image"
	KindFile    = "file"
	KindProduct = "product"
)

type Message struct {
	ID             string     `json:"id" firestore:"id"`
	ConversationID string     `json:"conversation_id" firestore:"conversationId"`
	SenderID       string     `json:"sender_id" firestore:"senderId"`
	SenderName     string     `json:"sender_name" firestore:"senderName"`
	SenderRole     string     `json:"sender_role" firestore:"senderRole"`
	ReceiverID     string     `json:"receiver_id" firestore:"receiverId"`
	ReceiverName   string     `json:"receiver_name" firestore:"receiverName"`
	Content        string     `json:"content" firestore:"content"`
	Kind           string     `json:"kind" firestore:"kind"`
	Attachment     string     `json:"attachment,omitempty" firestore:"attachment,omitempty"`
	ReplyTo        string     `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	Timestamp      time.Time  `json:"timestamp" firestore:"timestamp"`
	Read           bool       `json:"read" firestore:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	Delivered      bool       `json:"delivered" firestore:"delivered"`
	Edited         bool       `json:"edited" firestore:"edited"`
	EditedAt       *time.Time `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	Reactions      []Reaction `json:"reactions" firestore:"reactions"`
}

type Reaction struct {
	UserID    string    `json:"user_id" firestore:"userId"`
	UserName  string    `json:"user_name" firestore:"userName"`
	Emoji     string    `json:"emoji" firestore:"emoji"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// NewMessageID returns a ULID, so ids sort in creation order.
func NewMessageID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// ValidKind reports whether kind is one of the supported message kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindText, KindImage, KindFile, KindProduct:
		return true
	}
	return false
}

// ValidateContent checks the content/attachment rules for a message kind.
// It returns a human readable reason, or "" when the payload is acceptable.
func ValidateContent(kind, content, attachment string) string {
	if !ValidKind(kind) {
		return "kind must be one of: text image file product"
	}
	switch kind {
	case KindText:
		if strings.TrimSpace(content) == "" {
			return "content is required for text messages"
		}
	case KindImage, KindFile:
		if attachment == "" {
			return "attachment is required for " + kind + " messages"
		}
	case KindProduct:
		if attachment == "" {
			return "attachment must reference a product"
		}
	}
	return ""
}

// AddReaction adds (userID, emoji) once. It reports whether the list changed.
func (m *Message) AddReaction(r Reaction) bool {
	for _, existing := range m.Reactions {
		if existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			return false
		}
	}
	m.Reactions = append(m.Reactions, r)
	return true
}

// RemoveReaction deletes the (userID, emoji) tuple. It reports whether the
// list changed.
func (m *Message) RemoveReaction(userID, emoji string) bool {
	for i, existing := range m.Reactions {
		if existing.UserID == userID && existing.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}

// SortMessages orders by timestamp, then id, ascending.
func SortMessages(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
