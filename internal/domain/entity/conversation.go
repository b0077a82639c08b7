package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// conversationNamespace seeds the name-based conversation ids. Changing it
// orphans every existing conversation.
var conversationNamespace = uuid.MustParse("6f1c8f4e-2b7a-4d3e-9c51-8a0d2f6b9e17")

type Conversation struct {
	ID            string         `json:"id" firestore:"id"`
	BuyerID       string         `json:"buyer_id" firestore:"buyerId"`
	BuyerName     string         `json:"buyer_name" firestore:"buyerName"`
	SellerID      string         `json:"seller_id" firestore:"sellerId"`
	SellerName    string         `json:"seller_name" firestore:"sellerName"`
	ProductID     string         `json:"product_id,omitempty" firestore:"productId"`
	Participants  []string       `json:"participants" firestore:"participants"`
	LastMessage   string         `json:"last_message" firestore:"lastMessage"`
	LastMessageAt time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int `json:"unread_count" firestore:"unreadCount"`
	Archived      bool           `json:"archived" firestore:"archived"`
	Muted         bool           `json:"muted" firestore:"muted"`
	CreatedAt     time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// ConversationID derives the id of the conversation between a and b scoped
// to productID. The pair is unordered, so both participants compute the
// same id.
func ConversationID(a, b, productID string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	key := ids[0] + "\x00" + ids[1] + "\x00" + productID
	return uuid.NewSHA1(conversationNamespace, []byte(key)).String()
}

// NewConversation builds a fresh record with zeroed counters and empty
// preview fields.
func NewConversation(buyer, seller *User, productID string, now time.Time) *Conversation {
	return &Conversation{
		ID:           ConversationID(buyer.ID, seller.ID, productID),
		BuyerID:      buyer.ID,
		BuyerName:    buyer.Name,
		SellerID:     seller.ID,
		SellerName:   seller.Name,
		ProductID:    productID,
		Participants: []string{buyer.ID, seller.ID},
		UnreadCount: map[string]int{
			buyer.ID:  0,
			seller.ID: 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// RoleOf reports whether userID is the buyer or the seller.
func (c *Conversation) RoleOf(userID string) string {
	switch userID {
	case c.BuyerID:
		return RoleBuyer
	case c.SellerID:
		return RoleSeller
	}
	return ""
}

// NameOf returns the display name recorded for a participant.
func (c *Conversation) NameOf(userID string) string {
	switch userID {
	case c.BuyerID:
		return c.BuyerName
	case c.SellerID:
		return c.SellerName
	}
	return ""
}

// HasUnread reads the counter as a flag; the value itself is not an exact
// count in flag mode.
func (c *Conversation) HasUnread(userID string) bool {
	return c.UnreadCount[userID] > 0
}

// UnreadMode selects how a send bumps the receiver's counter.
type UnreadMode string

const (
	// UnreadFlag sets the receiver's counter to 1 on every send.
	UnreadFlag UnreadMode = "flag"
	// UnreadCount atomically increments the receiver's counter.
	UnreadCount UnreadMode = "count"
)

// Bump applies the mode to a current counter value.
func (m UnreadMode) Bump(current int) int {
	if m == UnreadCount {
		return current + 1
	}
	return 1
}

// UnreadAfterDelete is the receiver's counter once one of their unread
// messages is deleted. It drops to zero when no unread message remains and
// otherwise stays positive.
func UnreadAfterDelete(current int, othersUnread bool) int {
	if !othersUnread {
		return 0
	}
	if current > 1 {
		return current - 1
	}
	return 1
}

// PreviewOf returns the last-message text shown in conversation lists.
func PreviewOf(m *Message) string {
	switch m.Kind {
	case KindImage:
		return "📷 Photo"
	case KindFile:
		return "📎 File"
	case KindProduct:
		return "🛒 Product"
	}
	const max = 120
	runes := []rune(m.Content)
	if len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return m.Content
}

// FilterArchived drops archived conversations unless includeArchived is set.
func FilterArchived(convs []*Conversation, includeArchived bool) []*Conversation {
	if includeArchived {
		return convs
	}
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		if !c.Archived {
			out = append(out, c)
		}
	}
	return out
}
