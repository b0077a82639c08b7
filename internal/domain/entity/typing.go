package entity

import (
	"sort"
	"time"
)

// TypingIndicator is an ephemeral presence record. Stores may keep it past
// ExpiresAt; readers must treat it as gone from then on.
type TypingIndicator struct {
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	UserID         string    `json:"user_id" firestore:"userId"`
	UserName       string    `json:"user_name" firestore:"userName"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updatedAt"`
	ExpiresAt      time.Time `json:"expires_at" firestore:"expiresAt"`
}

func (t *TypingIndicator) Active(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// ActiveTyping filters records to those still active at now, excluding
// excludeUserID. next is the earliest expiry among the survivors, zero when
// none remain.
func ActiveTyping(records []*TypingIndicator, excludeUserID string, now time.Time) (active []*TypingIndicator, next time.Time) {
	active = make([]*TypingIndicator, 0, len(records))
	for _, r := range records {
		if r.UserID == excludeUserID || !r.Active(now) {
			continue
		}
		active = append(active, r)
		if next.IsZero() || r.ExpiresAt.Before(next) {
			next = r.ExpiresAt
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UserID < active[j].UserID })
	return active, next
}
