package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsOrderIndependentAndProductScoped(t *testing.T) {
	ab := ConversationID("buyer-a", "seller-b", "Tomatoes-123")
	ba := ConversationID("seller-b", "buyer-a", "Tomatoes-123")
	assert.Equal(t, ab, ba)

	assert.NotEqual(t, ab, ConversationID("buyer-a", "seller-b", ""))
	assert.NotEqual(t, ab, ConversationID("buyer-a", "seller-c", "Tomatoes-123"))
	// The separator keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t, ConversationID("ab", "c", ""), ConversationID("a", "bc", ""))
}

func TestNewConversation(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	conv := NewConversation(&User{ID: "A", Name: "Asha"}, &User{ID: "B", Name: "Bilal"}, "Tomatoes-123", now)

	assert.Equal(t, []string{"A", "B"}, conv.Participants)
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, conv.UnreadCount)
	assert.Empty(t, conv.LastMessage)
	assert.True(t, conv.LastMessageAt.IsZero())
	assert.Equal(t, "B", conv.Other("A"))
	assert.Equal(t, RoleSeller, conv.RoleOf("B"))
	assert.Equal(t, "Asha", conv.NameOf("A"))
	assert.False(t, conv.HasParticipant("C"))
}

func TestConversationJSONAlwaysCarriesLastMessageAt(t *testing.T) {
	conv := NewConversation(&User{ID: "A"}, &User{ID: "B"}, "", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	raw, err := json.Marshal(conv)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "0001-01-01T00:00:00Z", fields["last_message_at"])
}

func TestUnreadModeBump(t *testing.T) {
	assert.Equal(t, 1, UnreadFlag.Bump(0))
	assert.Equal(t, 1, UnreadFlag.Bump(4))
	assert.Equal(t, 5, UnreadCount.Bump(4))
}

func TestUnreadAfterDelete(t *testing.T) {
	assert.Equal(t, 0, UnreadAfterDelete(1, false))
	assert.Equal(t, 0, UnreadAfterDelete(4, false))
	assert.Equal(t, 1, UnreadAfterDelete(1, true))
	assert.Equal(t, 3, UnreadAfterDelete(4, true))
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		kind, content, attachment string
		ok                        bool
	}{
		{KindText, "Is this organic?", "", true},
		{KindText, "   ", "", false},
		{KindImage, "", "chat/a.jpg", true},
		{KindImage, "caption", "", false},
		{KindFile, "", "", false},
		{KindProduct, "", "Tomatoes-123", true},
		{"sticker", "hi", "", false},
	}
	for _, tt := range tests {
		reason := ValidateContent(tt.kind, tt.content, tt.attachment)
		assert.Equal(t, tt.ok, reason == "", "kind=%s content=%q attachment=%q: %s", tt.kind, tt.content, tt.attachment, reason)
	}
}

func TestReactionsAreASet(t *testing.T) {
	msg := &Message{}
	r := Reaction{UserID: "A", UserName: "Asha", Emoji: "👍", Timestamp: time.Now()}

	assert.True(t, msg.AddReaction(r))
	r.Timestamp = r.Timestamp.Add(time.Second)
	assert.False(t, msg.AddReaction(r))
	assert.True(t, msg.AddReaction(Reaction{UserID: "A", Emoji: "🍅"}))
	assert.True(t, msg.AddReaction(Reaction{UserID: "B", Emoji: "👍"}))
	require.Len(t, msg.Reactions, 3)

	assert.True(t, msg.RemoveReaction("A", "👍"))
	assert.False(t, msg.RemoveReaction("A", "👍"))
	require.Len(t, msg.Reactions, 2)
	assert.Equal(t, "🍅", msg.Reactions[0].Emoji)
	assert.Equal(t, "B", msg.Reactions[1].UserID)
}

func TestSortMessages(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := []*Message{
		{ID: "03", Timestamp: t0.Add(time.Second)},
		{ID: "02", Timestamp: t0},
		{ID: "01", Timestamp: t0},
	}
	SortMessages(msgs)
	assert.Equal(t, "01", msgs[0].ID)
	assert.Equal(t, "02", msgs[1].ID)
	assert.Equal(t, "03", msgs[2].ID)
}

func TestNewMessageIDSortsByTime(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := NewMessageID(t0)
	second := NewMessageID(t0.Add(time.Millisecond))
	assert.Less(t, first, second)
}

func TestPreviewOf(t *testing.T) {
	assert.Equal(t, "Is this organic?", PreviewOf(&Message{Kind: KindText, Content: "Is this organic?"}))
	assert.Equal(t, "📷 Photo", PreviewOf(&Message{Kind: KindImage, Attachment: "x.jpg"}))

	long := make([]rune, 200)
	for i := range long {
		long[i] = 'a'
	}
	preview := []rune(PreviewOf(&Message{Kind: KindText, Content: string(long)}))
	assert.Len(t, preview, 121)
}

func TestActiveTyping(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*TypingIndicator{
		{UserID: "B", ExpiresAt: now.Add(2 * time.Second)},
		{UserID: "A", ExpiresAt: now.Add(3 * time.Second)},
		{UserID: "C", ExpiresAt: now.Add(time.Second)},
		{UserID: "D", ExpiresAt: now.Add(-time.Second)},
		{UserID: "E", ExpiresAt: now},
	}

	active, next := ActiveTyping(records, "A", now)
	require.Len(t, active, 2)
	assert.Equal(t, "B", active[0].UserID)
	assert.Equal(t, "C", active[1].UserID)
	assert.Equal(t, now.Add(time.Second), next)

	active, next = ActiveTyping(records, "A", now.Add(5*time.Second))
	assert.Empty(t, active)
	assert.True(t, next.IsZero())
}

func TestFilterArchived(t *testing.T) {
	convs := []*Conversation{{ID: "1"}, {ID: "2", Archived: true}}
	assert.Len(t, FilterArchived(convs, false), 1)
	assert.Len(t, FilterArchived(convs, true), 2)
}
