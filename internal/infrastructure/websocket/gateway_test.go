package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshkart/internal/adapter/repository/memory"
	"freshkart/internal/domain/entity"
	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/internal/usecase"
	"freshkart/pkg/errors"
)

type gateway struct {
	server  *httptest.Server
	manager *Manager
	store   *memory.Store
	convID  string
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	products := memory.NewProductRepository(store)
	convRepo := memory.NewConversationRepository(store)
	msgRepo := memory.NewMessageRepository(store)
	typingRepo := memory.NewTypingRepository(store)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &entity.User{ID: "buyer-a", Name: "Asha", Role: entity.RoleBuyer}))
	require.NoError(t, users.Create(ctx, &entity.User{ID: "seller-b", Name: "Bhim Farms", Role: entity.RoleSeller}))
	require.NoError(t, users.Create(ctx, &entity.User{ID: "stranger-c", Name: "Chetan", Role: entity.RoleBuyer}))

	convUC := usecase.NewConversationUseCase(convRepo, users, products, ratelimit.Unlimited())
	msgUC := usecase.NewMessageUseCase(convRepo, msgRepo, typingRepo, products, ratelimit.Unlimited(), entity.UnreadFlag)
	typingUC := usecase.NewTypingUseCase(convRepo, typingRepo, ratelimit.Unlimited(), time.Minute)

	conv, _, err := convUC.CreateOrGet(ctx, "buyer-a", "seller-b", "")
	require.NoError(t, err)

	manager := NewManager(NewChatService(convUC, msgUC, typingUC))
	upgrader := NewUpgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(conn, &entity.Identity{UserID: r.URL.Query().Get("uid"), Name: r.URL.Query().Get("name")})
	}))
	t.Cleanup(func() {
		manager.Shutdown()
		server.Close()
	})

	return &gateway{server: server, manager: manager, store: store, convID: conv.ID}
}

func (g *gateway) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func write(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(WSMessage{Type: msgType, Data: data}))
}

// next returns the next frame of msgType, skipping others.
func next(t *testing.T, conn *websocket.Conn, msgType string) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame inbound
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == msgType {
			return frame
		}
	}
}

func snapshotMessages(t *testing.T, frame inbound) []*entity.Message {
	t.Helper()
	var data SnapshotData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	var msgs []*entity.Message
	require.NoError(t, json.Unmarshal(data.Items, &msgs))
	return msgs
}

func TestPingPong(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "buyer-a")

	write(t, conn, MessageTypePing, nil)
	next(t, conn, MessageTypePong)
}

func TestSubscribeAndSendOverSocket(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")
	seller := g.dial(t, "seller-b")

	write(t, seller, MessageTypeSubscribe, SubscribeData{Topic: TopicMessages, ConversationID: g.convID})
	next(t, seller, MessageTypeSubscribed)
	assert.Empty(t, snapshotMessages(t, next(t, seller, MessageTypeSnapshot)))

	write(t, buyer, MessageTypeSendMessage, SendMessageData{TempID: "tmp-1", ConversationID: g.convID, Content: "Is this organic?"})
	sent := next(t, buyer, MessageTypeMessageSent)
	var ack MessageSentData
	require.NoError(t, json.Unmarshal(sent.Data, &ack))
	assert.Equal(t, "tmp-1", ack.TempID)
	assert.Equal(t, "Is this organic?", ack.Message.Content)

	msgs := snapshotMessages(t, next(t, seller, MessageTypeSnapshot))
	require.Len(t, msgs, 1)
	assert.Equal(t, ack.Message.ID, msgs[0].ID)
	assert.True(t, msgs[0].Delivered)
}

func TestSendFailureIsReportedAsSendFailed(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")

	write(t, buyer, MessageTypeSendMessage, SendMessageData{TempID: "tmp-2", ConversationID: g.convID, Content: " "})
	frame := next(t, buyer, MessageTypeSendFailed)
	var data SendFailedData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "tmp-2", data.TempID)
	assert.Equal(t, errors.CodeValidation, data.Code)
}

func TestSubscriptionErrorForForeignConversation(t *testing.T) {
	g := newGateway(t)
	stranger := g.dial(t, "stranger-c")

	write(t, stranger, MessageTypeSubscribe, SubscribeData{Topic: TopicMessages, ConversationID: g.convID})
	frame := next(t, stranger, MessageTypeSubscriptionError)
	var data SubscriptionErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, errors.CodeNotFound, data.Code)
	assert.Equal(t, TopicMessages, data.Topic)
}

func TestStreamFailureIsReportedAsSubscriptionError(t *testing.T) {
	g := newGateway(t)
	seller := g.dial(t, "seller-b")

	write(t, seller, MessageTypeSubscribe, SubscribeData{Topic: TopicMessages, ConversationID: g.convID})
	next(t, seller, MessageTypeSnapshot)
	session := sessionOf(t, g.manager, "seller-b")

	g.store.FailWatches(fmt.Errorf("listener dropped"))

	frame := next(t, seller, MessageTypeSubscriptionError)
	var data SubscriptionErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, TopicMessages, data.Topic)
	assert.Equal(t, errors.CodeTransientStore, data.Code)
	assert.Eventually(t, func() bool { return session.SubscriptionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestIdenticalSnapshotsAreNotPushedTwice(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")
	seller := g.dial(t, "seller-b")

	write(t, seller, MessageTypeSubscribe, SubscribeData{Topic: TopicMessages, ConversationID: g.convID})
	next(t, seller, MessageTypeSnapshot)

	// A typing write wakes the message stream without changing it.
	write(t, buyer, MessageTypeTypingStart, ConversationData{ConversationID: g.convID})
	write(t, buyer, MessageTypeSendMessage, SendMessageData{TempID: "tmp-3", ConversationID: g.convID, Content: "Fresh?"})

	msgs := snapshotMessages(t, next(t, seller, MessageTypeSnapshot))
	assert.Len(t, msgs, 1)
}

func sessionOf(t *testing.T, m *Manager, userID string) *Session {
	t.Helper()
	require.Eventually(t, func() bool { return m.SessionCount(userID) == 1 }, 2*time.Second, 10*time.Millisecond)
	return m.userSessions(userID)[0]
}

func TestUnsubscribeReleasesSubscription(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")

	write(t, buyer, MessageTypeSubscribe, SubscribeData{Topic: TopicConversations})
	frame := next(t, buyer, MessageTypeSubscribed)
	var sub SubscribedData
	require.NoError(t, json.Unmarshal(frame.Data, &sub))
	next(t, buyer, MessageTypeSnapshot)

	session := sessionOf(t, g.manager, "buyer-a")
	assert.Equal(t, 1, session.SubscriptionCount())
	assert.Equal(t, 1, session.cache.Len())

	write(t, buyer, MessageTypeUnsubscribe, UnsubscribeData{SubscriptionID: sub.SubscriptionID})
	next(t, buyer, MessageTypeUnsubscribed)
	assert.Eventually(t, func() bool {
		return session.SubscriptionCount() == 0 && session.cache.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectUserClosesSessions(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")

	write(t, buyer, MessageTypeSubscribe, SubscribeData{Topic: TopicTyping, ConversationID: g.convID})
	next(t, buyer, MessageTypeSnapshot)
	session := sessionOf(t, g.manager, "buyer-a")

	assert.Equal(t, 1, g.manager.DisconnectUser("buyer-a"))
	assert.Equal(t, 0, session.SubscriptionCount())
	assert.Error(t, session.ctx.Err())

	require.NoError(t, buyer.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := buyer.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
			break
		}
	}
	assert.Eventually(t, func() bool { return g.manager.SessionCount("buyer-a") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownFrameIsAnError(t *testing.T) {
	g := newGateway(t)
	buyer := g.dial(t, "buyer-a")

	write(t, buyer, "launch_rockets", nil)
	frame := next(t, buyer, MessageTypeError)
	var data ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, errors.CodeValidation, data.Code)
}

func TestSubscriptionKey(t *testing.T) {
	key, err := subscriptionKey(SubscribeData{Topic: TopicConversations, IncludeArchived: true})
	require.NoError(t, err)
	assert.Equal(t, "conversations:all", key)

	_, err = subscriptionKey(SubscribeData{Topic: TopicMessages})
	assert.True(t, errors.Is(err, errors.CodeValidation))
	_, err = subscriptionKey(SubscribeData{Topic: "orders"})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestSnapshotCache(t *testing.T) {
	c := NewSnapshotCache()
	assert.True(t, c.Changed("s1", []byte(`[1]`)))
	assert.False(t, c.Changed("s1", []byte(`[1]`)))
	assert.True(t, c.Changed("s1", []byte(`[1,2]`)))
	assert.True(t, c.Changed("s2", []byte(`[1,2]`)))

	c.Evict("s1")
	assert.True(t, c.Changed("s1", []byte(`[1,2]`)))
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
