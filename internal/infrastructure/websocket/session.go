package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"freshkart/internal/domain/entity"
	"freshkart/internal/infrastructure/metrics"
	"freshkart/internal/usecase"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	cleanupTimeout = 2 * time.Second
)

type subscription struct {
	id             string
	key            string
	topic          string
	conversationID string
	cancel         context.CancelFunc
}

// Session is one gateway connection. Every subscription it opens runs
// under the session context, so closing the session releases all of them.
type Session struct {
	ID       string
	UserID   string
	UserName string

	conn    *websocket.Conn
	service ChatService
	send    chan []byte
	cache   *SnapshotCache

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	subs   map[string]*subscription
	byKey  map[string]string
	typing map[string]bool

	closeOnce sync.Once
}

func newSession(parent context.Context, conn *websocket.Conn, identity *entity.Identity, service ChatService) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:       uuid.NewString(),
		UserID:   identity.UserID,
		UserName: identity.Name,
		conn:     conn,
		service:  service,
		send:     make(chan []byte, sendBuffer),
		cache:    NewSnapshotCache(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		subs:     make(map[string]*subscription),
		byKey:    make(map[string]string),
		typing:   make(map[string]bool),
	}
}

// ReadPump reads frames until the connection fails or the session closes.
func (s *Session) ReadPump() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error from %s: %v", s.UserID, err)
			}
			return
		}
		s.handleFrame(message)
	}
}

// WritePump is the only writer of data frames on the connection.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("WebSocket: write to %s failed: %v", s.UserID, err)
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close cancels every subscription, drops cached snapshots, clears typing
// indicators the user left behind and closes the connection.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)

		s.mu.Lock()
		for id, sub := range s.subs {
			sub.cancel()
			delete(s.subs, id)
		}
		s.byKey = make(map[string]string)
		typing := s.typing
		s.typing = make(map[string]bool)
		s.mu.Unlock()
		s.cache.Clear()

		if code != websocket.CloseAbnormalClosure {
			msg := websocket.FormatCloseMessage(code, reason)
			if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
				logger.Debug("WebSocket: close frame to %s failed: %v", s.UserID, err)
			}
		}
		s.conn.Close()

		for conversationID := range typing {
			ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			if err := s.service.ClearTyping(ctx, s.UserID, conversationID); err != nil {
				logger.Warn("Failed to clear typing of %s in %s on disconnect: %v", s.UserID, conversationID, err)
			}
			cancel()
		}
	})
}

// SubscriptionCount returns the number of live subscriptions.
func (s *Session) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Session) handleFrame(raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.pushError("", errors.Validation("Invalid message format"))
		return
	}

	switch frame.Type {
	case MessageTypePing:
		s.push(MessageTypePong, map[string]string{"status": "alive"})

	case MessageTypeSubscribe:
		var data SubscribeData
		if !s.decode(frame, &data) {
			return
		}
		s.subscribe(data)

	case MessageTypeUnsubscribe:
		var data UnsubscribeData
		if !s.decode(frame, &data) {
			return
		}
		s.unsubscribe(data.SubscriptionID)

	case MessageTypeSendMessage:
		var data SendMessageData
		if !s.decode(frame, &data) {
			return
		}
		s.sendMessage(data)

	case MessageTypeTypingStart, MessageTypeTypingStop, MessageTypeMarkRead:
		var data ConversationData
		if !s.decode(frame, &data) {
			return
		}
		s.conversationAction(frame.Type, data.ConversationID)

	default:
		logger.Debug("WebSocket: unknown message type '%s' from %s", frame.Type, s.UserID)
		s.pushError(frame.Type, errors.Validation("Unknown message type"))
	}
}

func (s *Session) decode(frame clientFrame, v interface{}) bool {
	if len(frame.Data) == 0 {
		s.pushError(frame.Type, errors.Validation("Missing data"))
		return false
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		s.pushError(frame.Type, errors.Validation("Invalid "+frame.Type+" data"))
		return false
	}
	return true
}

func subscriptionKey(data SubscribeData) (string, error) {
	switch data.Topic {
	case TopicConversations:
		if data.IncludeArchived {
			return TopicConversations + ":all", nil
		}
		return TopicConversations, nil
	case TopicMessages, TopicTyping:
		if data.ConversationID == "" {
			return "", errors.Validation("conversation_id is required for " + data.Topic)
		}
		return data.Topic + ":" + data.ConversationID, nil
	}
	return "", errors.Validation("topic must be one of: conversations messages typing")
}

func (s *Session) subscribe(data SubscribeData) {
	key, err := subscriptionKey(data)
	if err != nil {
		s.pushError(MessageTypeSubscribe, err)
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if id, ok := s.byKey[key]; ok {
		s.mu.Unlock()
		s.push(MessageTypeSubscribed, SubscribedData{SubscriptionID: id, Topic: data.Topic, ConversationID: data.ConversationID})
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{
		id:             uuid.NewString(),
		key:            key,
		topic:          data.Topic,
		conversationID: data.ConversationID,
		cancel:         cancel,
	}
	s.subs[sub.id] = sub
	s.byKey[key] = sub.id
	s.mu.Unlock()

	s.push(MessageTypeSubscribed, SubscribedData{SubscriptionID: sub.id, Topic: sub.topic, ConversationID: sub.conversationID})
	go s.run(ctx, sub, data.IncludeArchived)
}

func (s *Session) run(ctx context.Context, sub *subscription, includeArchived bool) {
	release := metrics.SubscriptionOpened(sub.topic)
	defer release()

	var err error
	switch sub.topic {
	case TopicConversations:
		err = s.service.WatchConversations(ctx, s.UserID, includeArchived, func(convs []*entity.Conversation) error {
			return s.pushSnapshot(ctx, sub, convs)
		})
	case TopicMessages:
		err = s.service.WatchMessages(ctx, s.UserID, sub.conversationID, func(msgs []*entity.Message) error {
			return s.pushSnapshot(ctx, sub, msgs)
		})
	case TopicTyping:
		err = s.service.WatchTyping(ctx, s.UserID, sub.conversationID, func(records []*entity.TypingIndicator) error {
			return s.pushSnapshot(ctx, sub, records)
		})
	}

	// Checked before drop, which cancels ctx.
	failed := err != nil && ctx.Err() == nil
	s.drop(sub)
	if !failed {
		return
	}

	metrics.SubscriptionErrors.WithLabelValues(sub.topic).Inc()
	logger.Warn("WebSocket: %s subscription of %s failed: %v", sub.topic, s.UserID, err)
	s.push(MessageTypeSubscriptionError, SubscriptionErrorData{
		SubscriptionID: sub.id,
		Topic:          sub.topic,
		Code:           errors.CodeOf(err),
		Message:        publicMessage(err),
	})
}

func (s *Session) pushSnapshot(ctx context.Context, sub *subscription, items interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return errors.Internal("Failed to encode snapshot", err)
	}
	if !s.cache.Changed(sub.id, payload) {
		metrics.SnapshotsSuppressed.Inc()
		return nil
	}
	if !s.push(MessageTypeSnapshot, SnapshotData{
		SubscriptionID: sub.id,
		Topic:          sub.topic,
		ConversationID: sub.conversationID,
		Items:          payload,
	}) {
		return context.Canceled
	}
	return nil
}

// drop forgets sub if it is still registered.
func (s *Session) drop(sub *subscription) {
	s.mu.Lock()
	if current, ok := s.subs[sub.id]; ok && current == sub {
		delete(s.subs, sub.id)
		delete(s.byKey, sub.key)
	}
	s.mu.Unlock()
	sub.cancel()
	s.cache.Evict(sub.id)
}

func (s *Session) unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	s.mu.Unlock()
	if !ok {
		s.pushError(MessageTypeUnsubscribe, errors.NotFound("Subscription", nil))
		return
	}
	s.drop(sub)
	s.push(MessageTypeUnsubscribed, UnsubscribeData{SubscriptionID: id})
}

func (s *Session) sendMessage(data SendMessageData) {
	msg, err := s.service.SendMessage(s.ctx, s.UserID, usecase.SendMessageInput{
		ConversationID: data.ConversationID,
		ReceiverID:     data.ReceiverID,
		Content:        data.Content,
		Kind:           data.Kind,
		Attachment:     data.Attachment,
		ReplyTo:        data.ReplyTo,
	})
	if err != nil {
		s.push(MessageTypeSendFailed, SendFailedData{
			TempID:  data.TempID,
			Code:    errors.CodeOf(err),
			Message: publicMessage(err),
		})
		return
	}

	s.mu.Lock()
	delete(s.typing, data.ConversationID)
	s.mu.Unlock()
	s.push(MessageTypeMessageSent, MessageSentData{TempID: data.TempID, Message: msg})
}

func (s *Session) conversationAction(frameType, conversationID string) {
	var err error
	switch frameType {
	case MessageTypeTypingStart:
		if err = s.service.SetTyping(s.ctx, s.UserID, s.UserName, conversationID); err == nil {
			s.mu.Lock()
			s.typing[conversationID] = true
			s.mu.Unlock()
		}
	case MessageTypeTypingStop:
		if err = s.service.ClearTyping(s.ctx, s.UserID, conversationID); err == nil {
			s.mu.Lock()
			delete(s.typing, conversationID)
			s.mu.Unlock()
		}
	case MessageTypeMarkRead:
		_, err = s.service.MarkRead(s.ctx, s.UserID, conversationID)
	}
	if err != nil {
		s.pushError(frameType, err)
	}
}

// push queues a frame. A client that cannot keep up is disconnected rather
// than allowed to stall its subscriptions.
func (s *Session) push(msgType string, data interface{}) bool {
	payload, err := json.Marshal(WSMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", msgType, err)
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	default:
		logger.Warn("WebSocket: send buffer of %s full, closing session %s", s.UserID, s.ID)
		go s.Close(websocket.CloseTryAgainLater, "too slow")
		return false
	}
}

func (s *Session) pushError(request string, err error) {
	s.push(MessageTypeError, ErrorData{
		Code:    errors.CodeOf(err),
		Message: publicMessage(err),
		Request: request,
	})
}

func publicMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
