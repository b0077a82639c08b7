package websocket

import (
	"encoding/json"

	"freshkart/internal/domain/entity"
)

// Client frame types
const (
	MessageTypePing        = "ping"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeSendMessage = "send_message"
	MessageTypeTypingStart = "typing_start"
	MessageTypeTypingStop  = "typing_stop"
	MessageTypeMarkRead    = "mark_read"
)

// Server frame types
const (
	MessageTypePong              = "pong"
	MessageTypeSubscribed        = "subscribed"
	MessageTypeUnsubscribed      = "unsubscribed"
	MessageTypeSnapshot          = "snapshot"
	MessageTypeSubscriptionError = "subscription_error"
	MessageTypeMessageSent       = "message_sent"
	MessageTypeSendFailed        = "send_failed"
	MessageTypeError             = "error"
)

// Subscription topics
const (
	TopicConversations = "conversations"
	TopicMessages      = "messages"
	TopicTyping        = "typing"
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

type clientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SubscribeData struct {
	Topic           string `json:"topic"`
	ConversationID  string `json:"conversation_id,omitempty"`
	IncludeArchived bool   `json:"include_archived,omitempty"`
}

type SubscribedData struct {
	SubscriptionID string `json:"subscription_id"`
	Topic          string `json:"topic"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type UnsubscribeData struct {
	SubscriptionID string `json:"subscription_id"`
}

// SnapshotData carries the full current result of a subscription. Items
// replaces whatever the client rendered before.
type SnapshotData struct {
	SubscriptionID string          `json:"subscription_id"`
	Topic          string          `json:"topic"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Items          json.RawMessage `json:"items"`
}

// SubscriptionErrorData reports a view that stopped updating. The
// subscription is gone; the client may subscribe again.
type SubscriptionErrorData struct {
	SubscriptionID string `json:"subscription_id"`
	Topic          string `json:"topic"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

type SendMessageData struct {
	TempID         string `json:"temp_id"`
	ConversationID string `json:"conversation_id"`
	ReceiverID     string `json:"receiver_id,omitempty"`
	Content        string `json:"content"`
	Kind           string `json:"kind,omitempty"`
	Attachment     string `json:"attachment,omitempty"`
	ReplyTo        string `json:"reply_to,omitempty"`
}

type MessageSentData struct {
	TempID  string          `json:"temp_id"`
	Message *entity.Message `json:"message"`
}

// SendFailedData reports a message that did not leave. It is distinct
// from SubscriptionErrorData so clients can offer a retry.
type SendFailedData struct {
	TempID  string `json:"temp_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConversationData struct {
	ConversationID string `json:"conversation_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}
