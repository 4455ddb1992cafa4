package websocket

import (
	"encoding/json"
	"time"

	"cars24/server/internal/models"
)

// EventType names a realtime event on the wire.
type EventType string

// Client -> server events.
const (
	EventChatJoin     EventType = "chat:join"
	EventChatLeave    EventType = "chat:leave"
	EventMessageSend  EventType = "message:send"
	EventTypingStart  EventType = "typing:start"
	EventTypingStop   EventType = "typing:stop"
	EventMessagesRead EventType = "messages:read"
)

// Server -> client events.
const (
	EventChatJoined             EventType = "chat:joined"
	EventChatLeft               EventType = "chat:left"
	EventParticipantJoined      EventType = "chat:participant-joined"
	EventMessageNew             EventType = "message:new"
	EventNotificationNewMessage EventType = "notification:new-message"
	EventUserTyping             EventType = "typing:user-typing"
	EventUserStoppedTyping      EventType = "typing:user-stopped"
	EventMessagesReadByReceiver EventType = "messages:read-by-receiver"
	EventUserOnline             EventType = "user:online"
	EventUserOffline            EventType = "user:offline"
	EventError                  EventType = "error"
)

// WSMessage is the outbound event envelope.
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewWSMessage stamps an envelope with the current time.
func NewWSMessage(eventType EventType, payload interface{}) WSMessage {
	return WSMessage{Type: eventType, Payload: payload, Timestamp: time.Now()}
}

// IncomingMessage is the inbound event envelope; payloads are decoded per
// event type.
type IncomingMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChatPayload addresses a single chat (join, leave, typing, read).
type ChatPayload struct {
	ChatID string `json:"chatId"`
}

// SendMessagePayload carries a message:send request.
type SendMessagePayload struct {
	ChatID      string             `json:"chatId"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"messageType"`
	Offer       *models.Offer      `json:"offer,omitempty"`
}

// ParticipantJoinedPayload notifies the other participant of a room join.
type ParticipantJoinedPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// NotificationPayload is delivered to the receiver's user channel so a new
// message reaches them even when they are viewing a different chat.
type NotificationPayload struct {
	ChatID  string          `json:"chatId"`
	Message *models.Message `json:"message"`
}

// TypingPayload is the ephemeral typing indicator.
type TypingPayload struct {
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
}

// ReadPayload tells a sender their messages were read.
type ReadPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// ErrorPayload reports a per-event failure back to the offending connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
