package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"cars24/server/internal/models"
	"cars24/server/pkg/apperrors"
)

// Client represents one authenticated WebSocket connection. The identity is
// fixed at handshake time and never changes for the connection's lifetime.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte
}

// NewClient creates a new WebSocket client.
func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 256),
	}
}

// ReadPump handles incoming events from the client, one at a time in
// arrival order.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var incoming IncomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		c.HandleIncoming(incoming)
	}
}

// WritePump handles outgoing messages to the client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleIncoming dispatches a single inbound event. Failures go back to
// this connection only and never take the gateway down.
func (c *Client) HandleIncoming(msg IncomingMessage) {
	switch msg.Type {
	case EventChatJoin:
		c.handleJoin(msg.Payload)
	case EventChatLeave:
		c.handleLeave(msg.Payload)
	case EventMessageSend:
		c.handleSend(msg.Payload)
	case EventTypingStart:
		c.handleTyping(msg.Payload, EventUserTyping)
	case EventTypingStop:
		c.handleTyping(msg.Payload, EventUserStoppedTyping)
	case EventMessagesRead:
		c.handleRead(msg.Payload)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// loadChatForParticipant fetches the chat and enforces membership before any
// event touches it.
func (c *Client) loadChatForParticipant(ctx context.Context, chatID string) (*models.Chat, bool) {
	if chatID == "" {
		c.sendError("Chat not found")
		return nil, false
	}
	chat, err := c.Hub.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.sendError("Chat not found")
		} else {
			log.Printf("Load chat error: %v", err)
			c.sendError("Failed to load chat")
		}
		return nil, false
	}
	if !chat.IsParticipant(c.UserID) {
		c.sendError("Access denied")
		return nil, false
	}
	return chat, true
}

func (c *Client) handleJoin(payload json.RawMessage) {
	var req ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	chat, ok := c.loadChatForParticipant(context.Background(), req.ChatID)
	if !ok {
		return
	}

	c.Hub.JoinRoom(chat.ID, c)
	c.SendMessage(NewWSMessage(EventChatJoined, ChatPayload{ChatID: chat.ID}))

	// Notify the other participant if they are connected.
	c.Hub.BroadcastToUser(chat.OtherParticipant(c.UserID), NewWSMessage(EventParticipantJoined, ParticipantJoinedPayload{
		ChatID: chat.ID,
		UserID: c.UserID,
	}))
}

func (c *Client) handleLeave(payload json.RawMessage) {
	var req ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	c.Hub.LeaveRoom(req.ChatID, c)
	c.SendMessage(NewWSMessage(EventChatLeft, ChatPayload{ChatID: req.ChatID}))
}

func (c *Client) handleSend(payload json.RawMessage) {
	var req SendMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageText
	}
	if !models.ValidMessageType(req.MessageType) {
		c.sendError("Invalid message type")
		return
	}
	if req.Content == "" {
		c.sendError("Message content is required")
		return
	}
	if req.MessageType == models.MessageOffer && req.Offer == nil {
		c.sendError("Offer details are required")
		return
	}

	ctx := context.Background()
	chat, ok := c.loadChatForParticipant(ctx, req.ChatID)
	if !ok {
		return
	}

	msg := &models.Message{
		ChatID:   chat.ID,
		SenderID: c.UserID,
		Type:     req.MessageType,
		Content:  req.Content,
		Offer:    req.Offer,
	}
	if err := c.Hub.messages.Append(ctx, chat, msg); err != nil {
		log.Printf("Send message error: %v", err)
		c.sendError("Failed to send message")
		return
	}

	c.Hub.BroadcastToRoom(chat.ID, NewWSMessage(EventMessageNew, msg), "")

	// The receiver may be connected but viewing a different chat; the user
	// channel reaches them regardless of room membership.
	c.Hub.BroadcastToUser(msg.ReceiverID, NewWSMessage(EventNotificationNewMessage, NotificationPayload{
		ChatID:  chat.ID,
		Message: msg,
	}))
}

func (c *Client) handleTyping(payload json.RawMessage, eventType EventType) {
	var req ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	// Best-effort, no persistence, safe to drop.
	c.Hub.BroadcastToRoom(req.ChatID, NewWSMessage(eventType, TypingPayload{
		UserID: c.UserID,
		ChatID: req.ChatID,
	}), c.UserID)
}

func (c *Client) handleRead(payload json.RawMessage) {
	var req ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError("Invalid payload")
		return
	}

	ctx := context.Background()
	chat, ok := c.loadChatForParticipant(ctx, req.ChatID)
	if !ok {
		return
	}

	if _, err := c.Hub.messages.MarkManyRead(ctx, chat, c.UserID); err != nil {
		log.Printf("Mark read error: %v", err)
		c.sendError("Failed to mark messages as read")
		return
	}

	c.Hub.BroadcastToUser(chat.OtherParticipant(c.UserID), NewWSMessage(EventMessagesReadByReceiver, ReadPayload{
		ChatID: chat.ID,
		UserID: c.UserID,
	}))
}

func (c *Client) sendError(message string) {
	c.SendMessage(NewWSMessage(EventError, ErrorPayload{Message: message}))
}

// SendMessage queues an event for this connection, dropping it if the
// client's buffer is full.
func (c *Client) SendMessage(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
	default:
		log.Printf("Send buffer full for client: %s", c.UserID)
	}
	return nil
}
