package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"cars24/server/internal/store"
)

// Hub owns the presence registry (one active connection per user) and the
// per-chat rooms used for fan-out. Presence is advisory, process-local
// state; a restart simply drops it. A Hub is constructed per gateway, not
// held in a package global, so independent gateways can coexist in tests.
type Hub struct {
	chats    store.ChatStore
	messages store.MessageStore

	// clients maps user ID to their single active connection.
	clients map[string]*Client
	// rooms maps chat ID to the connections currently joined to it.
	rooms map[string]map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a hub bound to the given stores.
func NewHub(chats store.ChatStore, messages store.MessageStore) *Hub {
	return &Hub{
		chats:      chats,
		messages:   messages,
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	// A reconnect supersedes the previous connection.
	if existing, ok := h.clients[client.UserID]; ok {
		h.dropLocked(existing)
	}
	h.clients[client.UserID] = client
	h.mu.Unlock()

	h.broadcastPresence(EventUserOnline, client.UserID)

	log.Printf("Client connected: %s", client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.UserID]
	if !ok || current != client {
		// Already superseded by a newer connection.
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.UserID)
	h.dropLocked(client)
	h.mu.Unlock()

	h.broadcastPresence(EventUserOffline, client.UserID)

	log.Printf("Client disconnected: %s", client.UserID)
}

// dropLocked removes a connection from every room and closes its send
// channel. Rooms are connection-scoped: they vanish with the connection.
func (h *Hub) dropLocked(client *Client) {
	for chatID, members := range h.rooms {
		if members[client.UserID] == client {
			delete(members, client.UserID)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	close(client.Send)
}

// broadcastPresence sends an online/offline event to every other user.
func (h *Hub) broadcastPresence(eventType EventType, userID string) {
	data, err := json.Marshal(NewWSMessage(eventType, userID))
	if err != nil {
		log.Printf("Failed to marshal presence message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		if id == userID {
			continue
		}
		h.deliver(client, data)
	}
}

// JoinRoom adds the connection to a chat room. Joining twice is a no-op.
func (h *Hub) JoinRoom(chatID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[chatID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[chatID] = members
	}
	members[client.UserID] = client
}

// LeaveRoom removes the connection from a chat room; no error if it was
// never joined.
func (h *Hub) LeaveRoom(chatID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[chatID]
	if !ok {
		return
	}
	if members[client.UserID] == client {
		delete(members, client.UserID)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// InRoom reports whether the user's connection is joined to the chat room.
func (h *Hub) InRoom(chatID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[chatID][userID]
	return ok
}

// BroadcastToRoom sends a message to every connection in the chat room,
// skipping excludeUserID when set.
func (h *Hub) BroadcastToRoom(chatID string, message WSMessage, excludeUserID string) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal room message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, client := range h.rooms[chatID] {
		if userID == excludeUserID {
			continue
		}
		h.deliver(client, data)
	}
}

// BroadcastToUser sends a message to a user's connection if they are online.
func (h *Hub) BroadcastToUser(userID string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, ok := h.clients[userID]; ok {
		h.deliver(client, data)
	}
}

// deliver pushes bytes to a client without blocking the hub; slow clients
// lose the event rather than stall everyone else.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		log.Printf("Failed to send message to client: %s", client.UserID)
	}
}

// IsUserOnline checks if a user is currently connected.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[userID]
	return ok
}

// GetOnlineUsers returns a list of currently online user IDs.
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userIDs := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// GetOnlineCount returns the number of currently connected clients.
func (h *Hub) GetOnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
