package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	ws "cars24/server/internal/websocket"
)

// WebSocketHandler upgrades authenticated requests to realtime connections
// on its hub.
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates the gateway handler for a hub.
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Upgrade checks if the request should be upgraded to WebSocket.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error":   "WebSocket upgrade required",
	})
}

// Handle runs one authenticated WebSocket connection until it closes.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	// Identity was bound by the auth middleware before the upgrade and is
	// fixed for the connection's lifetime.
	userID := c.Locals("userID").(string)

	client := ws.NewClient(userID, c, h.hub)
	h.hub.Register <- client

	go client.WritePump()
	client.ReadPump() // blocks until the connection closes
}

// Stats returns WebSocket connection statistics.
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"onlineUsers": h.hub.GetOnlineCount(),
			"userIds":     h.hub.GetOnlineUsers(),
		},
	})
}
