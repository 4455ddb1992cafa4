package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"cars24/server/internal/handlers"
	"cars24/server/internal/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, auth fiber.Handler, chat *handlers.ChatHandler, ws *handlers.WebSocketHandler) {
	api := app.Group("/api")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Chat service is running",
		})
	})

	// Chat routes (protected)
	chats := api.Group("/chats", auth)
	chats.Post("/", middleware.ModerateRateLimiter(), chat.GetOrCreateChat)
	chats.Get("/", middleware.RelaxedRateLimiter(), chat.GetChats)
	chats.Get("/:id", middleware.RelaxedRateLimiter(), chat.GetChatByID)
	chats.Get("/:id/messages", middleware.RelaxedRateLimiter(), chat.GetChatMessages)
	chats.Post("/:id/messages", middleware.ModerateRateLimiter(), chat.SendMessage)
	chats.Delete("/:id/messages/:messageId", chat.DeleteMessage)
	chats.Put("/:id/messages/:messageId/offer", chat.RespondToOffer)
	chats.Put("/:id/archive", chat.ArchiveChat)

	// WebSocket route (protected)
	api.Get("/ws", auth, ws.Upgrade, websocket.New(ws.Handle))

	// WebSocket stats (protected, for debugging)
	api.Get("/ws/stats", auth, ws.Stats)
}
