package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"cars24/server/internal/config"
	"cars24/server/internal/database"
	"cars24/server/internal/handlers"
	"cars24/server/internal/middleware"
	"cars24/server/internal/routes"
	"cars24/server/internal/store"
	ws "cars24/server/internal/websocket"
)

func main() {
	cfg := config.Load()

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	chats := store.NewChatStore(pool)
	messages := store.NewMessageStore(pool)

	hub := ws.NewHub(chats, messages)
	go hub.Run()

	app := fiber.New(fiber.Config{
		AppName: "Cars24 Chat API v1.0",
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app,
		middleware.AuthRequired(cfg.JWTSecret),
		handlers.NewChatHandler(chats, messages),
		handlers.NewWebSocketHandler(hub),
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
