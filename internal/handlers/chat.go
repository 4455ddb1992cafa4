package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"cars24/server/internal/middleware"
	"cars24/server/internal/models"
	"cars24/server/internal/store"
	"cars24/server/pkg/apperrors"
)

// ChatHandler serves the REST fallback for the chat layer. It performs the
// same store mutations as the realtime gateway, without room fan-out.
type ChatHandler struct {
	chats    store.ChatStore
	messages store.MessageStore
}

// NewChatHandler creates the REST chat handler.
func NewChatHandler(chats store.ChatStore, messages store.MessageStore) *ChatHandler {
	return &ChatHandler{chats: chats, messages: messages}
}

// CreateChatRequest represents the get-or-create chat request body
type CreateChatRequest struct {
	CarID    string `json:"carId"`
	SellerID string `json:"sellerId"`
}

// SendMessageRequest represents the send message request body
type SendMessageRequest struct {
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"messageType"`
	Offer       *models.Offer      `json:"offer,omitempty"`
}

// OfferResponseRequest represents the offer response request body
type OfferResponseRequest struct {
	Status models.OfferStatus `json:"status"`
}

// GetOrCreateChat returns the active chat for the buyer/seller/car triple,
// creating it on first contact.
func (h *ChatHandler) GetOrCreateChat(c *fiber.Ctx) error {
	buyerID := middleware.GetUserID(c)

	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.CarID == "" || req.SellerID == "" {
		return badRequest(c, "Car ID and seller ID are required")
	}
	if req.SellerID == buyerID {
		return badRequest(c, "Cannot chat with yourself")
	}

	chat, err := h.chats.GetOrCreate(c.Context(), buyerID, req.SellerID, req.CarID)
	if err != nil {
		return respondError(c, err, "Failed to create chat")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"chat": chat},
	})
}

// GetChats returns the caller's active chats, newest activity first, each
// with the caller's own unread count.
func (h *ChatHandler) GetChats(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	chats, err := h.chats.ListForUser(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to fetch chats")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"chats": chats},
	})
}

// GetChatByID returns a single chat if the caller participates in it.
func (h *ChatHandler) GetChatByID(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	chat, err := h.chats.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch chat")
	}
	if !chat.IsParticipant(userID) {
		return respondError(c, apperrors.ErrAccessDenied, "")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"chat": chat},
	})
}

// GetChatMessages returns a page of messages oldest-first and, as a side
// effect, marks the caller's unread messages in the chat as read.
func (h *ChatHandler) GetChatMessages(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	chat, err := h.chats.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch chat")
	}
	if !chat.IsParticipant(userID) {
		return respondError(c, apperrors.ErrAccessDenied, "")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	messages, total, err := h.messages.ListByChat(c.Context(), chat.ID, page, limit)
	if err != nil {
		return respondError(c, err, "Failed to fetch messages")
	}

	if _, err := h.messages.MarkManyRead(c.Context(), chat, userID); err != nil {
		return respondError(c, err, "Failed to mark messages as read")
	}

	// Storage order is newest-first; clients render oldest-first.
	reverseMessages(messages)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	pages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"messages": messages,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
				"pages": pages,
			},
		},
	})
}

// SendMessage appends a message over REST. The chat snapshot and the
// receiver's unread counter move in the same transaction as the append.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageText
	}
	if !models.ValidMessageType(req.MessageType) {
		return badRequest(c, "Invalid message type")
	}
	if req.Content == "" {
		return badRequest(c, "Message content is required")
	}
	if req.MessageType == models.MessageOffer && req.Offer == nil {
		return badRequest(c, "Offer details are required")
	}

	chat, err := h.chats.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch chat")
	}
	if !chat.IsParticipant(userID) {
		return respondError(c, apperrors.ErrAccessDenied, "")
	}

	msg := &models.Message{
		ChatID:   chat.ID,
		SenderID: userID,
		Type:     req.MessageType,
		Content:  req.Content,
		Offer:    req.Offer,
	}
	if err := h.messages.Append(c.Context(), chat, msg); err != nil {
		return respondError(c, err, "Failed to send message")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"message": msg},
	})
}

// DeleteMessage tombstones the caller's own message.
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	if _, err := h.messages.SoftDelete(c.Context(), c.Params("messageId"), userID); err != nil {
		return respondError(c, err, "Failed to delete message")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message deleted successfully",
	})
}

// RespondToOffer lets the offer's receiver accept, reject or counter a
// pending offer. Countering closes this offer; the counter itself is a new
// offer message.
func (h *ChatHandler) RespondToOffer(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req OfferResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !models.ValidOfferResponse(req.Status) {
		return badRequest(c, "Status must be accepted, rejected, or countered")
	}

	msg, err := h.messages.RespondToOffer(c.Context(), c.Params("messageId"), userID, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to update offer")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"message": msg},
	})
}

// ArchiveChat transitions the chat to archived; its messages stay readable
// but the chat leaves active lists.
func (h *ChatHandler) ArchiveChat(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	if err := h.chats.Archive(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err, "Failed to archive chat")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Chat archived successfully",
	})
}

func reverseMessages(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func respondError(c *fiber.Ctx, err error, internalMessage string) error {
	status := apperrors.StatusCode(err)

	var message string
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		message = "Not found"
	case errors.Is(err, apperrors.ErrAccessDenied):
		message = "Access denied"
	case errors.Is(err, apperrors.ErrValidation):
		message = "Validation failed"
	case errors.Is(err, apperrors.ErrOfferResolved):
		message = "Offer already resolved"
	default:
		log.Printf("%s: %v", internalMessage, err)
		message = internalMessage
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
