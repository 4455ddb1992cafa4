// Package store persists chats and messages in Postgres. The two-write
// operations (message append + chat bookkeeping, bulk read + counter reset)
// each run inside a single transaction so a crash can never leave a message
// the owning chat does not know about.
package store

import (
	"context"

	"cars24/server/internal/models"
)

// ChatStore manages chat records and their participant state.
type ChatStore interface {
	// GetOrCreate returns the active chat for the triple, creating it on
	// first contact. Fails with apperrors.ErrValidation when the buyer
	// tries to chat with themselves.
	GetOrCreate(ctx context.Context, buyerID, sellerID, carID string) (*models.Chat, error)
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	// ListForUser returns the user's active chats, newest activity first,
	// each annotated with that user's own unread count.
	ListForUser(ctx context.Context, userID string) ([]models.ChatWithUnread, error)
	// Archive transitions the chat to archived. Participants only.
	Archive(ctx context.Context, chatID, requesterID string) error
}

// MessageStore manages the ordered messages of a chat.
type MessageStore interface {
	// Append reconciles delivery bookkeeping into chat and msg, then
	// writes both rows in one transaction. chat and msg are updated in
	// place with the persisted state.
	Append(ctx context.Context, chat *models.Chat, msg *models.Message) error
	// ListByChat returns a page of non-deleted messages, newest first,
	// plus the total count. Callers present pages oldest-first.
	ListByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error)
	// MarkManyRead marks every unread message addressed to receiverID in
	// the chat as read and zeroes that side's counter. Returns the number
	// of messages transitioned.
	MarkManyRead(ctx context.Context, chat *models.Chat, receiverID string) (int64, error)
	// SoftDelete tombstones a message. Sender only; ids and timestamps
	// survive, content does not.
	SoftDelete(ctx context.Context, messageID, requesterID string) (*models.Message, error)
	// RespondToOffer moves a pending offer to accepted, rejected or
	// countered. Receiver only; terminal once resolved.
	RespondToOffer(ctx context.Context, messageID, requesterID string, status models.OfferStatus) (*models.Message, error)
}
