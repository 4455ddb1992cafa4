package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cars24/server/internal/models"
	"cars24/server/pkg/apperrors"
)

type messageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a Postgres-backed MessageStore.
func NewMessageStore(pool *pgxpool.Pool) MessageStore {
	return &messageStore{pool: pool}
}

const messageColumns = `id, chat_id, sender_id, receiver_id, type, content,
	offer_price, offer_status, offer_expires_at,
	is_read, read_at, is_edited, edited_at, is_deleted, deleted_at, created_at, updated_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg          models.Message
		offerPrice   *float64
		offerStatus  *string
		offerExpires *time.Time
	)
	err := row.Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.ReceiverID, &msg.Type, &msg.Content,
		&offerPrice, &offerStatus, &offerExpires,
		&msg.IsRead, &msg.ReadAt, &msg.IsEdited, &msg.EditedAt,
		&msg.IsDeleted, &msg.DeletedAt, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if offerStatus != nil {
		offer := models.Offer{Status: models.OfferStatus(*offerStatus), ExpiresAt: offerExpires}
		if offerPrice != nil {
			offer.Price = *offerPrice
		}
		msg.Offer = &offer
	}
	return &msg, nil
}

func (s *messageStore) Append(ctx context.Context, chat *models.Chat, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Type == models.MessageOffer && msg.Offer != nil && msg.Offer.Status == "" {
		msg.Offer.Status = models.OfferPending
	}

	ReconcileSend(chat, msg)

	var (
		offerPrice   *float64
		offerStatus  *string
		offerExpires *time.Time
	)
	if msg.Offer != nil {
		offerPrice = &msg.Offer.Price
		status := string(msg.Offer.Status)
		offerStatus = &status
		offerExpires = msg.Offer.ExpiresAt
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, receiver_id, type, content,
			offer_price, offer_status, offer_expires_at,
			is_read, is_edited, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, false, false, $10, $10)
	`, msg.ID, msg.ChatID, msg.SenderID, msg.ReceiverID, msg.Type, msg.Content,
		offerPrice, offerStatus, offerExpires, now)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE chats
		SET last_message = $2, last_message_at = $3,
			buyer_unread = $4, seller_unread = $5, updated_at = $3
		WHERE id = $1
	`, chat.ID, chat.LastMessage, chat.LastMessageAt,
		chat.Unread.BuyerUnread, chat.Unread.SellerUnread)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *messageStore) ListByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE chat_id = $1 AND is_deleted = false
	`, chatID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = $1 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *msg)
	}
	return messages, total, rows.Err()
}

func (s *messageStore) MarkManyRead(ctx context.Context, chat *models.Chat, receiverID string) (int64, error) {
	if !chat.IsParticipant(receiverID) {
		return 0, apperrors.ErrAccessDenied
	}

	now := time.Now()

	unreadColumn := "seller_unread"
	lastSeenColumn := "seller_last_seen"
	if receiverID == chat.BuyerID {
		unreadColumn = "buyer_unread"
		lastSeenColumn = "buyer_last_seen"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE messages
		SET is_read = true, read_at = $3, updated_at = $3
		WHERE chat_id = $1 AND receiver_id = $2 AND is_read = false
	`, chat.ID, receiverID, now)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE chats SET `+unreadColumn+` = 0, `+lastSeenColumn+` = $2, updated_at = $2
		WHERE id = $1
	`, chat.ID, now)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	if receiverID == chat.BuyerID {
		chat.Unread.BuyerUnread = 0
		chat.BuyerLastSeen = now
	} else {
		chat.Unread.SellerUnread = 0
		chat.SellerLastSeen = now
	}
	return tag.RowsAffected(), nil
}

func (s *messageStore) getByID(ctx context.Context, messageID string) (*models.Message, error) {
	return scanMessage(s.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1
	`, messageID))
}

func (s *messageStore) SoftDelete(ctx context.Context, messageID, requesterID string) (*models.Message, error) {
	msg, err := s.getByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, apperrors.ErrAccessDenied
	}
	if msg.IsDeleted {
		return msg, nil
	}

	return scanMessage(s.pool.QueryRow(ctx, `
		UPDATE messages
		SET content = $2, is_deleted = true, deleted_at = $3, updated_at = $3
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, models.DeletedMessageContent, time.Now()))
}

func (s *messageStore) RespondToOffer(ctx context.Context, messageID, requesterID string, status models.OfferStatus) (*models.Message, error) {
	if !models.ValidOfferResponse(status) {
		return nil, apperrors.ErrValidation
	}

	msg, err := s.getByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Type != models.MessageOffer || msg.Offer == nil {
		return nil, apperrors.ErrValidation
	}
	// Only the participant the offer was made to can act on it.
	if msg.ReceiverID != requesterID {
		return nil, apperrors.ErrAccessDenied
	}
	if msg.Offer.Status != models.OfferPending {
		return nil, apperrors.ErrOfferResolved
	}

	return scanMessage(s.pool.QueryRow(ctx, `
		UPDATE messages SET offer_status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, string(status), time.Now()))
}
