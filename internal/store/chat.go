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

type chatStore struct {
	pool *pgxpool.Pool
}

// NewChatStore creates a Postgres-backed ChatStore.
func NewChatStore(pool *pgxpool.Pool) ChatStore {
	return &chatStore{pool: pool}
}

const chatColumns = `id, car_id, buyer_id, seller_id, last_message, last_message_at,
	buyer_unread, seller_unread, status, buyer_last_seen, seller_last_seen, created_at, updated_at`

func scanChat(row pgx.Row) (*models.Chat, error) {
	var chat models.Chat
	err := row.Scan(
		&chat.ID, &chat.CarID, &chat.BuyerID, &chat.SellerID,
		&chat.LastMessage, &chat.LastMessageAt,
		&chat.Unread.BuyerUnread, &chat.Unread.SellerUnread,
		&chat.Status, &chat.BuyerLastSeen, &chat.SellerLastSeen,
		&chat.CreatedAt, &chat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (s *chatStore) GetOrCreate(ctx context.Context, buyerID, sellerID, carID string) (*models.Chat, error) {
	if buyerID == "" || sellerID == "" || carID == "" {
		return nil, apperrors.ErrValidation
	}
	if buyerID == sellerID {
		return nil, apperrors.ErrValidation
	}

	chat, err := scanChat(s.pool.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE buyer_id = $1 AND seller_id = $2 AND car_id = $3 AND status = 'active'
	`, buyerID, sellerID, carID))
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	return scanChat(s.pool.QueryRow(ctx, `
		INSERT INTO chats (id, car_id, buyer_id, seller_id, last_message, last_message_at,
			buyer_unread, seller_unread, status, buyer_last_seen, seller_last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, 0, 0, 'active', $5, $5, $5, $5)
		RETURNING `+chatColumns+`
	`, uuid.New().String(), carID, buyerID, sellerID, now))
}

func (s *chatStore) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	return scanChat(s.pool.QueryRow(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE id = $1
	`, chatID))
}

func (s *chatStore) ListForUser(ctx context.Context, userID string) ([]models.ChatWithUnread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE (buyer_id = $1 OR seller_id = $1) AND status = 'active'
		ORDER BY last_message_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []models.ChatWithUnread{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, models.ChatWithUnread{
			Chat:          *chat,
			UnreadForUser: chat.UnreadFor(userID),
		})
	}
	return chats, rows.Err()
}

func (s *chatStore) Archive(ctx context.Context, chatID, requesterID string) error {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(requesterID) {
		return apperrors.ErrAccessDenied
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE chats SET status = 'archived', updated_at = $2 WHERE id = $1
	`, chatID, time.Now())
	return err
}
