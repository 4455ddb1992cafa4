// Package storetest provides in-memory ChatStore and MessageStore
// implementations for exercising the gateway and the REST handlers without
// a database. Semantics mirror the Postgres stores.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cars24/server/internal/models"
	"cars24/server/internal/store"
	"cars24/server/pkg/apperrors"
)

// Store implements store.ChatStore and store.MessageStore in memory.
type Store struct {
	mu       sync.Mutex
	chats    map[string]*models.Chat
	messages map[string]*models.Message
	order    []string // message ids, append order
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		chats:    make(map[string]*models.Chat),
		messages: make(map[string]*models.Message),
	}
}

var (
	_ store.ChatStore    = (*Store)(nil)
	_ store.MessageStore = (*Store)(nil)
)

func (s *Store) GetOrCreate(ctx context.Context, buyerID, sellerID, carID string) (*models.Chat, error) {
	if buyerID == "" || sellerID == "" || carID == "" || buyerID == sellerID {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chat := range s.chats {
		if chat.BuyerID == buyerID && chat.SellerID == sellerID && chat.CarID == carID && chat.Status == models.ChatActive {
			cp := *chat
			return &cp, nil
		}
	}

	now := time.Now()
	chat := &models.Chat{
		ID:             uuid.New().String(),
		CarID:          carID,
		BuyerID:        buyerID,
		SellerID:       sellerID,
		LastMessageAt:  now,
		Status:         models.ChatActive,
		BuyerLastSeen:  now,
		SellerLastSeen: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.chats[chat.ID] = chat
	cp := *chat
	return &cp, nil
}

func (s *Store) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *chat
	return &cp, nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.ChatWithUnread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := []models.ChatWithUnread{}
	for _, chat := range s.chats {
		if chat.Status != models.ChatActive || !chat.IsParticipant(userID) {
			continue
		}
		chats = append(chats, models.ChatWithUnread{Chat: *chat, UnreadForUser: chat.UnreadFor(userID)})
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

func (s *Store) Archive(ctx context.Context, chatID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if !chat.IsParticipant(requesterID) {
		return apperrors.ErrAccessDenied
	}
	chat.Status = models.ChatArchived
	chat.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Append(ctx context.Context, chat *models.Chat, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Type == models.MessageOffer && msg.Offer != nil && msg.Offer.Status == "" {
		msg.Offer.Status = models.OfferPending
	}

	store.ReconcileSend(chat, msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.chats[chat.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	*stored = *chat

	cp := *msg
	s.messages[msg.ID] = &cp
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *Store) ListByChat(ctx context.Context, chatID string, page, limit int) ([]models.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first, matching storage order in the SQL store.
	all := []models.Message{}
	for i := len(s.order) - 1; i >= 0; i-- {
		msg := s.messages[s.order[i]]
		if msg.ChatID == chatID && !msg.IsDeleted {
			all = append(all, *msg)
		}
	}

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []models.Message{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *Store) MarkManyRead(ctx context.Context, chat *models.Chat, receiverID string) (int64, error) {
	if !chat.IsParticipant(receiverID) {
		return 0, apperrors.ErrAccessDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var count int64
	for _, msg := range s.messages {
		if msg.ChatID == chat.ID && msg.ReceiverID == receiverID && !msg.IsRead {
			msg.IsRead = true
			readAt := now
			msg.ReadAt = &readAt
			count++
		}
	}

	stored, ok := s.chats[chat.ID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	if receiverID == stored.BuyerID {
		stored.Unread.BuyerUnread = 0
		stored.BuyerLastSeen = now
	} else {
		stored.Unread.SellerUnread = 0
		stored.SellerLastSeen = now
	}
	*chat = *stored
	return count, nil
}

func (s *Store) SoftDelete(ctx context.Context, messageID, requesterID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if msg.SenderID != requesterID {
		return nil, apperrors.ErrAccessDenied
	}
	if !msg.IsDeleted {
		now := time.Now()
		msg.Content = models.DeletedMessageContent
		msg.IsDeleted = true
		msg.DeletedAt = &now
		msg.UpdatedAt = now
	}
	cp := *msg
	return &cp, nil
}

func (s *Store) RespondToOffer(ctx context.Context, messageID, requesterID string, status models.OfferStatus) (*models.Message, error) {
	if !models.ValidOfferResponse(status) {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if msg.Type != models.MessageOffer || msg.Offer == nil {
		return nil, apperrors.ErrValidation
	}
	if msg.ReceiverID != requesterID {
		return nil, apperrors.ErrAccessDenied
	}
	if msg.Offer.Status != models.OfferPending {
		return nil, apperrors.ErrOfferResolved
	}

	msg.Offer.Status = status
	msg.UpdatedAt = time.Now()
	cp := *msg
	return &cp, nil
}
