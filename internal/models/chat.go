package models

import "time"

// ChatStatus is the lifecycle state of a chat. Chats are never hard-deleted.
type ChatStatus string

const (
	ChatActive   ChatStatus = "active"
	ChatArchived ChatStatus = "archived"
	ChatBlocked  ChatStatus = "blocked"
)

// UnreadCount tracks per-participant unread totals.
type UnreadCount struct {
	BuyerUnread  int `json:"buyerUnread"`
	SellerUnread int `json:"sellerUnread"`
}

// Chat is a conversation between a buyer and a seller about one car listing.
// At most one active chat exists per (buyer, seller, car) triple.
type Chat struct {
	ID             string      `json:"id" db:"id"`
	CarID          string      `json:"carId" db:"car_id"`
	BuyerID        string      `json:"buyerId" db:"buyer_id"`
	SellerID       string      `json:"sellerId" db:"seller_id"`
	LastMessage    string      `json:"lastMessage" db:"last_message"`
	LastMessageAt  time.Time   `json:"lastMessageAt" db:"last_message_at"`
	Unread         UnreadCount `json:"unreadCount"`
	Status         ChatStatus  `json:"status" db:"status"`
	BuyerLastSeen  time.Time   `json:"buyerLastSeen" db:"buyer_last_seen"`
	SellerLastSeen time.Time   `json:"sellerLastSeen" db:"seller_last_seen"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (c *Chat) IsParticipant(userID string) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// OtherParticipant returns the participant that is not userID.
// Both the realtime and the REST send paths derive the receiver through
// this, so they cannot diverge.
func (c *Chat) OtherParticipant(userID string) string {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// UnreadFor returns the unread counter belonging to userID.
func (c *Chat) UnreadFor(userID string) int {
	if userID == c.BuyerID {
		return c.Unread.BuyerUnread
	}
	return c.Unread.SellerUnread
}

// ChatWithUnread annotates a chat with the calling user's own unread count
// for list views.
type ChatWithUnread struct {
	Chat
	UnreadForUser int `json:"unread"`
}
