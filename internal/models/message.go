package models

import "time"

// MessageType classifies a chat message.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageOffer  MessageType = "offer"
	MessageSystem MessageType = "system"
)

// ValidMessageType reports whether t is one of the supported types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageOffer, MessageSystem:
		return true
	}
	return false
}

// OfferStatus is the state of a price offer. Once an offer leaves pending
// it is terminal; a counter-offer is a new offer message, not a mutation
// of the old one.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCountered OfferStatus = "countered"
)

// ValidOfferResponse reports whether s is a legal transition out of pending.
func ValidOfferResponse(s OfferStatus) bool {
	return s == OfferAccepted || s == OfferRejected || s == OfferCountered
}

// Offer is the price-offer payload carried by offer-typed messages.
type Offer struct {
	Price     float64     `json:"price"`
	Status    OfferStatus `json:"status"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// DeletedMessageContent replaces the body of a soft-deleted message.
const DeletedMessageContent = "This message was deleted"

// Message is a single chat message. Soft-deleted messages keep their id and
// timestamps; only the content is replaced with the tombstone.
type Message struct {
	ID         string      `json:"id" db:"id"`
	ChatID     string      `json:"chatId" db:"chat_id"`
	SenderID   string      `json:"senderId" db:"sender_id"`
	ReceiverID string      `json:"receiverId" db:"receiver_id"`
	Type       MessageType `json:"messageType" db:"type"`
	Content    string      `json:"content" db:"content"`
	Offer      *Offer      `json:"offer,omitempty"`
	IsRead     bool        `json:"isRead" db:"is_read"`
	ReadAt     *time.Time  `json:"readAt,omitempty" db:"read_at"`
	IsEdited   bool        `json:"isEdited" db:"is_edited"`
	EditedAt   *time.Time  `json:"editedAt,omitempty" db:"edited_at"`
	IsDeleted  bool        `json:"isDeleted" db:"is_deleted"`
	DeletedAt  *time.Time  `json:"deletedAt,omitempty" db:"deleted_at"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" db:"updated_at"`
}
