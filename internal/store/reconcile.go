package store

import "cars24/server/internal/models"

// snapshotLimit caps the denormalized last-message preview on a chat.
const snapshotLimit = 100

// TruncateSnapshot shortens content to the snapshot limit without splitting
// a multi-byte character.
func TruncateSnapshot(content string) string {
	runes := []rune(content)
	if len(runes) <= snapshotLimit {
		return content
	}
	return string(runes[:snapshotLimit])
}

// ReconcileSend applies the delivery bookkeeping for a message being sent:
// the receiver is the participant who is not the sender, the chat snapshot
// is refreshed, and exactly the receiver's unread counter goes up by one.
// It is the only place this logic lives; both the realtime and the REST
// send paths go through Append, which calls it.
func ReconcileSend(chat *models.Chat, msg *models.Message) {
	msg.ReceiverID = chat.OtherParticipant(msg.SenderID)

	chat.LastMessage = TruncateSnapshot(msg.Content)
	chat.LastMessageAt = msg.CreatedAt

	// A tombstoned message was already delivered once; re-processing it
	// must not inflate the counter.
	if msg.IsDeleted {
		return
	}

	if msg.ReceiverID == chat.BuyerID {
		chat.Unread.BuyerUnread++
	} else {
		chat.Unread.SellerUnread++
	}
}
