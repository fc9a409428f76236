package realtime

import (
	"context"
	"log"

	"github.com/google/uuid"

	"swap-service/internal/observability"
)

// Notifier publishes the conversation events the workflow emits. Every
// publish is best-effort.
type Notifier struct {
	broadcaster Broadcaster
}

// NewNotifier constructs a Notifier.
func NewNotifier(b Broadcaster) *Notifier {
	return &Notifier{broadcaster: b}
}

// BroadcastNewMessage addresses one event to the recipient and one to the
// sender so the sender's other sessions refresh too. The recipient also gets
// an unread-count invalidation hint.
func (n *Notifier) BroadcastNewMessage(ctx context.Context, conversationID, messageID, senderID uuid.UUID, recipientID uuid.NullUUID) {
	base := Event{
		Type:           EventNewMessage,
		Topic:          Topic(conversationID),
		ConversationID: conversationID,
		From:           senderID,
		MessageID:      &messageID,
	}
	if recipientID.Valid {
		toRecipient := base
		toRecipient.To = recipientID.UUID
		n.publish(ctx, toRecipient)

		unread := base
		unread.Type = EventUnread
		unread.To = recipientID.UUID
		n.publish(ctx, unread)
	}
	toSender := base
	toSender.To = senderID
	n.publish(ctx, toSender)
}

// Typing tells the counterpart whether userID is typing.
func (n *Notifier) Typing(ctx context.Context, conversationID, userID, counterpartID uuid.UUID, isTyping bool) {
	n.publish(ctx, Event{
		Type:           EventTyping,
		Topic:          Topic(conversationID),
		ConversationID: conversationID,
		From:           userID,
		To:             counterpartID,
		IsTyping:       &isTyping,
		ExpiresInMS:    TypingTTLMillis,
	})
}

// Presence tells the counterpart whether userID has the conversation open.
func (n *Notifier) Presence(ctx context.Context, conversationID, userID, counterpartID uuid.UUID, online bool) {
	n.publish(ctx, Event{
		Type:           EventPresence,
		Topic:          Topic(conversationID),
		ConversationID: conversationID,
		From:           userID,
		To:             counterpartID,
		Online:         &online,
	})
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	if n == nil || n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.Publish(ctx, ev); err != nil {
		observability.IncRealtimeEvent(ev.Type, "publish_error")
		log.Printf("realtime publish failed type=%s topic=%s: %v", ev.Type, ev.Topic, err)
	}
}
