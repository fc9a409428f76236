package realtime

import (
	"github.com/google/uuid"
)

// Event types delivered to websocket clients.
const (
	EventNewMessage = "new_message"
	EventTyping     = "typing"
	EventPresence   = "presence"
	EventUnread     = "unread"
)

// TypingTTLMillis is how long a client shows a typing indicator without a
// follow-up event.
const TypingTTLMillis = 3000

// Event is a best-effort hint addressed to one user on a conversation topic.
// Clients treat it as a reason to re-fetch, never as the source of truth.
type Event struct {
	Type           string     `json:"type"`
	Topic          string     `json:"topic"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	To             uuid.UUID  `json:"to"`
	From           uuid.UUID  `json:"from"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
	IsTyping       *bool      `json:"is_typing,omitempty"`
	Online         *bool      `json:"online,omitempty"`
	ExpiresInMS    int        `json:"expires_in_ms,omitempty"`
}

// Topic returns the pub/sub topic scoped to a conversation.
func Topic(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}
