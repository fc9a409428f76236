package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadReceipt marks that a recipient has at least one unread message in a
// conversation.
type ReadReceipt struct {
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	LastMessageID  uuid.UUID `db:"last_message_id" json:"last_message_id"`
	Notified       bool      `db:"notified" json:"notified"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PendingDigest is an un-notified receipt joined with the recipient's
// contact details.
type PendingDigest struct {
	ConversationID uuid.UUID `db:"conversation_id"`
	UserID         uuid.UUID `db:"user_id"`
	UpdatedAt      time.Time `db:"updated_at"`
	Email          string    `db:"email"`
	FullName       string    `db:"full_name"`
	LastMessage    string    `db:"last_message"`
}
