package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party thread between a visitor (user side) and a
// listing owner (host side). Either side may be known only by email until
// that person signs up.
type Conversation struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.NullUUID `db:"user_id" json:"user_id"`
	UserEmail     string        `db:"user_email" json:"user_email"`
	HostID        uuid.NullUUID `db:"host_id" json:"host_id"`
	HostEmail     string        `db:"host_email" json:"host_email"`
	ListingID     uuid.NullUUID `db:"listing_id" json:"listing_id"`
	LastMessage   string        `db:"last_message" json:"last_message"`
	LastMessageAt *time.Time    `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Party identifies one side of a conversation.
type Party struct {
	ID    uuid.NullUUID
	Email string
}

// PartyByID builds a Party known by user id.
func PartyByID(id uuid.UUID) Party {
	return Party{ID: uuid.NullUUID{UUID: id, Valid: true}}
}

// IsZero reports whether neither id nor email is set.
func (p Party) IsZero() bool {
	return !p.ID.Valid && strings.TrimSpace(p.Email) == ""
}

// IsParticipant reports whether the user (matched by id, or by email when the
// id slot is still empty) belongs to the conversation.
func (c Conversation) IsParticipant(userID uuid.UUID, email string) bool {
	return c.side(userID, email) != ""
}

// Counterpart returns the other participant's id, if that participant has
// an account.
func (c Conversation) Counterpart(userID uuid.UUID, email string) (uuid.NullUUID, string) {
	switch c.side(userID, email) {
	case "user":
		return c.HostID, c.HostEmail
	case "host":
		return c.UserID, c.UserEmail
	}
	return uuid.NullUUID{}, ""
}

func (c Conversation) side(userID uuid.UUID, email string) string {
	if c.UserID.Valid && c.UserID.UUID == userID {
		return "user"
	}
	if c.HostID.Valid && c.HostID.UUID == userID {
		return "host"
	}
	email = NormalizeEmail(email)
	if email == "" {
		return ""
	}
	if !c.UserID.Valid && c.UserEmail == email {
		return "user"
	}
	if !c.HostID.Valid && c.HostEmail == email {
		return "host"
	}
	return ""
}

// ConversationSummary is the per-user view returned by conversation listings.
type ConversationSummary struct {
	Conversation
	Unread bool `db:"unread" json:"unread"`
}

// NormalizeEmail lower-cases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
