package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates how a message's content is interpreted.
type MessageType string

const (
	MessageTypePlain            MessageType = ""
	MessageTypeProposal         MessageType = "PROPOSAL"
	MessageTypeProposalResponse MessageType = "proposal_response"
	MessageTypeFile             MessageType = "file"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypePlain, MessageTypeProposal, MessageTypeProposalResponse, MessageTypeFile:
		return true
	}
	return false
}

// Message is an immutable entry in a conversation.
type Message struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Seq            int64        `db:"seq" json:"-"`
	ConversationID uuid.UUID    `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID    `db:"sender_id" json:"sender_id"`
	Content        string       `db:"content" json:"content"`
	Type           MessageType  `db:"type" json:"type"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	Attachments    []Attachment `db:"-" json:"attachments"`
}

// NewMessage carries everything the message store needs to persist a post.
type NewMessage struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	Type           MessageType
	// Preview is written to the conversation's last_message.
	Preview string
	// RecipientID gets an unread receipt when set.
	RecipientID uuid.NullUUID
}
