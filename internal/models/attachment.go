package models

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentState tracks the two-phase upload/link lifecycle.
type AttachmentState string

const (
	AttachmentPending AttachmentState = "pending"
	AttachmentLinked  AttachmentState = "linked"
)

// Attachment is a file uploaded into a conversation, bound to a message
// once the message exists.
type Attachment struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	MessageID      uuid.NullUUID   `db:"message_id" json:"message_id"`
	ConversationID uuid.UUID       `db:"conversation_id" json:"conversation_id"`
	UploaderID     uuid.UUID       `db:"uploader_id" json:"uploader_id"`
	Filename       string          `db:"filename" json:"filename"`
	FileType       string          `db:"file_type" json:"file_type"`
	FileSize       int64           `db:"file_size" json:"file_size"`
	URL            string          `db:"url" json:"url"`
	StorageKey     string          `db:"storage_key" json:"-"`
	ThumbnailURL   *string         `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	State          AttachmentState `db:"state" json:"state"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
