package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"swap-service/internal/models"
)

const attachmentColumns = `id, message_id, conversation_id, uploader_id, filename, file_type, file_size, url, storage_key, thumbnail_url, state, created_at`

// AttachmentRepository persists uploaded files and their message links.
type AttachmentRepository interface {
	CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error)
	GetAttachments(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error)
	LinkAttachments(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Attachment, error)
	DeletePending(ctx context.Context, attachmentID uuid.UUID) error
}

// AttachmentRepo is a sqlx implementation of AttachmentRepository.
type AttachmentRepo struct {
	db *sqlx.DB
}

// NewAttachmentRepo constructs an AttachmentRepo.
func NewAttachmentRepo(db *sqlx.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

// CreateAttachment inserts a pending attachment.
func (r *AttachmentRepo) CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error) {
	var out models.Attachment
	err := r.db.GetContext(ctx, &out, `INSERT INTO message_attachments
            (conversation_id, uploader_id, filename, file_type, file_size, url, storage_key, thumbnail_url, state)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
        RETURNING `+attachmentColumns,
		att.ConversationID, att.UploaderID, att.Filename, att.FileType, att.FileSize, att.URL, att.StorageKey, att.ThumbnailURL)
	return out, err
}

// GetAttachments returns the attachments of the conversation among ids.
func (r *AttachmentRepo) GetAttachments(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Attachment
	err := r.db.SelectContext(ctx, &out, `SELECT `+attachmentColumns+` FROM message_attachments
        WHERE id = ANY($1::uuid[]) AND conversation_id=$2
        ORDER BY created_at ASC`, pq.Array(uuidStrings(ids)), conversationID)
	return out, err
}

// LinkAttachments binds attachments of the conversation to the message and
// returns the rows now linked to it. Rows already linked to the same message
// are returned again, so repeating a link is harmless; rows linked elsewhere
// are left untouched.
func (r *AttachmentRepo) LinkAttachments(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Attachment
	err := r.db.SelectContext(ctx, &out, `UPDATE message_attachments
        SET message_id=$1, state='linked'
        WHERE id = ANY($2::uuid[]) AND conversation_id=$3 AND (message_id IS NULL OR message_id=$1)
        RETURNING `+attachmentColumns,
		messageID, pq.Array(uuidStrings(ids)), conversationID)
	return out, err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// ListStalePending returns pending attachments created before olderThan.
func (r *AttachmentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Attachment, error) {
	var out []models.Attachment
	err := r.db.SelectContext(ctx, &out, `SELECT `+attachmentColumns+` FROM message_attachments
        WHERE state='pending' AND created_at < $1
        ORDER BY created_at ASC
        LIMIT $2`, olderThan, limit)
	return out, err
}

// DeletePending removes an attachment that was never linked.
func (r *AttachmentRepo) DeletePending(ctx context.Context, attachmentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM message_attachments WHERE id=$1 AND state='pending'`, attachmentID)
	return err
}
