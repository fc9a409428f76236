package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"swap-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, seq, conversation_id, sender_id, content, type, created_at`

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message, refreshes the conversation's last-message
// metadata and raises the recipient's unread marker in one transaction.
func (r *MessageRepo) CreateMessage(ctx context.Context, nm models.NewMessage) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var msg models.Message
	err = tx.GetContext(ctx, &msg, `INSERT INTO messages_new (conversation_id, sender_id, content, type)
        VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		nm.ConversationID, nm.SenderID, nm.Content, nm.Type)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversations_new SET last_message=$2, last_message_at=$3 WHERE id=$1`,
		nm.ConversationID, nm.Preview, msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Message{}, ErrConversationNotFound
	}

	if nm.RecipientID.Valid {
		if err := markUnread(ctx, tx, nm.ConversationID, nm.RecipientID.UUID, msg.ID); err != nil {
			return models.Message{}, fmt.Errorf("mark unread: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, fmt.Errorf("commit: %w", err)
	}
	msg.Attachments = []models.Attachment{}
	return msg, nil
}

// ListMessages returns the conversation's messages oldest first with their
// linked attachments.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages_new
        WHERE conversation_id=$1
        ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID.String())
	}
	var atts []models.Attachment
	err = r.db.SelectContext(ctx, &atts, `SELECT `+attachmentColumns+` FROM message_attachments
        WHERE message_id = ANY($1::uuid[]) AND state = 'linked'
        ORDER BY created_at ASC`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}

	byMessage := make(map[uuid.UUID][]models.Attachment, len(atts))
	for _, a := range atts {
		byMessage[a.MessageID.UUID] = append(byMessage[a.MessageID.UUID], a)
	}
	for i := range msgs {
		msgs[i].Attachments = byMessage[msgs[i].ID]
		if msgs[i].Attachments == nil {
			msgs[i].Attachments = []models.Attachment{}
		}
	}
	return msgs, nil
}

// GetMessage retrieves a single message without attachments.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages_new WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
