package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"swap-service/internal/models"
)

// ReadReceiptRepository tracks per-recipient unread markers.
type ReadReceiptRepository interface {
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, messageIDs []uuid.UUID) (bool, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	ListPendingDigests(ctx context.Context) ([]models.PendingDigest, error)
	MarkNotified(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID, asOf time.Time) error
}

// ReadReceiptRepo is a sqlx implementation of ReadReceiptRepository.
type ReadReceiptRepo struct {
	db *sqlx.DB
}

// NewReadReceiptRepo constructs a ReadReceiptRepo.
func NewReadReceiptRepo(db *sqlx.DB) *ReadReceiptRepo {
	return &ReadReceiptRepo{db: db}
}

// markUnread raises the recipient's marker for the conversation; it runs
// inside the message insert transaction.
func markUnread(ctx context.Context, exec sqlx.ExecerContext, conversationID, userID, messageID uuid.UUID) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO read_receipts (conversation_id, user_id, last_message_id, notified, updated_at)
        VALUES ($1, $2, $3, FALSE, NOW())
        ON CONFLICT (conversation_id, user_id) DO UPDATE
        SET last_message_id = EXCLUDED.last_message_id, notified = FALSE, updated_at = NOW()`,
		conversationID, userID, messageID)
	return err
}

// backfillUnread gives a user who just claimed an email-only side a marker
// for the latest message the other side sent, unless one exists already.
func backfillUnread(ctx context.Context, exec sqlx.ExecerContext, conversationID, userID uuid.UUID) error {
	_, err := exec.ExecContext(ctx, `INSERT INTO read_receipts (conversation_id, user_id, last_message_id, notified, updated_at)
        SELECT m.conversation_id, $2, m.id, FALSE, NOW()
        FROM messages_new m
        WHERE m.conversation_id = $1 AND m.sender_id <> $2
        ORDER BY m.created_at DESC, m.seq DESC
        LIMIT 1
        ON CONFLICT (conversation_id, user_id) DO NOTHING`,
		conversationID, userID)
	return err
}

// MarkRead clears the marker when the latest unread message is among the
// messages the reader has seen. It reports whether a marker was cleared.
func (r *ReadReceiptRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, messageIDs []uuid.UUID) (bool, error) {
	if len(messageIDs) == 0 {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM read_receipts
        WHERE conversation_id=$1 AND user_id=$2 AND last_message_id = ANY($3::uuid[])`,
		conversationID, userID, pq.Array(uuidStrings(messageIDs)))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountUnread returns how many conversations hold unread messages for the user.
func (r *ReadReceiptRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM read_receipts WHERE user_id=$1`, userID)
	return n, err
}

// ListPendingDigests returns receipts not yet covered by a digest email.
func (r *ReadReceiptRepo) ListPendingDigests(ctx context.Context) ([]models.PendingDigest, error) {
	var out []models.PendingDigest
	err := r.db.SelectContext(ctx, &out, `SELECT rr.conversation_id, rr.user_id, rr.updated_at, p.email, p.full_name, c.last_message
        FROM read_receipts rr
        JOIN profiles p ON p.id = rr.user_id
        JOIN conversations_new c ON c.id = rr.conversation_id
        WHERE rr.notified = FALSE
        ORDER BY rr.user_id, rr.updated_at`)
	return out, err
}

// MarkNotified flips the given conversations' markers for the user. Markers
// refreshed after asOf belong to a newer message and are left pending.
func (r *ReadReceiptRepo) MarkNotified(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID, asOf time.Time) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE read_receipts SET notified = TRUE
        WHERE user_id=$1 AND conversation_id = ANY($2::uuid[]) AND updated_at <= $3`, userID, pq.Array(uuidStrings(conversationIDs)), asOf)
	return err
}
