package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"swap-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

const (
	conversationColumns          = `id, user_id, user_email, host_id, host_email, listing_id, last_message, last_message_at, created_at`
	qualifiedConversationColumns = `c.id, c.user_id, c.user_email, c.host_id, c.host_email, c.listing_id, c.last_message, c.last_message_at, c.created_at`
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGetConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, email string) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGetConversation inserts the conversation unless one already exists
// for the same (user email, host email, listing) triple, in which case the
// existing row is returned. A stored side that is still email-only gets its
// user id filled in, and that user inherits an unread marker for the latest
// message addressed to them.
func (r *ConversationRepo) CreateOrGetConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var out models.Conversation
	err = tx.GetContext(ctx, &out, `INSERT INTO conversations_new (user_id, user_email, host_id, host_email, listing_id)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT DO NOTHING
        RETURNING `+conversationColumns,
		conv.UserID, conv.UserEmail, conv.HostID, conv.HostEmail, conv.ListingID)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return models.Conversation{}, fmt.Errorf("commit: %w", err)
		}
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	var claimed struct {
		models.Conversation
		UserClaimed bool `db:"user_claimed"`
		HostClaimed bool `db:"host_claimed"`
	}
	err = tx.GetContext(ctx, &claimed, `WITH prev AS (
            SELECT id, user_id IS NULL AS user_open, host_id IS NULL AS host_open
            FROM conversations_new
            WHERE user_email=$1 AND host_email=$2 AND listing_id IS NOT DISTINCT FROM $3
            FOR UPDATE
        )
        UPDATE conversations_new c SET
            user_id = COALESCE(c.user_id, $4),
            host_id = COALESCE(c.host_id, $5)
        FROM prev
        WHERE c.id = prev.id
        RETURNING `+qualifiedConversationColumns+`,
            (prev.user_open AND c.user_id IS NOT NULL) AS user_claimed,
            (prev.host_open AND c.host_id IS NOT NULL) AS host_claimed`,
		conv.UserEmail, conv.HostEmail, conv.ListingID, conv.UserID, conv.HostID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}

	if claimed.UserClaimed {
		if err := backfillUnread(ctx, tx, claimed.ID, claimed.UserID.UUID); err != nil {
			return models.Conversation{}, fmt.Errorf("backfill unread: %w", err)
		}
	}
	if claimed.HostClaimed {
		if err := backfillUnread(ctx, tx, claimed.ID, claimed.HostID.UUID); err != nil {
			return models.Conversation{}, fmt.Errorf("backfill unread: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Conversation{}, fmt.Errorf("commit: %w", err)
	}
	return claimed.Conversation, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations_new WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversations returns the user's conversations, most recent activity first.
func (r *ConversationRepo) ListConversations(ctx context.Context, userID uuid.UUID, email string) ([]models.ConversationSummary, error) {
	query := `SELECT ` + qualifiedConversationColumns + `,
            (rr.user_id IS NOT NULL) AS unread
        FROM conversations_new c
        LEFT JOIN read_receipts rr ON rr.conversation_id = c.id AND rr.user_id = $1
        WHERE c.user_id = $1 OR c.host_id = $1
            OR (c.user_id IS NULL AND c.user_email = $2)
            OR (c.host_id IS NULL AND c.host_email = $2)
        ORDER BY COALESCE(c.last_message_at, c.created_at) DESC`
	var out []models.ConversationSummary
	err := r.db.SelectContext(ctx, &out, query, userID, models.NormalizeEmail(email))
	return out, err
}
