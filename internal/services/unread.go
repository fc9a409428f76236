package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"swap-service/internal/apperr"
	"swap-service/internal/mailer"
	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/observability"
	"swap-service/internal/repositories"
)

// SweepSummary reports one unread-digest run.
type SweepSummary struct {
	Recipients int `json:"recipients"`
	Notified   int `json:"notified"`
	Failed     int `json:"failed"`
}

// UnreadService tracks unread markers and mails the periodic digest.
type UnreadService struct {
	receipts      repositories.ReadReceiptRepository
	conversations repositories.ConversationRepository
	sender        mailer.Sender
	baseURL       string
}

// NewUnreadService builds an UnreadService. baseURL prefixes the
// conversation links in digest emails.
func NewUnreadService(receipts repositories.ReadReceiptRepository, conversations repositories.ConversationRepository, sender mailer.Sender, baseURL string) *UnreadService {
	return &UnreadService{
		receipts:      receipts,
		conversations: conversations,
		sender:        sender,
		baseURL:       baseURL,
	}
}

// MarkRead clears the reader's marker when the latest unread message is
// among messageIDs. It reports whether a marker was cleared.
func (s *UnreadService) MarkRead(ctx context.Context, conversationID uuid.UUID, reader middleware.Identity, messageIDs []uuid.UUID) (bool, error) {
	if len(messageIDs) == 0 {
		return false, apperr.Validation("message_ids are required")
	}
	if _, err := loadConversation(ctx, s.conversations, conversationID, reader); err != nil {
		return false, err
	}
	cleared, err := s.receipts.MarkRead(ctx, conversationID, reader.UserID, messageIDs)
	if err != nil {
		return false, apperr.Dependency(err, "failed to mark messages read")
	}
	return cleared, nil
}

// UnreadCount returns how many conversations hold unread messages for the user.
func (s *UnreadService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.receipts.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Dependency(err, "failed to count unread conversations")
	}
	return n, nil
}

type digestBatch struct {
	email    string
	name     string
	items    []mailer.DigestItem
	convIDs  []uuid.UUID
	newestAt time.Time
}

// NotifyUnread sends one digest per recipient with un-notified markers and
// flips exactly those markers. A recipient whose mail or update fails is
// logged and left for the next run.
func (s *UnreadService) NotifyUnread(ctx context.Context) (SweepSummary, error) {
	pending, err := s.receipts.ListPendingDigests(ctx)
	if err != nil {
		return SweepSummary{}, apperr.Dependency(err, "failed to load unread markers")
	}

	order, batches := groupDigests(pending)
	summary := SweepSummary{Recipients: len(order)}
	for _, userID := range order {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		b := batches[userID]
		if err := s.sendDigest(ctx, b); err != nil {
			summary.Failed++
			observability.IncDigestEmail("failed")
			log.Printf("unread digest failed user_id=%s: %v", userID, err)
			continue
		}
		if err := s.receipts.MarkNotified(ctx, userID, b.convIDs, b.newestAt); err != nil {
			summary.Failed++
			observability.IncDigestEmail("mark_failed")
			log.Printf("unread digest mark failed user_id=%s: %v", userID, err)
			continue
		}
		summary.Notified++
		observability.IncDigestEmail("sent")
	}
	log.Printf("unread sweep: recipients=%d notified=%d failed=%d", summary.Recipients, summary.Notified, summary.Failed)
	return summary, nil
}

func (s *UnreadService) sendDigest(ctx context.Context, b *digestBatch) error {
	subject, body, err := mailer.RenderDigest(b.name, s.baseURL, b.items)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, mailer.Mail{To: b.email, Subject: subject, Body: body})
}

// groupDigests buckets markers by recipient, keeping first-seen order.
func groupDigests(pending []models.PendingDigest) ([]uuid.UUID, map[uuid.UUID]*digestBatch) {
	var order []uuid.UUID
	batches := map[uuid.UUID]*digestBatch{}
	for _, p := range pending {
		b, ok := batches[p.UserID]
		if !ok {
			b = &digestBatch{email: p.Email, name: p.FullName}
			batches[p.UserID] = b
			order = append(order, p.UserID)
		}
		b.items = append(b.items, mailer.DigestItem{ConversationID: p.ConversationID.String(), LastMessage: p.LastMessage})
		b.convIDs = append(b.convIDs, p.ConversationID)
		if p.UpdatedAt.After(b.newestAt) {
			b.newestAt = p.UpdatedAt
		}
	}
	return order, batches
}
