package services

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"swap-service/internal/apperr"
	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/observability"
	"swap-service/internal/repositories"
	"swap-service/internal/storage"
)

const orphanSweepBatch = 500

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// UploadInput is one file submitted ahead of the message that carries it.
type UploadInput struct {
	ConversationID uuid.UUID
	Uploader       middleware.Identity
	Filename       string
	ContentType    string
	Size           int64
	Body           io.Reader
}

// AttachmentService stores uploads and binds them to messages.
type AttachmentService struct {
	attachments   repositories.AttachmentRepository
	conversations repositories.ConversationRepository
	store         storage.ObjectStore
	maxBytes      int64
}

// NewAttachmentService builds an AttachmentService. maxBytes <= 0 selects
// DefaultMaxUploadBytes.
func NewAttachmentService(attachments repositories.AttachmentRepository, conversations repositories.ConversationRepository, store storage.ObjectStore, maxBytes int64) *AttachmentService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &AttachmentService{
		attachments:   attachments,
		conversations: conversations,
		store:         store,
		maxBytes:      maxBytes,
	}
}

// Upload stores the file and records a pending attachment. Nothing is
// written when validation or the object store fails.
func (s *AttachmentService) Upload(ctx context.Context, in UploadInput) (models.Attachment, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return models.Attachment{}, apperr.Validation("file name is required")
	}
	if in.Size <= 0 {
		return models.Attachment{}, apperr.Validation("file is empty")
	}
	if in.Size > s.maxBytes {
		observability.IncAttachmentUpload("rejected")
		return models.Attachment{}, apperr.Validation("file exceeds the %d byte limit", s.maxBytes)
	}
	if _, err := loadConversation(ctx, s.conversations, in.ConversationID, in.Uploader); err != nil {
		return models.Attachment{}, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := s.store.Put(ctx, storage.ObjectKey(in.ConversationID, filename), contentType, in.Body, in.Size)
	if err != nil {
		observability.IncAttachmentUpload("store_failed")
		return models.Attachment{}, apperr.Upstream(err, "failed to store file")
	}

	var thumbnail *string
	if obj.ThumbnailURL != "" {
		thumbnail = &obj.ThumbnailURL
	}
	att, err := s.attachments.CreateAttachment(ctx, models.Attachment{
		ConversationID: in.ConversationID,
		UploaderID:     in.Uploader.UserID,
		Filename:       filename,
		FileType:       contentType,
		FileSize:       in.Size,
		URL:            obj.URL,
		StorageKey:     obj.Key,
		ThumbnailURL:   thumbnail,
	})
	if err != nil {
		observability.IncAttachmentUpload("db_failed")
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			log.Printf("attachment cleanup failed key=%s: %v", obj.Key, delErr)
		}
		return models.Attachment{}, apperr.Dependency(err, "failed to record attachment")
	}
	observability.IncAttachmentUpload("ok")
	return att, nil
}

// Pending returns the attachments of the conversation among ids.
func (s *AttachmentService) Pending(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error) {
	atts, err := s.attachments.GetAttachments(ctx, conversationID, ids)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load attachments")
	}
	return atts, nil
}

// Link binds attachments to the message. Zero ids is a no-op and repeating
// a link returns the same rows.
func (s *AttachmentService) Link(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	linked, err := s.attachments.LinkAttachments(ctx, ids, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if len(linked) < len(ids) {
		log.Printf("attachment link partial message_id=%s requested=%d linked=%d", messageID, len(ids), len(linked))
	}
	return linked, nil
}

// SweepOrphans removes pending attachments older than ttl, object first. It
// returns how many were removed.
func (s *AttachmentService) SweepOrphans(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.attachments.ListStalePending(ctx, time.Now().Add(-ttl), orphanSweepBatch)
	if err != nil {
		return 0, apperr.Dependency(err, "failed to list stale attachments")
	}
	removed := 0
	for _, att := range stale {
		if err := s.store.Delete(ctx, att.StorageKey); err != nil {
			log.Printf("orphan object delete failed attachment_id=%s key=%s: %v", att.ID, att.StorageKey, err)
			continue
		}
		if err := s.attachments.DeletePending(ctx, att.ID); err != nil {
			log.Printf("orphan row delete failed attachment_id=%s: %v", att.ID, err)
			continue
		}
		removed++
	}
	if len(stale) > 0 {
		log.Printf("attachment sweep: stale=%d removed=%d", len(stale), removed)
	}
	return removed, nil
}
