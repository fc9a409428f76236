package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/services"
)

const (
	// multipart overhead allowed on top of the file size limit
	formOverheadBytes = 1 << 20
	formMemoryBytes   = 8 << 20
)

// Uploader stores attachments ahead of the message that carries them.
type Uploader interface {
	Upload(ctx context.Context, in services.UploadInput) (models.Attachment, error)
}

// AttachmentHandler serves multipart uploads.
type AttachmentHandler struct {
	uploader Uploader
	maxBytes int64
}

// NewAttachmentHandler builds an AttachmentHandler.
func NewAttachmentHandler(uploader Uploader, maxBytes int64) *AttachmentHandler {
	if maxBytes <= 0 {
		maxBytes = services.DefaultMaxUploadBytes
	}
	return &AttachmentHandler{uploader: uploader, maxBytes: maxBytes}
}

// Upload accepts a multipart form with file, conversationId and an optional
// senderId that must match the caller.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverheadBytes)

	if err := c.Request.ParseMultipartForm(formMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	conversationID, err := uuid.Parse(c.PostForm("conversationId"))
	if err != nil {
		badRequest(c, "invalid conversationId")
		return
	}
	caller := middleware.CurrentUser(c)
	if senderID := c.PostForm("senderId"); senderID != "" && senderID != caller.UserID.String() {
		c.JSON(http.StatusForbidden, gin.H{"error": "senderId does not match the authenticated user"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer file.Close()

	att, err := h.uploader.Upload(c.Request.Context(), services.UploadInput{
		ConversationID: conversationID,
		Uploader:       caller,
		Filename:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Size:           header.Size,
		Body:           file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}
