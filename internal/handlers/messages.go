package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/services"
)

// Messaging is the conversation and message surface of the services layer.
type Messaging interface {
	EnsureConversation(ctx context.Context, a, b models.Party, listingID uuid.NullUUID) (models.Conversation, error)
	PostMessage(ctx context.Context, in services.PostMessageInput) (models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, requester middleware.Identity) ([]models.Message, error)
	ListConversations(ctx context.Context, requester middleware.Identity) ([]models.ConversationSummary, error)
}

// ReadTracker manages unread markers.
type ReadTracker interface {
	MarkRead(ctx context.Context, conversationID uuid.UUID, reader middleware.Identity, messageIDs []uuid.UUID) (bool, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// MessageHandler serves conversations and messages.
type MessageHandler struct {
	messaging Messaging
	reads     ReadTracker
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messaging Messaging, reads ReadTracker) *MessageHandler {
	return &MessageHandler{messaging: messaging, reads: reads}
}

// EnsureConversation opens (or returns) the caller's conversation with a
// counterpart, optionally scoped to a listing.
func (h *MessageHandler) EnsureConversation(c *gin.Context) {
	var req struct {
		ListingID        uuid.NullUUID `json:"listing_id"`
		CounterpartID    uuid.NullUUID `json:"counterpart_id"`
		CounterpartEmail string        `json:"counterpart_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	caller := middleware.CurrentUser(c)
	conv, err := h.messaging.EnsureConversation(c.Request.Context(),
		models.Party{ID: uuid.NullUUID{UUID: caller.UserID, Valid: true}, Email: caller.Email},
		models.Party{ID: req.CounterpartID, Email: req.CounterpartEmail},
		req.ListingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// ListConversations returns the caller's conversations with unread flags.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	list, err := h.messaging.ListConversations(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.ConversationSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// SendMessage posts a message on behalf of the caller.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		ConversationID uuid.UUID          `json:"conversation_id" binding:"required"`
		Content        string             `json:"content"`
		SenderID       uuid.NullUUID      `json:"sender_id"`
		Attachments    []uuid.UUID        `json:"attachments"`
		Type           models.MessageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	caller := middleware.CurrentUser(c)
	if req.SenderID.Valid && req.SenderID.UUID != caller.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender_id does not match the authenticated user"})
		return
	}

	msg, err := h.messaging.PostMessage(c.Request.Context(), services.PostMessageInput{
		ConversationID: req.ConversationID,
		Sender:         caller,
		Content:        req.Content,
		AttachmentIDs:  req.Attachments,
		Type:           req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages returns a conversation's messages, oldest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Query("conversationId"))
	if err != nil {
		badRequest(c, "invalid conversationId")
		return
	}
	caller := middleware.CurrentUser(c)
	if userID := c.Query("userId"); userID != "" && userID != caller.UserID.String() {
		c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match the authenticated user"})
		return
	}

	msgs, err := h.messaging.ListMessages(c.Request.Context(), conversationID, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead records that the caller has seen the given messages.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req struct {
		ConversationID uuid.UUID   `json:"conversation_id" binding:"required"`
		MessageIDs     []uuid.UUID `json:"message_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cleared, err := h.reads.MarkRead(c.Request.Context(), req.ConversationID, middleware.CurrentUser(c), req.MessageIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// UnreadCount returns how many conversations hold unread messages.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	n, err := h.reads.UnreadCount(c.Request.Context(), middleware.CurrentUser(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
