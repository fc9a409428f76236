package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"swap-service/internal/apperr"
	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/observability"
	"swap-service/internal/repositories"
)

const (
	proposalPreview   = "SWOM proposal"
	attachmentPreview = "[attachment]"
	maxPreviewRunes   = 200
)

// MessageNotifier pushes realtime events for a newly stored message.
type MessageNotifier interface {
	BroadcastNewMessage(ctx context.Context, conversationID, messageID, senderID uuid.UUID, recipientID uuid.NullUUID)
}

// AttachmentLinker resolves uploaded attachments and binds them to messages.
type AttachmentLinker interface {
	Pending(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error)
	Link(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error)
}

// PostMessageInput is one message submitted by a participant.
type PostMessageInput struct {
	ConversationID uuid.UUID
	Sender         middleware.Identity
	Content        string
	AttachmentIDs  []uuid.UUID
	Type           models.MessageType
}

// MessagingService owns conversations and the messages posted in them.
type MessagingService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	directory     repositories.DirectoryRepository
	attachments   AttachmentLinker
	notifier      MessageNotifier
	events        EventPublisher
}

// NewMessagingService builds a MessagingService.
func NewMessagingService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, directory repositories.DirectoryRepository, attachments AttachmentLinker, notifier MessageNotifier, events EventPublisher) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		directory:     directory,
		attachments:   attachments,
		notifier:      notifier,
		events:        events,
	}
}

// EnsureConversation finds or creates the conversation between a (visitor
// side) and b (host side) for the listing. When b is empty the listing
// owner is used, and the listing owner always lands on the host side.
func (s *MessagingService) EnsureConversation(ctx context.Context, a, b models.Party, listingID uuid.NullUUID) (models.Conversation, error) {
	if a.IsZero() {
		return models.Conversation{}, apperr.Validation("participant is required")
	}
	if listingID.Valid {
		listing, err := s.directory.GetListing(ctx, listingID.UUID)
		if err != nil {
			if errors.Is(err, repositories.ErrListingNotFound) {
				return models.Conversation{}, apperr.NotFound("listing not found")
			}
			return models.Conversation{}, apperr.Dependency(err, "failed to load listing")
		}
		if b.IsZero() {
			b = models.PartyByID(listing.OwnerID)
		}
		if a.ID.Valid && a.ID.UUID == listing.OwnerID {
			a, b = b, a
		}
	}
	if b.IsZero() {
		return models.Conversation{}, apperr.Validation("counterpart is required")
	}

	user, err := s.resolveParty(ctx, a)
	if err != nil {
		return models.Conversation{}, err
	}
	host, err := s.resolveParty(ctx, b)
	if err != nil {
		return models.Conversation{}, err
	}
	if (user.ID.Valid && host.ID.Valid && user.ID.UUID == host.ID.UUID) || user.Email == host.Email {
		return models.Conversation{}, apperr.Validation("cannot start a conversation with yourself")
	}
	// Without a listing there is no host, so the pair is stored in email order.
	if !listingID.Valid && host.Email < user.Email {
		user, host = host, user
	}

	conv, err := s.conversations.CreateOrGetConversation(ctx, models.Conversation{
		UserID:    user.ID,
		UserEmail: user.Email,
		HostID:    host.ID,
		HostEmail: host.Email,
		ListingID: listingID,
	})
	if err != nil {
		return models.Conversation{}, apperr.Dependency(err, "failed to open conversation")
	}
	return conv, nil
}

// resolveParty fills in the email of a side known by id and the id of a
// side known by email. A counterpart without an account stays email-only.
func (s *MessagingService) resolveParty(ctx context.Context, p models.Party) (models.Party, error) {
	p.Email = models.NormalizeEmail(p.Email)
	if p.ID.Valid {
		if p.Email != "" {
			return p, nil
		}
		profile, err := s.directory.GetProfile(ctx, p.ID.UUID)
		if err != nil {
			if errors.Is(err, repositories.ErrProfileNotFound) {
				return p, apperr.NotFound("user not found")
			}
			return p, apperr.Dependency(err, "failed to load profile")
		}
		p.Email = models.NormalizeEmail(profile.Email)
		return p, nil
	}

	profile, err := s.directory.GetProfileByEmail(ctx, p.Email)
	switch {
	case err == nil:
		p.ID = uuid.NullUUID{UUID: profile.ID, Valid: true}
	case errors.Is(err, repositories.ErrProfileNotFound):
	default:
		return p, apperr.Dependency(err, "failed to load profile")
	}
	return p, nil
}

// Conversation loads a conversation the requester participates in.
func (s *MessagingService) Conversation(ctx context.Context, conversationID uuid.UUID, requester middleware.Identity) (models.Conversation, error) {
	return loadConversation(ctx, s.conversations, conversationID, requester)
}

func loadConversation(ctx context.Context, repo repositories.ConversationRepository, conversationID uuid.UUID, requester middleware.Identity) (models.Conversation, error) {
	conv, err := repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return models.Conversation{}, apperr.NotFound("conversation not found")
		}
		return models.Conversation{}, apperr.Dependency(err, "failed to load conversation")
	}
	if !conv.IsParticipant(requester.UserID, requester.Email) {
		return models.Conversation{}, apperr.Authorization("not a conversation participant")
	}
	return conv, nil
}

// PostMessage stores a message and updates the conversation and the
// recipient's unread marker in one transaction. Linking attachments,
// realtime delivery and the domain event follow the commit and never undo it.
func (s *MessagingService) PostMessage(ctx context.Context, in PostMessageInput) (models.Message, error) {
	if !in.Type.Valid() {
		return models.Message{}, apperr.Validation("unknown message type %q", in.Type)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.AttachmentIDs) == 0 {
		return models.Message{}, apperr.Validation("message content or attachments are required")
	}

	conv, err := s.Conversation(ctx, in.ConversationID, in.Sender)
	if err != nil {
		return models.Message{}, err
	}

	var pending []models.Attachment
	if len(in.AttachmentIDs) > 0 && s.attachments != nil {
		pending, err = s.attachments.Pending(ctx, conv.ID, in.AttachmentIDs)
		if err != nil {
			return models.Message{}, err
		}
		if content == "" && len(pending) == 0 {
			return models.Message{}, apperr.Validation("attachments not found in this conversation")
		}
	}

	recipientID, _ := conv.Counterpart(in.Sender.UserID, in.Sender.Email)
	msg, err := s.messages.CreateMessage(ctx, models.NewMessage{
		ConversationID: conv.ID,
		SenderID:       in.Sender.UserID,
		Content:        content,
		Type:           in.Type,
		Preview:        preview(in.Type, content, pending),
		RecipientID:    recipientID,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return models.Message{}, apperr.NotFound("conversation not found")
		}
		return models.Message{}, apperr.Dependency(err, "failed to store message")
	}
	observability.IncMessagePosted(string(msg.Type))

	if len(in.AttachmentIDs) > 0 && s.attachments != nil {
		linked, err := s.attachments.Link(ctx, in.AttachmentIDs, conv.ID, msg.ID)
		if err != nil {
			log.Printf("attachment link failed message_id=%s: %v", msg.ID, err)
		}
		msg.Attachments = linked
	}
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}

	if s.notifier != nil {
		s.notifier.BroadcastNewMessage(ctx, conv.ID, msg.ID, msg.SenderID, recipientID)
	}
	publishEvent(ctx, s.events, RoutingMessagePosted, map[string]any{
		"message_id":      msg.ID,
		"conversation_id": conv.ID,
		"sender_id":       msg.SenderID,
		"type":            msg.Type,
		"attachments":     len(msg.Attachments),
	})
	return msg, nil
}

// ListMessages returns the conversation's messages oldest first.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID uuid.UUID, requester middleware.Identity) ([]models.Message, error) {
	if _, err := s.Conversation(ctx, conversationID, requester); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load messages")
	}
	return msgs, nil
}

// ListConversations returns the requester's conversations, newest activity first.
func (s *MessagingService) ListConversations(ctx context.Context, requester middleware.Identity) ([]models.ConversationSummary, error) {
	list, err := s.conversations.ListConversations(ctx, requester.UserID, requester.Email)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to load conversations")
	}
	return list, nil
}

func preview(t models.MessageType, content string, attachments []models.Attachment) string {
	if t == models.MessageTypeProposal {
		return proposalPreview
	}
	if content == "" {
		if len(attachments) > 0 {
			return attachmentPreview + " " + attachments[0].Filename
		}
		return attachmentPreview
	}
	if utf8.RuneCountInString(content) > maxPreviewRunes {
		return string([]rune(content)[:maxPreviewRunes])
	}
	return content
}
