package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"swap-service/internal/apperr"
	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/observability"
	"swap-service/internal/repositories"
	"swap-service/internal/telemetry"
)

// MessagePoster is the slice of MessagingService the proposal engine uses.
type MessagePoster interface {
	EnsureConversation(ctx context.Context, a, b models.Party, listingID uuid.NullUUID) (models.Conversation, error)
	PostMessage(ctx context.Context, in PostMessageInput) (models.Message, error)
}

// ListingLookup resolves the listing a proposal is made against.
type ListingLookup interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error)
}

// RespondInput addresses a proposal by id or by the message announcing it.
type RespondInput struct {
	ProposalID uuid.NullUUID
	MessageID  uuid.NullUUID
	Responder  middleware.Identity
	Decision   models.ProposalStatus
}

// ProposalService runs the swap proposal lifecycle.
type ProposalService struct {
	proposals repositories.ProposalRepository
	listings  ListingLookup
	messaging MessagePoster
	audit     *telemetry.AuditEmitter
	events    EventPublisher
}

// NewProposalService builds a ProposalService.
func NewProposalService(proposals repositories.ProposalRepository, listings ListingLookup, messaging MessagePoster, audit *telemetry.AuditEmitter, events EventPublisher) *ProposalService {
	return &ProposalService{
		proposals: proposals,
		listings:  listings,
		messaging: messaging,
		audit:     audit,
		events:    events,
	}
}

// ResponseContent is the body of the message answering a proposal.
func ResponseContent(decision models.ProposalStatus) string {
	return "SWOM proposal has been " + string(decision)
}

// CreateProposal records a pending reservation and announces it with a
// PROPOSAL message in the conversation between initiator and partner.
func (s *ProposalService) CreateProposal(ctx context.Context, initiator middleware.Identity, draft models.ProposalDraft) (models.Proposal, models.Message, error) {
	draft.InitiatorID = initiator.UserID
	if err := draft.Validate(); err != nil {
		return models.Proposal{}, models.Message{}, apperr.Validation("%s", err.Error())
	}
	listing, err := s.listings.GetListing(ctx, draft.ListingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return models.Proposal{}, models.Message{}, apperr.NotFound("listing not found")
		}
		return models.Proposal{}, models.Message{}, apperr.Dependency(err, "failed to load listing")
	}
	if listing.OwnerID != draft.InitiatorID && listing.OwnerID != draft.PartnerID {
		return models.Proposal{}, models.Message{}, apperr.Validation("listing belongs to neither party of the proposal")
	}

	conv, err := s.messaging.EnsureConversation(ctx,
		models.Party{ID: uuid.NullUUID{UUID: initiator.UserID, Valid: true}, Email: initiator.Email},
		models.PartyByID(draft.PartnerID),
		uuid.NullUUID{UUID: draft.ListingID, Valid: true})
	if err != nil {
		return models.Proposal{}, models.Message{}, err
	}

	p, err := s.proposals.CreateProposal(ctx, models.Proposal{
		ExchangeType:     draft.ExchangeType,
		InitiatorID:      draft.InitiatorID,
		PartnerID:        draft.PartnerID,
		InitiatorDates:   *draft.InitiatorDates,
		PartnerDates:     draft.PartnerDates,
		InitiatorDetails: draft.InitiatorDetails,
		PartnerDetails:   draft.PartnerDetails,
		ListingID:        draft.ListingID,
		ConversationID:   conv.ID,
		Status:           models.ProposalPending,
	})
	if err != nil {
		return models.Proposal{}, models.Message{}, apperr.Dependency(err, "failed to store proposal")
	}

	body, err := json.Marshal(p.Payload())
	if err != nil {
		return p, models.Message{}, apperr.Dependency(err, "failed to encode proposal")
	}
	msg, err := s.messaging.PostMessage(ctx, PostMessageInput{
		ConversationID: conv.ID,
		Sender:         initiator,
		Content:        string(body),
		Type:           models.MessageTypeProposal,
	})
	if err != nil {
		log.Printf("proposal announcement failed proposal_id=%s: %v", p.ID, err)
		return p, models.Message{}, err
	}

	if err := s.AttachToMessage(ctx, p.ID, msg.ID); err != nil {
		log.Printf("proposal link failed proposal_id=%s message_id=%s: %v", p.ID, msg.ID, err)
	} else {
		p.MessageID = uuid.NullUUID{UUID: msg.ID, Valid: true}
	}

	observability.IncProposalTransition(string(models.ProposalPending))
	publishEvent(ctx, s.events, RoutingProposalCreated, map[string]any{
		"proposal_id":     p.ID,
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
		"initiator_id":    p.InitiatorID,
		"partner_id":      p.PartnerID,
		"exchange_type":   p.ExchangeType,
	})
	return p, msg, nil
}

// AttachToMessage records the message announcing the proposal. Repeating the
// link to the same message is a no-op.
func (s *ProposalService) AttachToMessage(ctx context.Context, proposalID, messageID uuid.UUID) error {
	err := s.proposals.AttachMessage(ctx, proposalID, messageID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrProposalNotFound):
		return apperr.NotFound("proposal not found")
	case errors.Is(err, repositories.ErrProposalAlreadyLinked):
		return apperr.Conflict("proposal is already linked to another message")
	}
	return apperr.Dependency(err, "failed to link proposal")
}

// Respond accepts or rejects a pending proposal on behalf of its partner.
// The status change is a conditional update, so of two concurrent answers
// exactly one succeeds and the other gets a conflict.
func (s *ProposalService) Respond(ctx context.Context, in RespondInput) (models.Proposal, error) {
	if in.Decision != models.ProposalAccepted && in.Decision != models.ProposalRejected {
		return models.Proposal{}, apperr.Validation("decision must be accepted or rejected")
	}
	p, err := s.lookup(ctx, in.ProposalID, in.MessageID)
	if err != nil {
		return models.Proposal{}, err
	}
	if in.Responder.UserID == p.InitiatorID {
		return models.Proposal{}, apperr.Authorization("the initiator cannot respond to their own proposal")
	}
	if in.Responder.UserID != p.PartnerID {
		return models.Proposal{}, apperr.Authorization("only the proposal partner can respond")
	}
	if p.Status != models.ProposalPending {
		return models.Proposal{}, apperr.Conflict("proposal already %s", p.Status)
	}

	updated, err := s.proposals.TransitionStatus(ctx, p.ID, in.Decision)
	if err != nil {
		if errors.Is(err, repositories.ErrProposalNotPending) {
			return models.Proposal{}, apperr.Conflict("proposal is no longer pending")
		}
		return models.Proposal{}, apperr.Dependency(err, "failed to update proposal")
	}
	observability.IncProposalTransition(string(updated.Status))

	if _, err := s.messaging.PostMessage(ctx, PostMessageInput{
		ConversationID: updated.ConversationID,
		Sender:         in.Responder,
		Content:        ResponseContent(updated.Status),
		Type:           models.MessageTypeProposalResponse,
	}); err != nil {
		log.Printf("proposal response message failed proposal_id=%s: %v", updated.ID, err)
	}

	responder := in.Responder.UserID.String()
	s.audit.Emit(ctx, telemetry.AuditEntry{
		Level:      "INFO",
		Text:       "proposal " + string(updated.Status),
		Action:     "proposal." + string(updated.Status),
		ResourceID: updated.ID.String(),
		RequestID:  telemetry.RequestID(ctx),
		UserID:     &responder,
	})
	publishEvent(ctx, s.events, RoutingProposalResolved, map[string]any{
		"proposal_id":     updated.ID,
		"conversation_id": updated.ConversationID,
		"status":          updated.Status,
		"responder_id":    in.Responder.UserID,
	})
	return updated, nil
}

// GetStatus returns the proposal's current status.
func (s *ProposalService) GetStatus(ctx context.Context, proposalID uuid.UUID) (models.ProposalStatus, error) {
	p, err := s.lookup(ctx, uuid.NullUUID{UUID: proposalID, Valid: true}, uuid.NullUUID{})
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

// GetProposal returns a proposal to one of its two parties.
func (s *ProposalService) GetProposal(ctx context.Context, proposalID uuid.UUID, requester middleware.Identity) (models.Proposal, error) {
	p, err := s.lookup(ctx, uuid.NullUUID{UUID: proposalID, Valid: true}, uuid.NullUUID{})
	if err != nil {
		return models.Proposal{}, err
	}
	if requester.UserID != p.InitiatorID && requester.UserID != p.PartnerID {
		return models.Proposal{}, apperr.Authorization("not a party to this proposal")
	}
	return p, nil
}

func (s *ProposalService) lookup(ctx context.Context, proposalID, messageID uuid.NullUUID) (models.Proposal, error) {
	var (
		p   models.Proposal
		err error
	)
	switch {
	case proposalID.Valid:
		p, err = s.proposals.GetProposal(ctx, proposalID.UUID)
	case messageID.Valid:
		p, err = s.proposals.GetProposalByMessage(ctx, messageID.UUID)
	default:
		return models.Proposal{}, apperr.Validation("proposal id or message id is required")
	}
	if err != nil {
		if errors.Is(err, repositories.ErrProposalNotFound) {
			return models.Proposal{}, apperr.NotFound("proposal not found")
		}
		return models.Proposal{}, apperr.Dependency(err, "failed to load proposal")
	}
	return p, nil
}
