package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swap-service/internal/apperr"
	"swap-service/internal/middleware"
	"swap-service/internal/mocks"
	"swap-service/internal/models"
	"swap-service/internal/observability"
	"swap-service/internal/repositories"
	"swap-service/internal/telemetry"
)

func TestPostMessagePublishesDomainEvent(t *testing.T) {
	h := newHarness(t)
	conv := h.conversation(t)
	publisher := new(mocks.PublisherMock)
	h.messaging.events = publisher

	publisher.On("Publish", mock.Anything, RoutingMessagePosted, mock.MatchedBy(func(ev any) bool {
		env, ok := ev.(observability.EventEnvelope)
		return ok && env.EventName == RoutingMessagePosted && env.Headers["x-request-id"] == "req-7"
	})).Return(assert.AnError).Once()

	ctx := telemetry.WithRequestID(context.Background(), "req-7")
	_, err := h.messaging.PostMessage(ctx, PostMessageInput{ConversationID: conv.ID, Sender: h.alice, Content: "hello"})
	require.NoError(t, err, "a failing bus never fails the post")
	publisher.AssertExpectations(t)
}

func TestRespondEmitsAudit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	auditBus := new(mocks.PublisherMock)
	h.proposals.audit = telemetry.NewAuditEmitter(auditBus, "audit.logs", "swap-service", "test")

	p, _, err := h.proposals.CreateProposal(ctx, h.alice, h.draft())
	require.NoError(t, err)

	auditBus.On("Publish", mock.Anything, "audit.logs", mock.MatchedBy(func(ev any) bool {
		env, ok := ev.(telemetry.AuditEnvelope)
		return ok && env.Payload.Action == "proposal.accepted" && env.Payload.ResourceID == p.ID.String()
	})).Return(nil).Once()

	_, err = h.proposals.Respond(ctx, RespondInput{ProposalID: uuid.NullUUID{UUID: p.ID, Valid: true}, Responder: h.bob, Decision: models.ProposalAccepted})
	require.NoError(t, err)
	auditBus.AssertExpectations(t)
}

func TestRespondMapsRepositoryErrors(t *testing.T) {
	repo := new(mocks.ProposalRepositoryMock)
	svc := NewProposalService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	initiator, partner := uuid.New(), uuid.New()
	pending := models.Proposal{ID: uuid.New(), InitiatorID: initiator, PartnerID: partner, Status: models.ProposalPending}

	repo.On("GetProposal", mock.Anything, pending.ID).Return(pending, nil)
	repo.On("TransitionStatus", mock.Anything, pending.ID, models.ProposalAccepted).Return(nil, repositories.ErrProposalNotPending).Once()
	repo.On("TransitionStatus", mock.Anything, pending.ID, models.ProposalRejected).Return(nil, assert.AnError).Once()

	in := RespondInput{ProposalID: uuid.NullUUID{UUID: pending.ID, Valid: true}, Responder: middleware.Identity{UserID: partner}}

	in.Decision = models.ProposalAccepted
	_, err := svc.Respond(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	in.Decision = models.ProposalRejected
	_, err = svc.Respond(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindDependency))

	repo.On("GetProposalByMessage", mock.Anything, mock.Anything).Return(nil, repositories.ErrProposalNotFound).Once()
	_, err = svc.Respond(ctx, RespondInput{MessageID: uuid.NullUUID{UUID: uuid.New(), Valid: true}, Responder: middleware.Identity{UserID: partner}, Decision: models.ProposalAccepted})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	repo.AssertExpectations(t)
}

func TestListConversationsDependencyError(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	svc := NewMessagingService(convRepo, nil, nil, nil, nil, nil)
	caller := middleware.Identity{UserID: uuid.New(), Email: "a@example.com"}

	convRepo.On("ListConversations", mock.Anything, caller.UserID, caller.Email).Return(nil, assert.AnError).Once()

	_, err := svc.ListConversations(context.Background(), caller)
	assert.True(t, apperr.Is(err, apperr.KindDependency))
	convRepo.AssertExpectations(t)
}
