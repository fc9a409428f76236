package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"swap-service/internal/middleware"
	"swap-service/internal/models"
	"swap-service/internal/services"
)

type messagingMock struct {
	mock.Mock
}

func (m *messagingMock) EnsureConversation(ctx context.Context, a, b models.Party, listingID uuid.NullUUID) (models.Conversation, error) {
	args := m.Called(ctx, a, b, listingID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *messagingMock) PostMessage(ctx context.Context, in services.PostMessageInput) (models.Message, error) {
	args := m.Called(ctx, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *messagingMock) ListMessages(ctx context.Context, conversationID uuid.UUID, requester middleware.Identity) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, requester)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *messagingMock) ListConversations(ctx context.Context, requester middleware.Identity) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, requester)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

type readTrackerMock struct {
	mock.Mock
}

func (m *readTrackerMock) MarkRead(ctx context.Context, conversationID uuid.UUID, reader middleware.Identity, messageIDs []uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, reader, messageIDs)
	return args.Bool(0), args.Error(1)
}

func (m *readTrackerMock) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *readTrackerMock) NotifyUnread(ctx context.Context) (services.SweepSummary, error) {
	args := m.Called(ctx)
	var summary services.SweepSummary
	if val := args.Get(0); val != nil {
		summary = val.(services.SweepSummary)
	}
	return summary, args.Error(1)
}

type proposalsMock struct {
	mock.Mock
}

func (m *proposalsMock) CreateProposal(ctx context.Context, initiator middleware.Identity, draft models.ProposalDraft) (models.Proposal, models.Message, error) {
	args := m.Called(ctx, initiator, draft)
	var (
		p   models.Proposal
		msg models.Message
	)
	if val := args.Get(0); val != nil {
		p = val.(models.Proposal)
	}
	if val := args.Get(1); val != nil {
		msg = val.(models.Message)
	}
	return p, msg, args.Error(2)
}

func (m *proposalsMock) Respond(ctx context.Context, in services.RespondInput) (models.Proposal, error) {
	args := m.Called(ctx, in)
	var p models.Proposal
	if val := args.Get(0); val != nil {
		p = val.(models.Proposal)
	}
	return p, args.Error(1)
}

func (m *proposalsMock) GetStatus(ctx context.Context, proposalID uuid.UUID) (models.ProposalStatus, error) {
	args := m.Called(ctx, proposalID)
	return args.Get(0).(models.ProposalStatus), args.Error(1)
}

func (m *proposalsMock) GetProposal(ctx context.Context, proposalID uuid.UUID, requester middleware.Identity) (models.Proposal, error) {
	args := m.Called(ctx, proposalID, requester)
	var p models.Proposal
	if val := args.Get(0); val != nil {
		p = val.(models.Proposal)
	}
	return p, args.Error(1)
}

type uploaderMock struct {
	mock.Mock
}

func (m *uploaderMock) Upload(ctx context.Context, in services.UploadInput) (models.Attachment, error) {
	args := m.Called(ctx, in)
	var att models.Attachment
	if val := args.Get(0); val != nil {
		att = val.(models.Attachment)
	}
	return att, args.Error(1)
}
