package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"swap-service/internal/mailer"
	"swap-service/internal/models"
	"swap-service/internal/storage"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateOrGetConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	args := m.Called(ctx, conv)
	var out models.Conversation
	if val := args.Get(0); val != nil {
		out = val.(models.Conversation)
	}
	return out, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var out models.Conversation
	if val := args.Get(0); val != nil {
		out = val.(models.Conversation)
	}
	return out, args.Error(1)
}

func (m *ConversationRepositoryMock) ListConversations(ctx context.Context, userID uuid.UUID, email string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID, email)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, nm models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, nm)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

func (m *DirectoryRepositoryMock) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *DirectoryRepositoryMock) GetProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	args := m.Called(ctx, email)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

func (m *DirectoryRepositoryMock) GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error) {
	args := m.Called(ctx, listingID)
	var l models.Listing
	if val := args.Get(0); val != nil {
		l = val.(models.Listing)
	}
	return l, args.Error(1)
}

type AttachmentRepositoryMock struct {
	mock.Mock
}

func (m *AttachmentRepositoryMock) CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error) {
	args := m.Called(ctx, att)
	var out models.Attachment
	if val := args.Get(0); val != nil {
		out = val.(models.Attachment)
	}
	return out, args.Error(1)
}

func (m *AttachmentRepositoryMock) GetAttachments(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error) {
	args := m.Called(ctx, conversationID, ids)
	var out []models.Attachment
	if val := args.Get(0); val != nil {
		out = val.([]models.Attachment)
	}
	return out, args.Error(1)
}

func (m *AttachmentRepositoryMock) LinkAttachments(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error) {
	args := m.Called(ctx, ids, conversationID, messageID)
	var out []models.Attachment
	if val := args.Get(0); val != nil {
		out = val.([]models.Attachment)
	}
	return out, args.Error(1)
}

func (m *AttachmentRepositoryMock) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Attachment, error) {
	args := m.Called(ctx, olderThan, limit)
	var out []models.Attachment
	if val := args.Get(0); val != nil {
		out = val.([]models.Attachment)
	}
	return out, args.Error(1)
}

func (m *AttachmentRepositoryMock) DeletePending(ctx context.Context, attachmentID uuid.UUID) error {
	args := m.Called(ctx, attachmentID)
	return args.Error(0)
}

type ProposalRepositoryMock struct {
	mock.Mock
}

func (m *ProposalRepositoryMock) CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	args := m.Called(ctx, p)
	var out models.Proposal
	if val := args.Get(0); val != nil {
		out = val.(models.Proposal)
	}
	return out, args.Error(1)
}

func (m *ProposalRepositoryMock) GetProposal(ctx context.Context, proposalID uuid.UUID) (models.Proposal, error) {
	args := m.Called(ctx, proposalID)
	var out models.Proposal
	if val := args.Get(0); val != nil {
		out = val.(models.Proposal)
	}
	return out, args.Error(1)
}

func (m *ProposalRepositoryMock) GetProposalByMessage(ctx context.Context, messageID uuid.UUID) (models.Proposal, error) {
	args := m.Called(ctx, messageID)
	var out models.Proposal
	if val := args.Get(0); val != nil {
		out = val.(models.Proposal)
	}
	return out, args.Error(1)
}

func (m *ProposalRepositoryMock) AttachMessage(ctx context.Context, proposalID, messageID uuid.UUID) error {
	args := m.Called(ctx, proposalID, messageID)
	return args.Error(0)
}

func (m *ProposalRepositoryMock) TransitionStatus(ctx context.Context, proposalID uuid.UUID, to models.ProposalStatus) (models.Proposal, error) {
	args := m.Called(ctx, proposalID, to)
	var out models.Proposal
	if val := args.Get(0); val != nil {
		out = val.(models.Proposal)
	}
	return out, args.Error(1)
}

type ReadReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReadReceiptRepositoryMock) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, messageIDs []uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID, messageIDs)
	return args.Bool(0), args.Error(1)
}

func (m *ReadReceiptRepositoryMock) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *ReadReceiptRepositoryMock) ListPendingDigests(ctx context.Context) ([]models.PendingDigest, error) {
	args := m.Called(ctx)
	var out []models.PendingDigest
	if val := args.Get(0); val != nil {
		out = val.([]models.PendingDigest)
	}
	return out, args.Error(1)
}

func (m *ReadReceiptRepositoryMock) MarkNotified(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID, asOf time.Time) error {
	args := m.Called(ctx, userID, conversationIDs, asOf)
	return args.Error(0)
}

type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (storage.Object, error) {
	args := m.Called(ctx, key, contentType, body, size)
	var obj storage.Object
	if val := args.Get(0); val != nil {
		obj = val.(storage.Object)
	}
	return obj, args.Error(1)
}

func (m *ObjectStoreMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MailSenderMock struct {
	mock.Mock
}

func (m *MailSenderMock) Send(ctx context.Context, mail mailer.Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
