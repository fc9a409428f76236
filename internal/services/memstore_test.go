package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"swap-service/internal/mailer"
	"swap-service/internal/models"
	"swap-service/internal/repositories"
	"swap-service/internal/storage"
)

// memStore is an in-memory stand-in for every repository the services use.
type memStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]models.Profile
	listings  map[uuid.UUID]models.Listing
	convs     []models.Conversation
	msgs      []models.Message
	seq       int64
	atts      map[uuid.UUID]models.Attachment
	proposals map[uuid.UUID]models.Proposal
	receipts  map[[2]uuid.UUID]models.ReadReceipt

	createMessageErr error
}

func newMemStore() *memStore {
	return &memStore{
		profiles:  map[uuid.UUID]models.Profile{},
		listings:  map[uuid.UUID]models.Listing{},
		atts:      map[uuid.UUID]models.Attachment{},
		proposals: map[uuid.UUID]models.Proposal{},
		receipts:  map[[2]uuid.UUID]models.ReadReceipt{},
	}
}

func (s *memStore) addProfile(email, name string) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Profile{ID: uuid.New(), Email: email, FullName: name}
	s.profiles[p.ID] = p
	return p
}

func (s *memStore) addListing(owner uuid.UUID, title string) models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := models.Listing{ID: uuid.New(), OwnerID: owner, Title: title}
	s.listings[l.ID] = l
	return l
}

func (s *memStore) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, repositories.ErrProfileNotFound
	}
	return p, nil
}

func (s *memStore) GetProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if models.NormalizeEmail(p.Email) == models.NormalizeEmail(email) {
			return p, nil
		}
	}
	return models.Profile{}, repositories.ErrProfileNotFound
}

func (s *memStore) GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return models.Listing{}, repositories.ErrListingNotFound
	}
	return l, nil
}

func (s *memStore) CreateOrGetConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.convs {
		if c.UserEmail == conv.UserEmail && c.HostEmail == conv.HostEmail && c.ListingID == conv.ListingID {
			if !c.UserID.Valid && conv.UserID.Valid {
				s.convs[i].UserID = conv.UserID
				s.backfillUnread(c.ID, conv.UserID.UUID)
			}
			if !c.HostID.Valid && conv.HostID.Valid {
				s.convs[i].HostID = conv.HostID
				s.backfillUnread(c.ID, conv.HostID.UUID)
			}
			return s.convs[i], nil
		}
	}
	conv.ID = uuid.New()
	conv.CreatedAt = time.Now()
	s.convs = append(s.convs, conv)
	return conv, nil
}

// backfillUnread expects s.mu to be held.
func (s *memStore) backfillUnread(conversationID, userID uuid.UUID) {
	key := [2]uuid.UUID{conversationID, userID}
	if _, ok := s.receipts[key]; ok {
		return
	}
	var latest *models.Message
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.ConversationID == conversationID && m.SenderID != userID && (latest == nil || m.Seq > latest.Seq) {
			latest = m
		}
	}
	if latest == nil {
		return
	}
	s.receipts[key] = models.ReadReceipt{
		ConversationID: conversationID,
		UserID:         userID,
		LastMessageID:  latest.ID,
		UpdatedAt:      time.Now(),
	}
}

func (s *memStore) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.ID == conversationID {
			return c, nil
		}
	}
	return models.Conversation{}, repositories.ErrConversationNotFound
}

func (s *memStore) ListConversations(ctx context.Context, userID uuid.UUID, email string) ([]models.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ConversationSummary
	for _, c := range s.convs {
		if c.IsParticipant(userID, email) {
			_, unread := s.receipts[[2]uuid.UUID{c.ID, userID}]
			out = append(out, models.ConversationSummary{Conversation: c, Unread: unread})
		}
	}
	return out, nil
}

func (s *memStore) CreateMessage(ctx context.Context, nm models.NewMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createMessageErr != nil {
		return models.Message{}, s.createMessageErr
	}
	idx := -1
	for i, c := range s.convs {
		if c.ID == nm.ConversationID {
			idx = i
		}
	}
	if idx < 0 {
		return models.Message{}, repositories.ErrConversationNotFound
	}
	s.seq++
	msg := models.Message{
		ID:             uuid.New(),
		Seq:            s.seq,
		ConversationID: nm.ConversationID,
		SenderID:       nm.SenderID,
		Content:        nm.Content,
		Type:           nm.Type,
		CreatedAt:      time.Now(),
	}
	s.msgs = append(s.msgs, msg)
	s.convs[idx].LastMessage = nm.Preview
	s.convs[idx].LastMessageAt = &msg.CreatedAt
	if nm.RecipientID.Valid {
		s.receipts[[2]uuid.UUID{nm.ConversationID, nm.RecipientID.UUID}] = models.ReadReceipt{
			ConversationID: nm.ConversationID,
			UserID:         nm.RecipientID.UUID,
			LastMessageID:  msg.ID,
			UpdatedAt:      msg.CreatedAt,
		}
	}
	return msg, nil
}

func (s *memStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		m.Attachments = []models.Attachment{}
		for _, a := range s.atts {
			if a.State == models.AttachmentLinked && a.MessageID.Valid && a.MessageID.UUID == m.ID {
				m.Attachments = append(m.Attachments, a)
			}
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *memStore) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID == messageID {
			return m, nil
		}
	}
	return models.Message{}, repositories.ErrMessageNotFound
}

func (s *memStore) messagesIn(conversationID uuid.UUID) []models.Message {
	msgs, _ := s.ListMessages(context.Background(), conversationID)
	return msgs
}

func (s *memStore) CreateAttachment(ctx context.Context, att models.Attachment) (models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att.ID = uuid.New()
	att.State = models.AttachmentPending
	att.CreatedAt = time.Now()
	s.atts[att.ID] = att
	return att, nil
}

func (s *memStore) GetAttachments(ctx context.Context, conversationID uuid.UUID, ids []uuid.UUID) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attachment
	for _, id := range ids {
		if a, ok := s.atts[id]; ok && a.ConversationID == conversationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) LinkAttachments(ctx context.Context, ids []uuid.UUID, conversationID, messageID uuid.UUID) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attachment
	for _, id := range ids {
		a, ok := s.atts[id]
		if !ok || a.ConversationID != conversationID {
			continue
		}
		if a.MessageID.Valid && a.MessageID.UUID != messageID {
			continue
		}
		a.MessageID = uuid.NullUUID{UUID: messageID, Valid: true}
		a.State = models.AttachmentLinked
		s.atts[id] = a
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attachment
	for _, a := range s.atts {
		if a.State == models.AttachmentPending && a.CreatedAt.Before(olderThan) && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) DeletePending(ctx context.Context, attachmentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.atts[attachmentID]; ok && a.State == models.AttachmentPending {
		delete(s.atts, attachmentID)
	}
	return nil
}

func (s *memStore) CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	s.proposals[p.ID] = p
	return p, nil
}

func (s *memStore) GetProposal(ctx context.Context, proposalID uuid.UUID) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[proposalID]
	if !ok {
		return models.Proposal{}, repositories.ErrProposalNotFound
	}
	return p, nil
}

func (s *memStore) GetProposalByMessage(ctx context.Context, messageID uuid.UUID) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.MessageID.Valid && p.MessageID.UUID == messageID {
			return p, nil
		}
	}
	return models.Proposal{}, repositories.ErrProposalNotFound
}

func (s *memStore) AttachMessage(ctx context.Context, proposalID, messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[proposalID]
	if !ok {
		return repositories.ErrProposalNotFound
	}
	if p.MessageID.Valid {
		if p.MessageID.UUID == messageID {
			return nil
		}
		return repositories.ErrProposalAlreadyLinked
	}
	p.MessageID = uuid.NullUUID{UUID: messageID, Valid: true}
	s.proposals[proposalID] = p
	return nil
}

func (s *memStore) TransitionStatus(ctx context.Context, proposalID uuid.UUID, to models.ProposalStatus) (models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[proposalID]
	if !ok || p.Status != models.ProposalPending {
		return models.Proposal{}, repositories.ErrProposalNotPending
	}
	now := time.Now()
	p.Status = to
	p.RespondedAt = &now
	s.proposals[proposalID] = p
	return p, nil
}

func (s *memStore) receipt(conversationID, userID uuid.UUID) (models.ReadReceipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[[2]uuid.UUID{conversationID, userID}]
	return r, ok
}

func (s *memStore) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, messageIDs []uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{conversationID, userID}
	r, ok := s.receipts[key]
	if !ok {
		return false, nil
	}
	for _, id := range messageIDs {
		if id == r.LastMessageID {
			delete(s.receipts, key)
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.receipts {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListPendingDigests(ctx context.Context) ([]models.PendingDigest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PendingDigest
	for _, r := range s.receipts {
		if r.Notified {
			continue
		}
		p := s.profiles[r.UserID]
		var last string
		for _, c := range s.convs {
			if c.ID == r.ConversationID {
				last = c.LastMessage
			}
		}
		out = append(out, models.PendingDigest{
			ConversationID: r.ConversationID,
			UserID:         r.UserID,
			UpdatedAt:      r.UpdatedAt,
			Email:          p.Email,
			FullName:       p.FullName,
			LastMessage:    last,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

func (s *memStore) MarkNotified(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range conversationIDs {
		key := [2]uuid.UUID{id, userID}
		if r, ok := s.receipts[key]; ok && !r.UpdatedAt.After(asOf) {
			r.Notified = true
			s.receipts[key] = r
		}
	}
	return nil
}

type notifyCall struct {
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	SenderID       uuid.UUID
	RecipientID    uuid.NullUUID
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) BroadcastNewMessage(ctx context.Context, conversationID, messageID, senderID uuid.UUID, recipientID uuid.NullUUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{conversationID, messageID, senderID, recipientID})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (storage.Object, error) {
	if m.putErr != nil {
		return storage.Object{}, m.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return storage.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return storage.Object{Key: key, URL: "https://files.test/" + key}, nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(m.objects, key)
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Mail
	fail map[string]bool
}

func (r *recordingSender) Send(ctx context.Context, m mailer.Mail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[m.To] {
		return errors.New("mailbox unavailable")
	}
	r.sent = append(r.sent, m)
	return nil
}
