package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"swap-service/internal/models"
)

var (
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrProposalNotPending    = errors.New("proposal is not pending")
	ErrProposalAlreadyLinked = errors.New("proposal is linked to another message")
)

const proposalColumns = `id, exchange_type, initiator_id, partner_id, initiator_dates, partner_dates,
    initiator_details, partner_details, listing_id, conversation_id, status, message_id, created_at, responded_at`

// ProposalRepository persists reservations.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error)
	GetProposal(ctx context.Context, proposalID uuid.UUID) (models.Proposal, error)
	GetProposalByMessage(ctx context.Context, messageID uuid.UUID) (models.Proposal, error)
	AttachMessage(ctx context.Context, proposalID, messageID uuid.UUID) error
	TransitionStatus(ctx context.Context, proposalID uuid.UUID, to models.ProposalStatus) (models.Proposal, error)
}

// ProposalRepo is a sqlx implementation of ProposalRepository.
type ProposalRepo struct {
	db *sqlx.DB
}

// NewProposalRepo constructs a ProposalRepo.
func NewProposalRepo(db *sqlx.DB) *ProposalRepo {
	return &ProposalRepo{db: db}
}

// CreateProposal inserts a pending reservation.
func (r *ProposalRepo) CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	var out models.Proposal
	err := r.db.GetContext(ctx, &out, `INSERT INTO reservations
            (exchange_type, initiator_id, partner_id, initiator_dates, partner_dates, initiator_details, partner_details, listing_id, conversation_id, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
        RETURNING `+proposalColumns,
		p.ExchangeType, p.InitiatorID, p.PartnerID, p.InitiatorDates, p.PartnerDates,
		p.InitiatorDetails, p.PartnerDetails, p.ListingID, p.ConversationID)
	return out, err
}

func (r *ProposalRepo) GetProposal(ctx context.Context, proposalID uuid.UUID) (models.Proposal, error) {
	var p models.Proposal
	err := r.db.GetContext(ctx, &p, `SELECT `+proposalColumns+` FROM reservations WHERE id=$1`, proposalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, ErrProposalNotFound
	}
	return p, err
}

func (r *ProposalRepo) GetProposalByMessage(ctx context.Context, messageID uuid.UUID) (models.Proposal, error) {
	var p models.Proposal
	err := r.db.GetContext(ctx, &p, `SELECT `+proposalColumns+` FROM reservations WHERE message_id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, ErrProposalNotFound
	}
	return p, err
}

// AttachMessage records the announcing message. Linking the same message
// twice succeeds without change.
func (r *ProposalRepo) AttachMessage(ctx context.Context, proposalID, messageID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reservations SET message_id=$2
        WHERE id=$1 AND (message_id IS NULL OR message_id=$2)`, proposalID, messageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetProposal(ctx, proposalID); err != nil {
		return err
	}
	return ErrProposalAlreadyLinked
}

// TransitionStatus moves a pending proposal to a terminal status. The update
// only matches while the row is still pending, so concurrent responders
// cannot both win.
func (r *ProposalRepo) TransitionStatus(ctx context.Context, proposalID uuid.UUID, to models.ProposalStatus) (models.Proposal, error) {
	var p models.Proposal
	err := r.db.GetContext(ctx, &p, `UPDATE reservations SET status=$2, responded_at=NOW()
        WHERE id=$1 AND status='pending'
        RETURNING `+proposalColumns, proposalID, to)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, ErrProposalNotPending
	}
	return p, err
}
