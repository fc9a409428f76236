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

// Proposals is the proposal engine surface of the services layer.
type Proposals interface {
	CreateProposal(ctx context.Context, initiator middleware.Identity, draft models.ProposalDraft) (models.Proposal, models.Message, error)
	Respond(ctx context.Context, in services.RespondInput) (models.Proposal, error)
	GetStatus(ctx context.Context, proposalID uuid.UUID) (models.ProposalStatus, error)
	GetProposal(ctx context.Context, proposalID uuid.UUID, requester middleware.Identity) (models.Proposal, error)
}

// ProposalHandler serves the swap proposal endpoints.
type ProposalHandler struct {
	proposals Proposals
}

// NewProposalHandler builds a ProposalHandler.
func NewProposalHandler(proposals Proposals) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// CreateProposal records a pending reservation and announces it in the
// conversation with the partner.
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req struct {
		PartnerID        uuid.UUID           `json:"partner_id" binding:"required"`
		ListingID        uuid.UUID           `json:"listing_id" binding:"required"`
		ExchangeType     models.ExchangeType `json:"exchange_type" binding:"required"`
		InitiatorDates   *models.DateRange   `json:"initiator_dates"`
		PartnerDates     *models.DateRange   `json:"partner_dates"`
		InitiatorDetails models.PartyDetails `json:"initiator_details"`
		PartnerDetails   models.PartyDetails `json:"partner_details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, msg, err := h.proposals.CreateProposal(c.Request.Context(), middleware.CurrentUser(c), models.ProposalDraft{
		PartnerID:        req.PartnerID,
		ListingID:        req.ListingID,
		ExchangeType:     req.ExchangeType,
		InitiatorDates:   req.InitiatorDates,
		PartnerDates:     req.PartnerDates,
		InitiatorDetails: req.InitiatorDetails,
		PartnerDetails:   req.PartnerDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reservation": p, "message": msg})
}

// Respond accepts or rejects a proposal, addressed by id or message id.
func (h *ProposalHandler) Respond(c *gin.Context) {
	var req struct {
		ID        uuid.NullUUID         `json:"id"`
		MessageID uuid.NullUUID         `json:"message_id"`
		Decision  models.ProposalStatus `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.proposals.Respond(c.Request.Context(), services.RespondInput{
		ProposalID: req.ID,
		MessageID:  req.MessageID,
		Responder:  middleware.CurrentUser(c),
		Decision:   req.Decision,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": p})
}

// Status returns a proposal's current status.
func (h *ProposalHandler) Status(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid proposal id")
		return
	}
	status, err := h.proposals.GetStatus(c.Request.Context(), proposalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": proposalID, "status": status})
}

// Get returns the full proposal to one of its parties.
func (h *ProposalHandler) Get(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid proposal id")
		return
	}
	p, err := h.proposals.GetProposal(c.Request.Context(), proposalID, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": p})
}
