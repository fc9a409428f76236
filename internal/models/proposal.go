package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExchangeType says whether both homes are swapped over the same window.
type ExchangeType string

const (
	ExchangeSimultaneous    ExchangeType = "simultaneous"
	ExchangeNonSimultaneous ExchangeType = "non_simultaneous"
)

// ProposalStatus is the reservation state. Accepted and rejected are terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalAccepted || s == ProposalRejected
}

// DateLayout is the wire and storage format of stay dates.
const DateLayout = "2006-01-02"

// DateRange is an inclusive stay window.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Validate checks that both ends parse and start <= end.
func (r DateRange) Validate() error {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid startDate %q", r.StartDate)
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return fmt.Errorf("invalid endDate %q", r.EndDate)
	}
	if start.After(end) {
		return fmt.Errorf("startDate %s is after endDate %s", r.StartDate, r.EndDate)
	}
	return nil
}

// Value stores the range as JSONB.
func (r DateRange) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan reads a JSONB range.
func (r *DateRange) Scan(src any) error {
	return scanJSON(src, r)
}

// PartyDetails describes one side's travelling party.
type PartyDetails struct {
	NumberOfPeople int  `json:"numberOfPeople"`
	CarExchange    bool `json:"carExchange"`
}

// Value stores the details as JSONB.
func (d PartyDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan reads JSONB details.
func (d *PartyDetails) Scan(src any) error {
	return scanJSON(src, d)
}

// Proposal is a reservation negotiated between an initiator and a partner.
// It lives independently of the message that announces it.
type Proposal struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	ExchangeType     ExchangeType   `db:"exchange_type" json:"exchange_type"`
	InitiatorID      uuid.UUID      `db:"initiator_id" json:"initiator_id"`
	PartnerID        uuid.UUID      `db:"partner_id" json:"partner_id"`
	InitiatorDates   DateRange      `db:"initiator_dates" json:"initiator_dates"`
	PartnerDates     *DateRange     `db:"partner_dates" json:"partner_dates"`
	InitiatorDetails PartyDetails   `db:"initiator_details" json:"initiator_details"`
	PartnerDetails   PartyDetails   `db:"partner_details" json:"partner_details"`
	ListingID        uuid.UUID      `db:"listing_id" json:"listing_id"`
	ConversationID   uuid.UUID      `db:"conversation_id" json:"conversation_id"`
	Status           ProposalStatus `db:"status" json:"status"`
	MessageID        uuid.NullUUID  `db:"message_id" json:"message_id"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	RespondedAt      *time.Time     `db:"responded_at" json:"responded_at"`
}

// ProposalDraft is the input to proposal creation.
type ProposalDraft struct {
	InitiatorID      uuid.UUID
	PartnerID        uuid.UUID
	ListingID        uuid.UUID
	ExchangeType     ExchangeType
	InitiatorDates   *DateRange
	PartnerDates     *DateRange
	InitiatorDetails PartyDetails
	PartnerDetails   PartyDetails
}

// Validate enforces the date and party rules of a new proposal.
func (d ProposalDraft) Validate() error {
	if d.InitiatorID == uuid.Nil || d.PartnerID == uuid.Nil {
		return errors.New("initiator and partner are required")
	}
	if d.InitiatorID == d.PartnerID {
		return errors.New("cannot propose a swap to yourself")
	}
	if d.ListingID == uuid.Nil {
		return errors.New("listing_id is required")
	}
	if d.InitiatorDates == nil {
		return errors.New("initiator dates are required")
	}
	if err := d.InitiatorDates.Validate(); err != nil {
		return fmt.Errorf("initiator dates: %w", err)
	}
	switch d.ExchangeType {
	case ExchangeSimultaneous:
		if d.PartnerDates != nil {
			return errors.New("partner dates are only allowed for non_simultaneous exchanges")
		}
	case ExchangeNonSimultaneous:
		if d.PartnerDates == nil {
			return errors.New("partner dates are required for non_simultaneous exchanges")
		}
		if err := d.PartnerDates.Validate(); err != nil {
			return fmt.Errorf("partner dates: %w", err)
		}
	default:
		return fmt.Errorf("unknown exchange type %q", d.ExchangeType)
	}
	if d.InitiatorDetails.NumberOfPeople < 1 || d.PartnerDetails.NumberOfPeople < 1 {
		return errors.New("numberOfPeople must be at least 1")
	}
	return nil
}

// ProposalPayload is the JSON body of a PROPOSAL message.
type ProposalPayload struct {
	ReservationID    uuid.UUID    `json:"reservationId"`
	ListingID        uuid.UUID    `json:"listingId"`
	ExchangeType     ExchangeType `json:"exchangeType"`
	InitiatorDates   DateRange    `json:"initiatorDates"`
	PartnerDates     *DateRange   `json:"partnerDates,omitempty"`
	InitiatorDetails PartyDetails `json:"initiatorDetails"`
	PartnerDetails   PartyDetails `json:"partnerDetails"`
}

// Payload renders the message body announcing p.
func (p Proposal) Payload() ProposalPayload {
	return ProposalPayload{
		ReservationID:    p.ID,
		ListingID:        p.ListingID,
		ExchangeType:     p.ExchangeType,
		InitiatorDates:   p.InitiatorDates,
		PartnerDates:     p.PartnerDates,
		InitiatorDetails: p.InitiatorDetails,
		PartnerDetails:   p.PartnerDetails,
	}
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
