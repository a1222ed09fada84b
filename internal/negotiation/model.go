package negotiation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/pkg/apperr"
)

// Category is one thing a trip has to agree on
type Category string

const (
	CategoryTransport Category = "TRANSPORT"
	CategoryLodging   Category = "LODGING"
	// CategoryFlight is an alternative to TRANSPORT
	CategoryFlight Category = "FLIGHT"
)

// Categories lists every category in display order
var Categories = []Category{CategoryTransport, CategoryLodging, CategoryFlight}

var ErrUnknownCategory = fmt.Errorf("category must be TRANSPORT, LODGING or FLIGHT: %w", apperr.ErrValidation)

// ParseCategory accepts a category name in any case
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// Decision is a member's answer to a proposal
type Decision string

const (
	DecisionYes Decision = "YES"
	DecisionNo  Decision = "NO"
)

var ErrUnknownDecision = fmt.Errorf("decision must be YES or NO: %w", apperr.ErrValidation)

// ParseDecision accepts a decision in any case
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case DecisionYes, DecisionNo:
		return d, nil
	}
	return "", ErrUnknownDecision
}

// Proposal is a candidate option within a category. Only the voters change
// after creation.
type Proposal struct {
	ID             uuid.UUID       `json:"id"`
	TripID         int64           `json:"trip_id"`
	Category       Category        `json:"category"`
	ProposerID     int64           `json:"proposer_id"`
	Title          string          `json:"title"`
	Provider       string          `json:"provider,omitempty"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
	VoterIDs       []int64         `json:"voter_ids"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HasVoter reports whether userID agreed to the proposal
func (p *Proposal) HasVoter(userID int64) bool {
	for _, id := range p.VoterIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// addVoter adds userID and reports whether it was absent
func (p *Proposal) addVoter(userID int64) bool {
	if p.HasVoter(userID) {
		return false
	}
	p.VoterIDs = append(p.VoterIDs, userID)
	sort.Slice(p.VoterIDs, func(i, j int) bool { return p.VoterIDs[i] < p.VoterIDs[j] })
	return true
}

// removeVoter removes userID and reports whether it was present
func (p *Proposal) removeVoter(userID int64) bool {
	for i, id := range p.VoterIDs {
		if id == userID {
			p.VoterIDs = append(p.VoterIDs[:i], p.VoterIDs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Proposal) clone() *Proposal {
	c := *p
	c.VoterIDs = append([]int64(nil), p.VoterIDs...)
	return &c
}

// CategoryState is the negotiation of one category of one trip. A non-nil
// LockedProposalID always names one of Proposals.
type CategoryState struct {
	TripID           int64       `json:"trip_id"`
	Category         Category    `json:"category"`
	Proposals        []*Proposal `json:"proposals"`
	LockedProposalID *uuid.UUID  `json:"locked_proposal_id,omitempty"`
}

// Find returns the proposal with the given id, or nil
func (s *CategoryState) Find(id uuid.UUID) *Proposal {
	for _, p := range s.Proposals {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Locked returns the locked proposal, or nil
func (s *CategoryState) Locked() *Proposal {
	if s.LockedProposalID == nil {
		return nil
	}
	return s.Find(*s.LockedProposalID)
}

func (s *CategoryState) clone() *CategoryState {
	c := &CategoryState{TripID: s.TripID, Category: s.Category}
	c.Proposals = make([]*Proposal, len(s.Proposals))
	for i, p := range s.Proposals {
		c.Proposals[i] = p.clone()
	}
	if s.LockedProposalID != nil {
		id := *s.LockedProposalID
		c.LockedProposalID = &id
	}
	return c
}

// Board is the full negotiation of one trip, one state per category
type Board map[Category]*CategoryState

// locked returns the price of the locked proposal in c
func (b Board) locked(c Category) (decimal.Decimal, bool) {
	st, ok := b[c]
	if !ok {
		return decimal.Zero, false
	}
	p := st.Locked()
	if p == nil {
		return decimal.Zero, false
	}
	return p.PricePerPerson, true
}

// BookingComplete reports whether travel (TRANSPORT or FLIGHT) and LODGING
// are both locked
func (b Board) BookingComplete() bool {
	_, travel := b.travelPrice()
	_, lodging := b.locked(CategoryLodging)
	return travel && lodging
}

func (b Board) travelPrice() (decimal.Decimal, bool) {
	if price, ok := b.locked(CategoryTransport); ok {
		return price, true
	}
	return b.locked(CategoryFlight)
}

// PayableAmount is what each member owes: the locked travel price plus the
// locked lodging price, or zero while either is open.
func (b Board) PayableAmount() decimal.Decimal {
	travel, ok := b.travelPrice()
	if !ok {
		return decimal.Zero
	}
	lodging, ok := b.locked(CategoryLodging)
	if !ok {
		return decimal.Zero
	}
	return travel.Add(lodging)
}
