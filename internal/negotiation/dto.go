package negotiation

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/trip"
)

// ProposeRequest represents the request body for proposing an option
type ProposeRequest struct {
	Title          string          `json:"title"`
	Provider       string          `json:"provider,omitempty"`
	PricePerPerson decimal.Decimal `json:"price_per_person" swaggertype:"number"`
}

// VoteRequest represents a member's decision on a proposal
type VoteRequest struct {
	Decision string `json:"decision"`
}

// LockRequest names the proposal the host settles on
type LockRequest struct {
	ProposalID string `json:"proposal_id"`
}

// LedgerResponse is the full negotiation of a trip
type LedgerResponse struct {
	TripID        int64            `json:"trip_id"`
	Status        trip.Status      `json:"status"`
	PayableAmount decimal.Decimal  `json:"payable_amount" swaggertype:"number"`
	Categories    []*CategoryState `json:"categories"`
}

func newLedgerResponse(t *trip.Trip, board Board) *LedgerResponse {
	resp := &LedgerResponse{
		TripID:        t.ID,
		Status:        t.Status,
		PayableAmount: board.PayableAmount(),
		Categories:    make([]*CategoryState, 0, len(Categories)),
	}
	for _, c := range Categories {
		st, ok := board[c]
		if !ok {
			st = &CategoryState{TripID: t.ID, Category: c}
		}
		if st.Proposals == nil {
			st.Proposals = []*Proposal{}
		}
		resp.Categories = append(resp.Categories, st)
	}
	return resp
}
