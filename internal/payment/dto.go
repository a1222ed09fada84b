package payment

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/trip"
)

// ConfirmRequest is the gateway's payment confirmed signal for one member
type ConfirmRequest struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"number"`
	Reference string          `json:"reference,omitempty"`
}

// StatusResponse tells a member whether to show the pay action and for how much
type StatusResponse struct {
	TripID     int64               `json:"trip_id"`
	UserID     int64               `json:"user_id"`
	TripStatus trip.Status         `json:"trip_status"`
	State      participation.State `json:"state"`
	Paid       bool                `json:"paid"`
	Eligible   bool                `json:"eligible"`
	Amount     decimal.Decimal     `json:"amount" swaggertype:"number"`
}

// eligible reports whether a member in state m may pay for a trip in status
func eligible(m *participation.Membership, status trip.Status) bool {
	return m.State.Approved() && status == trip.StatusPaymentOpen && !m.Paid
}
