package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt records the confirmed payment of one member for a trip. A member
// has at most one receipt per trip.
type Receipt struct {
	ID        int64           `json:"id"`
	TripID    int64           `json:"trip_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"` // Gateway transaction id, if any
	CreatedAt time.Time       `json:"created_at"`
}
