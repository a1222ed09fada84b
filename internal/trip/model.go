package trip

import "time"

// Status is the trip-wide lifecycle stage. It only ever moves forward:
// PLANNING, then PAYMENT_OPEN, then CONFIRMED.
type Status string

const (
	StatusPlanning    Status = "PLANNING"
	StatusPaymentOpen Status = "PAYMENT_OPEN"
	StatusConfirmed   Status = "CONFIRMED"
)

// Valid reports whether s is a known lifecycle status
func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusPaymentOpen, StatusConfirmed:
		return true
	}
	return false
}

// Trip represents a group trip hosted by its owner
type Trip struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
