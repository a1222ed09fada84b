package notification

import "time"

// Type represents the type of notification
type Type string

const (
	TypeMessage        Type = "message"
	TypeOptInApproved  Type = "optin_approved"
	TypeOptInRejected  Type = "optin_rejected"
	TypeProposalLocked Type = "proposal_locked"
	TypePaymentDue     Type = "payment_due"
	TypeTripUpdate     Type = "trip_update"
)

// Valid reports whether t is a known notification type
func (t Type) Valid() bool {
	switch t {
	case TypeMessage, TypeOptInApproved, TypeOptInRejected, TypeProposalLocked, TypePaymentDue, TypeTripUpdate:
		return true
	}
	return false
}

// Screens a notification can open in the client
const (
	ScreenTrip        = "trip_details"
	ScreenMembers     = "trip_members"
	ScreenNegotiation = "trip_negotiation"
	ScreenPayment     = "trip_payment"
	ScreenChat        = "trip_chat"
)

// Target tells the client where a notification leads
type Target struct {
	Screen string            `json:"screen"`
	Params map[string]string `json:"params,omitempty"`
}

// Request is a notification the delivery service should send
type Request struct {
	Type   Type   `json:"type"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	TripID int64  `json:"trip_id"`
	Target Target `json:"target"`
}

// Notification is a Request stored for one recipient
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	TripID      int64     `json:"trip_id"`
	Target      Target    `json:"target"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
