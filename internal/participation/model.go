package participation

import (
	"time"

	"github.com/fkhayef/tribe/internal/vibe"
)

// State is where a user stands with one trip
type State string

const (
	StateNotJoined      State = "NOT_JOINED"
	StateRequested      State = "REQUESTED"
	StateApprovedUnpaid State = "APPROVED_UNPAID"
	StateApprovedPaid   State = "APPROVED_PAID"
	StateDenied         State = "DENIED"
)

// Approved reports whether the state lets the member negotiate
func (s State) Approved() bool {
	return s == StateApprovedUnpaid || s == StateApprovedPaid
}

// transitions lists the states reachable from each state. Nothing leads back
// to NOT_JOINED and DENIED is final.
var transitions = map[State][]State{
	StateNotJoined:      {StateRequested, StateApprovedUnpaid, StateApprovedPaid},
	StateRequested:      {StateRequested, StateApprovedUnpaid, StateApprovedPaid, StateDenied},
	StateApprovedUnpaid: {StateApprovedPaid},
	StateApprovedPaid:   {StateApprovedPaid},
}

// CanTransition reports whether a membership may move from one state to another
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Membership is the relationship between one user and one trip
type Membership struct {
	TripID              int64                   `json:"trip_id"`
	UserID              int64                   `json:"user_id"`
	State               State                   `json:"state"`
	Paid                bool                    `json:"paid"`
	TrustScoreAtJoining float64                 `json:"trust_score_at_joining"`
	Snapshot            vibe.CoTravelerSnapshot `json:"snapshot"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// notJoined is the implicit record of a pair with nothing stored
func notJoined(tripID, userID int64) *Membership {
	return &Membership{TripID: tripID, UserID: userID, State: StateNotJoined}
}
