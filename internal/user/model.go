package user

import (
	"strings"
	"time"

	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/vibe"
)

// User represents a traveller and the signals the trust score is built from
type User struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Trust     trust.Profile `json:"trust"`
	Vibe      *vibe.Profile `json:"vibe,omitempty"` // nil until the vibe check is taken
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// RatingTotal is the sum of every rating received; Trust.AvgRating is
	// derived from it
	RatingTotal float64 `json:"-"`
}

// FirstName returns the first word of the display name
func (u *User) FirstName() string {
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		return u.Name
	}
	return fields[0]
}

// Snapshot captures the user as a co-traveller at this moment
func (u *User) Snapshot() vibe.CoTravelerSnapshot {
	var v *vibe.Profile
	if u.Vibe != nil {
		copied := *u.Vibe
		v = &copied
	}
	return vibe.CoTravelerSnapshot{
		UserID:     u.ID,
		Vibe:       v,
		Trust:      u.Trust,
		TrustScore: trust.Score(u.Trust).Score,
	}
}

// ChatFlagKind is the moderation category of a flagged chat message
type ChatFlagKind string

const (
	ChatFlagAbusive ChatFlagKind = "abusive"
	ChatFlagToxic   ChatFlagKind = "toxic"
	ChatFlagSpam    ChatFlagKind = "spam"
)

// TripOutcome records how a user's participation in a trip ended
type TripOutcome string

const (
	TripOutcomeCompleted TripOutcome = "completed"
	TripOutcomeDropped   TripOutcome = "dropped"
)
