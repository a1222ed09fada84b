package matching

import "github.com/fkhayef/tribe/internal/trip"

// GroupTrustResponse is the average trust of a trip's host and approved members
type GroupTrustResponse struct {
	TripID  int64   `json:"trip_id"`
	Score   float64 `json:"score"`
	Members int     `json:"members"`
}

// VibeMatchResponse is how well a user fits a trip's travellers. Match is
// nil when the user has not taken the vibe check.
type VibeMatchResponse struct {
	TripID int64 `json:"trip_id"`
	UserID int64 `json:"user_id"`
	Match  *int  `json:"match"`
}

// TripMatch is one entry of the discover feed
type TripMatch struct {
	Trip       *trip.TripResponse `json:"trip"`
	VibeMatch  *int               `json:"vibe_match"`
	GroupTrust float64            `json:"group_trust"`
}
