package user

import (
	"math"

	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/vibe"
)

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name string `json:"name"`
}

// RatingRequest represents a peer rating after a shared trip
type RatingRequest struct {
	Rating float64 `json:"rating"`
}

// ChatFlagRequest represents one moderation flag raised on a chat message
type ChatFlagRequest struct {
	Kind    ChatFlagKind `json:"kind"`
	Violent bool         `json:"violent,omitempty"`
}

// KYCRequest carries the result of the identity verification workflow
type KYCRequest struct {
	Verified bool `json:"verified"`
}

// TripOutcomeRequest records whether the user finished or dropped a trip
type TripOutcomeRequest struct {
	Outcome TripOutcome `json:"outcome"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	TrustScore float64       `json:"trust_score"`
	Trust      trust.Profile `json:"trust"`
	Vibe       *vibe.Profile `json:"vibe,omitempty"`
	CreatedAt  string        `json:"created_at"`
}

// TrustResponse is a trust score with its breakdown
type TrustResponse struct {
	UserID  int64    `json:"user_id"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	shown := u.Trust
	shown.AvgRating = math.Round(shown.AvgRating*100) / 100
	return &UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		TrustScore: trust.Score(u.Trust).Score,
		Trust:      shown,
		Vibe:       u.Vibe,
		CreatedAt:  u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
