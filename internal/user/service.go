package user

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/vibe"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Common errors
var (
	ErrUserNotFound       = fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	ErrNameRequired       = fmt.Errorf("name is required: %w", apperr.ErrValidation)
	ErrInvalidRating      = fmt.Errorf("rating must be between 1 and 5: %w", apperr.ErrValidation)
	ErrInvalidChatFlag    = fmt.Errorf("chat flag must be abusive, toxic or spam: %w", apperr.ErrValidation)
	ErrInvalidTripOutcome = fmt.Errorf("outcome must be completed or dropped: %w", apperr.ErrValidation)
	ErrVibeRequired       = fmt.Errorf("vibe answers are required: %w", apperr.ErrValidation)
)

const (
	minRating = 1.0
	maxRating = 5.0
)

// Service handles user business logic
type Service struct {
	repo Repository
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.repo.Create(ctx, name)
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetMany retrieves the existing users among ids; unknown ids are skipped
func (s *Service) GetMany(ctx context.Context, ids []int64) ([]*User, error) {
	return s.repo.GetMany(ctx, ids)
}

// Trust computes the user's current trust score
func (s *Service) Trust(ctx context.Context, id int64) (*TrustResponse, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := trust.Score(user.Trust)
	return &TrustResponse{UserID: user.ID, Score: result.Score, Reasons: result.Reasons}, nil
}

// TrustProfiles returns the live trust signals of the existing users among ids
func (s *Service) TrustProfiles(ctx context.Context, ids []int64) (map[int64]trust.Profile, error) {
	users, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[int64]trust.Profile, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Trust
	}
	return profiles, nil
}

// UpdateVibe replaces the user's vibe profile with a new check
func (s *Service) UpdateVibe(ctx context.Context, id int64, answers *vibe.Profile) (*User, error) {
	if answers == nil {
		return nil, ErrVibeRequired
	}
	p := *answers
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(u *User) error {
		u.Vibe = &p
		return nil
	})
}

// SetKYC records the outcome of identity verification
func (s *Service) SetKYC(ctx context.Context, id int64, verified bool) (*User, error) {
	return s.update(ctx, id, func(u *User) error {
		u.Trust.KYCVerified = verified
		return nil
	})
}

// RecordRating adds one peer rating. The average is kept unrounded.
func (s *Service) RecordRating(ctx context.Context, id int64, rating float64) (*User, error) {
	if math.IsNaN(rating) || rating < minRating || rating > maxRating {
		return nil, ErrInvalidRating
	}
	return s.update(ctx, id, func(u *User) error {
		if u.RatingTotal == 0 && u.Trust.RatingCount > 0 {
			u.RatingTotal = u.Trust.AvgRating * float64(u.Trust.RatingCount)
		}
		u.RatingTotal += rating
		u.Trust.RatingCount++
		u.Trust.AvgRating = u.RatingTotal / float64(u.Trust.RatingCount)
		return nil
	})
}

// RecordChatFlag counts a moderation flag against the user
func (s *Service) RecordChatFlag(ctx context.Context, id int64, req *ChatFlagRequest) (*User, error) {
	switch req.Kind {
	case ChatFlagAbusive, ChatFlagToxic, ChatFlagSpam:
	default:
		return nil, ErrInvalidChatFlag
	}
	return s.update(ctx, id, func(u *User) error {
		switch req.Kind {
		case ChatFlagAbusive:
			u.Trust.ChatFlags.AbusiveCount++
		case ChatFlagToxic:
			u.Trust.ChatFlags.ToxicCount++
		case ChatFlagSpam:
			u.Trust.ChatFlags.SpamCount++
		}
		if req.Violent {
			u.Trust.ViolentContentFlag = true
		}
		return nil
	})
}

// RecordTripOutcome counts a finished or abandoned trip
func (s *Service) RecordTripOutcome(ctx context.Context, id int64, outcome TripOutcome) (*User, error) {
	switch outcome {
	case TripOutcomeCompleted, TripOutcomeDropped:
	default:
		return nil, ErrInvalidTripOutcome
	}
	return s.update(ctx, id, func(u *User) error {
		if outcome == TripOutcomeCompleted {
			u.Trust.TripsCompleted++
		} else {
			u.Trust.TripsDropped++
		}
		return nil
	})
}

func (s *Service) update(ctx context.Context, id int64, fn func(u *User) error) (*User, error) {
	user, err := s.repo.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
