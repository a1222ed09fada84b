package trip

import (
	"context"
	"fmt"
	"strings"

	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Common errors
var (
	ErrTripNotFound = fmt.Errorf("trip not found: %w", apperr.ErrNotFound)
	ErrNameRequired = fmt.Errorf("trip name is required: %w", apperr.ErrValidation)
	ErrBadStatus    = fmt.Errorf("unknown trip status: %w", apperr.ErrValidation)
)

// UserReader resolves users by ID
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service handles trip business logic
type Service struct {
	repo  Repository
	users UserReader
}

// NewService creates a new trip service
func NewService(repo Repository, users UserReader) *Service {
	return &Service{repo: repo, users: users}
}

// Create creates a new trip hosted by ownerID
func (s *Service) Create(ctx context.Context, ownerID int64, req *CreateTripRequest) (*Trip, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &Trip{
		OwnerID:     ownerID,
		Name:        name,
		Destination: strings.TrimSpace(req.Destination),
		Status:      StatusPlanning,
	})
}

// GetByID retrieves a trip by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Trip, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	return t, nil
}

// IsOwner reports whether userID hosts the trip
func (s *Service) IsOwner(ctx context.Context, tripID, userID int64) (bool, error) {
	t, err := s.GetByID(ctx, tripID)
	if err != nil {
		return false, err
	}
	return t.OwnerID == userID, nil
}

// List retrieves trips with pagination, optionally filtered by status
func (s *Service) List(ctx context.Context, status Status, page, perPage int) ([]*Trip, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, ErrBadStatus
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, status, perPage, offset)
}

// Advance moves the trip from one lifecycle status to the next. Exactly one
// of several concurrent callers gets true.
func (s *Service) Advance(ctx context.Context, tripID int64, from, to Status) (bool, error) {
	return s.repo.CompareAndSetStatus(ctx, tripID, from, to)
}

// Hold runs fn while the trip's lifecycle status cannot change. Writes that
// are only allowed in some statuses check the status inside fn.
func (s *Service) Hold(ctx context.Context, tripID int64, fn func(t *Trip) error) error {
	return s.repo.Hold(ctx, tripID, func(t *Trip) error {
		if t == nil {
			return ErrTripNotFound
		}
		return fn(t)
	})
}
