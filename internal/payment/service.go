// Package payment answers whether a member may pay for a trip and how much,
// and takes the payment confirmed signal from the gateway. Once every
// approved member has paid the trip is confirmed.
package payment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Common errors
var (
	ErrInvalidAmount  = fmt.Errorf("amount must be positive: %w", apperr.ErrValidation)
	ErrAmountMismatch = fmt.Errorf("amount does not match the trip's payable amount: %w", apperr.ErrValidation)
	ErrPaymentsClosed = fmt.Errorf("trip is not accepting payments: %w", apperr.ErrInvalidState)
)

// Trips reads trips
type Trips interface {
	GetByID(ctx context.Context, id int64) (*trip.Trip, error)
}

// Members is the membership state the payment flow reads and updates
type Members interface {
	Get(ctx context.Context, tripID, userID int64) (*participation.Membership, error)
	Authorize(ctx context.Context, tripID, userID int64) (*trip.Trip, error)
	MarkPaid(ctx context.Context, tripID, userID int64, amount decimal.Decimal) (*participation.Membership, error)
	Settle(ctx context.Context, tripID int64) (bool, error)
}

// Ledger prices a trip from its locked proposals
type Ledger interface {
	PayableAmount(ctx context.Context, tripID int64) (decimal.Decimal, error)
}

// Service handles payment business logic
type Service struct {
	repo    Repository
	trips   Trips
	members Members
	ledger  Ledger
}

// NewService creates a new payment service
func NewService(repo Repository, trips Trips, members Members, ledger Ledger) *Service {
	return &Service{
		repo:    repo,
		trips:   trips,
		members: members,
		ledger:  ledger,
	}
}

// PaymentEligible reports whether userID is approved, unpaid, and the trip
// has opened payments
func (s *Service) PaymentEligible(ctx context.Context, tripID, userID int64) (bool, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return false, err
	}
	m, err := s.members.Get(ctx, tripID, userID)
	if err != nil {
		return false, err
	}
	return eligible(m, t.Status), nil
}

// PayableAmount is the per-person price of the trip's locked travel and lodging
func (s *Service) PayableAmount(ctx context.Context, tripID int64) (decimal.Decimal, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return decimal.Zero, err
	}
	return s.ledger.PayableAmount(ctx, tripID)
}

// Status returns what the payment screen of userID shows
func (s *Service) Status(ctx context.Context, tripID, userID int64) (*StatusResponse, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	m, err := s.members.Get(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	amount, err := s.ledger.PayableAmount(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		TripID:     tripID,
		UserID:     userID,
		TripStatus: t.Status,
		State:      m.State,
		Paid:       m.Paid,
		Eligible:   eligible(m, t.Status),
		Amount:     amount,
	}, nil
}

// Confirm applies a payment confirmed signal from the gateway for userID.
// The amount must be the trip's payable amount. Confirming a member who
// already paid changes nothing. When the last approved member pays the trip
// moves to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, tripID, userID int64, req *ConfirmRequest) (*StatusResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	m, err := s.members.Get(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case m.Paid:
		return s.Status(ctx, tripID, userID)
	case m.State == participation.StateNotJoined:
		return nil, participation.ErrMembershipNotFound
	case !m.State.Approved():
		return nil, fmt.Errorf("%w: state is %s", participation.ErrNotApproved, m.State)
	case t.Status != trip.StatusPaymentOpen:
		return nil, fmt.Errorf("%w: status is %s", ErrPaymentsClosed, t.Status)
	}

	payable, err := s.ledger.PayableAmount(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(payable) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrAmountMismatch, req.Amount, payable)
	}

	if _, err := s.members.MarkPaid(ctx, tripID, userID, req.Amount); err != nil {
		return nil, err
	}
	if _, _, err := s.repo.Record(ctx, &Receipt{
		TripID:    tripID,
		UserID:    userID,
		Amount:    req.Amount,
		Reference: strings.TrimSpace(req.Reference),
	}); err != nil {
		log.Printf("[ERROR] failed to record payment of user %d on trip %d: %v", userID, tripID, err)
	}

	if _, err := s.members.Settle(ctx, tripID); err != nil {
		log.Printf("[ERROR] failed to confirm trip %d: %v", tripID, err)
	}
	return s.Status(ctx, tripID, userID)
}

// Receipts lists the payments made for a trip. Only the host and approved
// members may see them.
func (s *Service) Receipts(ctx context.Context, tripID, userID int64, page, perPage int) ([]*Receipt, int, error) {
	if _, err := s.members.Authorize(ctx, tripID, userID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByTrip(ctx, tripID, perPage, offset)
}
