// Package negotiation is the per-trip ledger where members propose options
// per category, vote on them and the host locks one. Locking travel and
// lodging opens payments.
package negotiation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Common errors
var (
	ErrProposalNotFound = fmt.Errorf("proposal not found: %w", apperr.ErrNotFound)
	ErrNotHost          = fmt.Errorf("only the trip host can lock a category: %w", apperr.ErrUnauthorized)
	ErrCategoryLocked   = fmt.Errorf("category is already locked: %w", apperr.ErrInvalidState)
	ErrAlreadyLocked    = fmt.Errorf("proposal is already locked: %w", apperr.ErrInvalidState)
	ErrPlanningClosed   = fmt.Errorf("bookings can no longer change once payments are open: %w", apperr.ErrInvalidState)
	ErrTitleRequired    = fmt.Errorf("title is required: %w", apperr.ErrValidation)
	ErrInvalidPrice     = fmt.Errorf("price per person must be positive: %w", apperr.ErrValidation)
)

// Trips reads trips and moves them through the lifecycle
type Trips interface {
	GetByID(ctx context.Context, id int64) (*trip.Trip, error)
	Advance(ctx context.Context, tripID int64, from, to trip.Status) (bool, error)
	Hold(ctx context.Context, tripID int64, fn func(t *trip.Trip) error) error
}

// Members answers who may take part in a trip's negotiation
type Members interface {
	// Authorize returns the trip when userID hosts it or is an approved member
	Authorize(ctx context.Context, tripID, userID int64) (*trip.Trip, error)
	ApprovedMemberIDs(ctx context.Context, tripID int64) ([]int64, error)
	UnpaidMemberIDs(ctx context.Context, tripID int64) ([]int64, error)
	// Settle confirms a trip in PAYMENT_OPEN once nobody owes anything
	Settle(ctx context.Context, tripID int64) (bool, error)
}

// UserReader resolves users by ID
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Notifier sends the negotiation notifications
type Notifier interface {
	NotifyProposalLocked(ctx context.Context, tripID int64, recipientIDs []int64, category, title string) error
	NotifyPaymentDue(ctx context.Context, tripID int64, recipientIDs []int64, amount decimal.Decimal) error
}

// Service handles negotiation business logic
type Service struct {
	store     Store
	trips     Trips
	members   Members
	users     UserReader
	publisher events.Publisher
	notifier  Notifier
}

// NewService creates a new negotiation service
func NewService(store Store, trips Trips, members Members, users UserReader, publisher events.Publisher, notifier Notifier) *Service {
	return &Service{
		store:     store,
		trips:     trips,
		members:   members,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Propose adds an option to a category that is still open. The proposer
// counts as its first voter.
func (s *Service) Propose(ctx context.Context, tripID, userID int64, category Category, req *ProposeRequest) (*Proposal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if !req.PricePerPerson.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if _, err := s.members.Authorize(ctx, tripID, userID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Proposal{
		ID:             uuid.New(),
		TripID:         tripID,
		Category:       category,
		ProposerID:     userID,
		Title:          title,
		Provider:       strings.TrimSpace(req.Provider),
		PricePerPerson: req.PricePerPerson,
		VoterIDs:       []int64{userID},
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.store.Update(ctx, tripID, category, func(st *CategoryState) error {
		if st.LockedProposalID != nil {
			return ErrCategoryLocked
		}
		st.Proposals = append(st.Proposals, p)
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SystemMessage(tripID,
		fmt.Sprintf("%s proposed %s: %s, ₹%s", u.Name, category, p.Title, p.PricePerPerson.String())))
	s.publish(ctx, events.NewEvent(tripID, events.TypeNegotiationUpdated, p))
	return p, nil
}

// Vote records a member's decision. YES adds the member to the voters and NO
// removes them; both are idempotent. A vote on a proposal that does not
// exist is ignored and returns a nil proposal.
func (s *Service) Vote(ctx context.Context, tripID, userID int64, category Category, proposalID uuid.UUID, decision Decision) (*Proposal, error) {
	if decision != DecisionYes && decision != DecisionNo {
		return nil, ErrUnknownDecision
	}
	if _, err := s.members.Authorize(ctx, tripID, userID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	st, err := s.store.Update(ctx, tripID, category, func(st *CategoryState) error {
		p := st.Find(proposalID)
		if p == nil {
			return errUnchanged
		}
		if decision == DecisionYes {
			changed = p.addVoter(userID)
		} else {
			changed = p.removeVoter(userID)
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := st.Find(proposalID)
	if p == nil {
		return nil, nil
	}
	if !changed {
		return p, nil
	}
	if decision == DecisionYes {
		s.publish(ctx, events.SystemMessage(tripID, fmt.Sprintf("%s agreed to %s", u.Name, p.Title)))
	}
	s.publish(ctx, events.NewEvent(tripID, events.TypeNegotiationUpdated, p))
	return p, nil
}

// Lock binds the category to one proposal. Only the host may lock, and only
// while the trip is still planning; locking again picks a different option.
// Once travel and lodging are both locked the trip opens for payment.
func (s *Service) Lock(ctx context.Context, tripID, hostID int64, category Category, proposalID uuid.UUID) (*CategoryState, error) {
	var st *CategoryState
	err := s.trips.Hold(ctx, tripID, func(t *trip.Trip) error {
		if t.OwnerID != hostID {
			return ErrNotHost
		}
		if t.Status != trip.StatusPlanning {
			return ErrPlanningClosed
		}
		var err error
		st, err = s.store.Update(ctx, tripID, category, func(st *CategoryState) error {
			if st.Find(proposalID) == nil {
				return ErrProposalNotFound
			}
			if st.LockedProposalID != nil && *st.LockedProposalID == proposalID {
				return ErrAlreadyLocked
			}
			id := proposalID
			st.LockedProposalID = &id
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	locked := st.Locked()
	s.publish(ctx, events.SystemMessage(tripID, fmt.Sprintf("Host locked %s: %s", category, locked.Title)))
	s.publish(ctx, events.NewEvent(tripID, events.TypeNegotiationUpdated, st))
	if recipients, err := s.members.ApprovedMemberIDs(ctx, tripID); err != nil {
		log.Printf("[WARN] failed to load members of trip %d: %v", tripID, err)
	} else if err := s.notifier.NotifyProposalLocked(ctx, tripID, without(recipients, hostID), string(category), locked.Title); err != nil {
		log.Printf("[WARN] failed to notify lock on trip %d: %v", tripID, err)
	}

	if err := s.openPayments(ctx, tripID); err != nil {
		log.Printf("[ERROR] failed to open payments for trip %d: %v", tripID, err)
	}
	return st, nil
}

// openPayments moves the trip to PAYMENT_OPEN once booking is complete.
// Only the caller that wins the status change announces it. Locks wait for
// the status change, so the board read after it is final.
func (s *Service) openPayments(ctx context.Context, tripID int64) error {
	board, err := s.store.Board(ctx, tripID)
	if err != nil {
		return err
	}
	if !board.BookingComplete() {
		return nil
	}

	won, err := s.trips.Advance(ctx, tripID, trip.StatusPlanning, trip.StatusPaymentOpen)
	if err != nil || !won {
		return err
	}
	if board, err = s.store.Board(ctx, tripID); err != nil {
		return err
	}

	amount := board.PayableAmount()
	s.publish(ctx, events.SystemMessage(tripID, "Booking Phase Complete. Payments Are Now Open."))
	s.publish(ctx, events.NewEvent(tripID, events.TypeLifecycleChanged, map[string]interface{}{
		"status":         trip.StatusPaymentOpen,
		"payable_amount": amount,
	}))

	unpaid, err := s.members.UnpaidMemberIDs(ctx, tripID)
	if err != nil {
		log.Printf("[WARN] failed to load unpaid members of trip %d: %v", tripID, err)
	} else if err := s.notifier.NotifyPaymentDue(ctx, tripID, unpaid, amount); err != nil {
		log.Printf("[WARN] failed to notify payment due on trip %d: %v", tripID, err)
	}

	// A trip where everyone has already paid, such as a host travelling
	// alone, has nobody left to confirm a payment
	if _, err := s.members.Settle(ctx, tripID); err != nil {
		return err
	}
	return nil
}

// Ledger returns the whole negotiation of a trip with its lifecycle status
func (s *Service) Ledger(ctx context.Context, tripID int64) (*LedgerResponse, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	board, err := s.store.Board(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return newLedgerResponse(t, board), nil
}

// State returns the negotiation of one category
func (s *Service) State(ctx context.Context, tripID int64, category Category) (*CategoryState, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, tripID, category)
}

// PayableAmount is what each member owes for the trip, zero while travel or
// lodging is still open
func (s *Service) PayableAmount(ctx context.Context, tripID int64) (decimal.Decimal, error) {
	board, err := s.store.Board(ctx, tripID)
	if err != nil {
		return decimal.Zero, err
	}
	return board.PayableAmount(), nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] failed to publish %s for trip %d: %v", evt.Type, evt.TripID, err)
	}
}

func without(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
