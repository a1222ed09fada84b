package participation

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/internal/vibe"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// AutoApproveScore is the trust score from which a verified user joins
// without waiting for the host.
const AutoApproveScore = 6.5

// Common errors
var (
	ErrMembershipNotFound = fmt.Errorf("membership not found: %w", apperr.ErrNotFound)
	ErrNotHost            = fmt.Errorf("only the trip host can do this: %w", apperr.ErrUnauthorized)
	ErrNotMember          = fmt.Errorf("only approved members can do this: %w", apperr.ErrUnauthorized)
	ErrNotRequested       = fmt.Errorf("membership is not awaiting approval: %w", apperr.ErrInvalidState)
	ErrNotApproved        = fmt.Errorf("membership is not approved: %w", apperr.ErrInvalidState)
	ErrDenied             = fmt.Errorf("join request was denied: %w", apperr.ErrInvalidState)
	ErrInvalidTransition  = fmt.Errorf("invalid membership transition: %w", apperr.ErrInvalidState)
	ErrInvalidAmount      = fmt.Errorf("amount must be positive: %w", apperr.ErrValidation)
	ErrJoinClosed         = fmt.Errorf("trip no longer takes new members: %w", apperr.ErrInvalidState)
)

// TripReader resolves trips and moves them through the lifecycle
type TripReader interface {
	GetByID(ctx context.Context, id int64) (*trip.Trip, error)
	Advance(ctx context.Context, tripID int64, from, to trip.Status) (bool, error)
	Hold(ctx context.Context, tripID int64, fn func(t *trip.Trip) error) error
}

// UserReader resolves users by ID
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Notifier sends the membership notifications
type Notifier interface {
	NotifyJoinRequest(ctx context.Context, tripID, ownerID int64, requesterName, tripName string) error
	NotifyOptInApproved(ctx context.Context, tripID, userID int64, tripName string) error
	NotifyOptInRejected(ctx context.Context, tripID, userID int64, tripName string) error
	NotifyTripConfirmed(ctx context.Context, tripID int64, recipientIDs []int64, tripName string) error
}

// Service is the per (trip, user) join state machine
type Service struct {
	repo      Repository
	trips     TripReader
	users     UserReader
	publisher events.Publisher
	notifier  Notifier
}

// NewService creates a new participation service
func NewService(repo Repository, trips TripReader, users UserReader, publisher events.Publisher, notifier Notifier) *Service {
	return &Service{repo: repo, trips: trips, users: users, publisher: publisher, notifier: notifier}
}

// RequestToJoin evaluates userID for the trip. Verified users with a high
// enough trust score are approved at once; everyone else waits for the host.
// Asking again re-evaluates a pending request but never downgrades an
// approved member. New members are only taken while the trip is planning.
func (s *Service) RequestToJoin(ctx context.Context, tripID, userID int64) (*Membership, error) {
	return s.requestToJoin(ctx, tripID, userID, false)
}

// JoinAsOwner enrols the host of a freshly created trip as a paid member
func (s *Service) JoinAsOwner(ctx context.Context, tripID, ownerID int64) error {
	_, err := s.requestToJoin(ctx, tripID, ownerID, true)
	return err
}

func (s *Service) requestToJoin(ctx context.Context, tripID, userID int64, forceApprove bool) (*Membership, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := trust.Score(u.Trust)
	from := StateNotJoined
	changed := false

	var t *trip.Trip
	var m *Membership
	err = s.trips.Hold(ctx, tripID, func(held *trip.Trip) error {
		t = held
		var err error
		m, err = s.repo.Upsert(ctx, tripID, userID, func(current *Membership) (*Membership, error) {
			if current != nil {
				from = current.State
				if current.State.Approved() && !forceApprove {
					return current, nil
				}
				if current.State == StateDenied {
					return nil, ErrDenied
				}
			}
			if t.Status != trip.StatusPlanning {
				return nil, fmt.Errorf("%w: status is %s", ErrJoinClosed, t.Status)
			}

			next := &Membership{
				TripID:              tripID,
				UserID:              userID,
				TrustScoreAtJoining: result.Score,
				Snapshot:            u.Snapshot(),
			}
			switch {
			case forceApprove:
				next.State, next.Paid = StateApprovedPaid, true
			case u.Trust.KYCVerified && result.Score >= AutoApproveScore:
				next.State = StateApprovedUnpaid
			default:
				next.State = StateRequested
			}
			if !CanTransition(from, next.State) {
				return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, next.State)
			}
			changed = true
			return next, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return m, nil
	}

	s.publish(ctx, events.NewEvent(tripID, events.TypeMembershipUpdated, m))
	switch {
	case m.State.Approved() && !from.Approved():
		s.publish(ctx, events.SystemMessage(tripID, u.Name+" joined the tribe."))
	case m.State == StateRequested && from != StateRequested:
		if err := s.notifier.NotifyJoinRequest(ctx, tripID, t.OwnerID, u.Name, t.Name); err != nil {
			log.Printf("[WARN] failed to notify host of trip %d: %v", tripID, err)
		}
	}
	return m, nil
}

// Approve lets a pending traveller in. Only the host may approve, and only
// while the trip is planning.
func (s *Service) Approve(ctx context.Context, tripID, hostID, userID int64) (*Membership, error) {
	t, u, err := s.hostAction(ctx, tripID, hostID, userID)
	if err != nil {
		return nil, err
	}

	var m *Membership
	err = s.trips.Hold(ctx, tripID, func(held *trip.Trip) error {
		var err error
		m, err = s.repo.Upsert(ctx, tripID, userID, func(current *Membership) (*Membership, error) {
			if current == nil {
				return nil, ErrMembershipNotFound
			}
			if current.State != StateRequested {
				return nil, fmt.Errorf("%w: state is %s", ErrNotRequested, current.State)
			}
			if held.Status != trip.StatusPlanning {
				return nil, fmt.Errorf("%w: status is %s", ErrJoinClosed, held.Status)
			}
			next := *current
			next.State = StateApprovedUnpaid
			return &next, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(tripID, events.TypeMembershipUpdated, m))
	s.publish(ctx, events.SystemMessage(tripID, u.Name+" joined the tribe."))
	if err := s.notifier.NotifyOptInApproved(ctx, tripID, userID, t.Name); err != nil {
		log.Printf("[WARN] failed to notify user %d of approval: %v", userID, err)
	}
	return m, nil
}

// Deny turns a pending traveller away. Only the host may deny.
func (s *Service) Deny(ctx context.Context, tripID, hostID, userID int64) (*Membership, error) {
	t, _, err := s.hostAction(ctx, tripID, hostID, userID)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.Upsert(ctx, tripID, userID, func(current *Membership) (*Membership, error) {
		if current == nil {
			return nil, ErrMembershipNotFound
		}
		if current.State != StateRequested {
			return nil, fmt.Errorf("%w: state is %s", ErrNotRequested, current.State)
		}
		next := *current
		next.State = StateDenied
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(tripID, events.TypeMembershipUpdated, m))
	if err := s.notifier.NotifyOptInRejected(ctx, tripID, userID, t.Name); err != nil {
		log.Printf("[WARN] failed to notify user %d of denial: %v", userID, err)
	}
	return m, nil
}

// MarkPaid records a confirmed payment from an approved member. A repeated
// confirmation for a member already paid changes nothing.
func (s *Service) MarkPaid(ctx context.Context, tripID, userID int64, amount decimal.Decimal) (*Membership, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	m, err := s.repo.Upsert(ctx, tripID, userID, func(current *Membership) (*Membership, error) {
		if current == nil {
			return nil, ErrMembershipNotFound
		}
		if !current.State.Approved() {
			return nil, fmt.Errorf("%w: state is %s", ErrNotApproved, current.State)
		}
		if current.Paid {
			return current, nil
		}
		next := *current
		next.State, next.Paid = StateApprovedPaid, true
		changed = true
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, events.NewEvent(tripID, events.TypeMembershipUpdated, m))
		s.publish(ctx, events.SystemMessage(tripID, fmt.Sprintf("💳 %s paid ₹%s.", u.FirstName(), amount.String())))
	}
	return m, nil
}

// Settle moves a trip in PAYMENT_OPEN to CONFIRMED once every approved
// member has paid, and reports whether this call confirmed it. Members are
// only admitted while planning, so nobody new can owe money afterwards.
func (s *Service) Settle(ctx context.Context, tripID int64) (bool, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return false, err
	}
	if t.Status != trip.StatusPaymentOpen {
		return false, nil
	}
	unpaid, err := s.UnpaidMemberIDs(ctx, tripID)
	if err != nil {
		return false, err
	}
	if len(unpaid) > 0 {
		return false, nil
	}

	won, err := s.trips.Advance(ctx, tripID, trip.StatusPaymentOpen, trip.StatusConfirmed)
	if err != nil || !won {
		return false, err
	}

	s.publish(ctx, events.NewEvent(tripID, events.TypeLifecycleChanged, map[string]interface{}{"status": trip.StatusConfirmed}))
	members, err := s.ApprovedMemberIDs(ctx, tripID)
	if err != nil {
		log.Printf("[WARN] failed to load members of trip %d: %v", tripID, err)
		return true, nil
	}
	if err := s.notifier.NotifyTripConfirmed(ctx, tripID, members, t.Name); err != nil {
		log.Printf("[WARN] failed to notify confirmation of trip %d: %v", tripID, err)
	}
	return true, nil
}

// Get returns the membership of userID, NOT_JOINED when there is none
func (s *Service) Get(ctx context.Context, tripID, userID int64) (*Membership, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	m, err := s.repo.Get(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return notJoined(tripID, userID), nil
	}
	return m, nil
}

// ListByTrip returns every membership recorded for the trip
func (s *Service) ListByTrip(ctx context.Context, tripID int64) ([]*Membership, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ListByTrip(ctx, tripID)
}

// Approved returns the trip's approved memberships, paid or not
func (s *Service) Approved(ctx context.Context, tripID int64) ([]*Membership, error) {
	all, err := s.repo.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	approved := make([]*Membership, 0, len(all))
	for _, m := range all {
		if m.State.Approved() {
			approved = append(approved, m)
		}
	}
	return approved, nil
}

// ApprovedMemberIDs returns the ids of the trip's approved members
func (s *Service) ApprovedMemberIDs(ctx context.Context, tripID int64) ([]int64, error) {
	approved, err := s.Approved(ctx, tripID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(approved))
	for i, m := range approved {
		ids[i] = m.UserID
	}
	return ids, nil
}

// UnpaidMemberIDs returns the ids of approved members who have not paid yet
func (s *Service) UnpaidMemberIDs(ctx context.Context, tripID int64) ([]int64, error) {
	approved, err := s.Approved(ctx, tripID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, m := range approved {
		if !m.Paid {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

// Snapshots returns the co-traveller snapshots of approved members,
// leaving out excludeUserID
func (s *Service) Snapshots(ctx context.Context, tripID, excludeUserID int64) ([]vibe.CoTravelerSnapshot, error) {
	approved, err := s.Approved(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]vibe.CoTravelerSnapshot, 0, len(approved))
	for _, m := range approved {
		if m.UserID == excludeUserID {
			continue
		}
		snap := m.Snapshot
		snap.UserID = m.UserID
		out = append(out, snap)
	}
	return out, nil
}

// Authorize returns the trip when userID hosts it or is an approved member
func (s *Service) Authorize(ctx context.Context, tripID, userID int64) (*trip.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID == userID {
		return t, nil
	}
	m, err := s.repo.Get(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.State.Approved() {
		return nil, ErrNotMember
	}
	return t, nil
}

func (s *Service) hostAction(ctx context.Context, tripID, hostID, userID int64) (*trip.Trip, *user.User, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	if t.OwnerID != hostID {
		return nil, nil, ErrNotHost
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return t, u, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] failed to publish %s for trip %d: %v", evt.Type, evt.TripID, err)
	}
}
