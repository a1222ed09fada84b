package notification

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Common errors
var (
	ErrNotificationNotFound = fmt.Errorf("notification not found: %w", apperr.ErrNotFound)
	ErrNotRecipient         = fmt.Errorf("not the recipient of this notification: %w", apperr.ErrUnauthorized)
	ErrInvalidType          = fmt.Errorf("unknown notification type: %w", apperr.ErrValidation)
)

// Service stores notification requests per recipient and announces them on
// the trip's event stream for the delivery collaborator.
type Service struct {
	repo      Repository
	publisher events.Publisher
}

// NewService creates a new notification service
func NewService(repo Repository, publisher events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// delivery is the payload of a notification event
type delivery struct {
	RecipientIDs []int64 `json:"recipient_ids"`
	Request
}

// Notify stores req once per recipient and publishes it
func (s *Service) Notify(ctx context.Context, recipientIDs []int64, req Request) error {
	if !req.Type.Valid() {
		return ErrInvalidType
	}
	if len(recipientIDs) == 0 {
		return nil
	}
	for _, id := range recipientIDs {
		if _, err := s.repo.Create(ctx, id, &req); err != nil {
			return err
		}
	}

	if s.publisher != nil {
		evt := events.NewEvent(req.TripID, events.TypeNotification, delivery{RecipientIDs: recipientIDs, Request: req})
		if err := s.publisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] failed to publish %s notification for trip %d: %v", req.Type, req.TripID, err)
		}
	}
	return nil
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// ListByRecipientID retrieves all notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return ErrNotRecipient
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// Helper methods for the trip notifications the engine sends

func tripTarget(screen string, tripID int64) Target {
	return Target{Screen: screen, Params: map[string]string{"tripId": strconv.FormatInt(tripID, 10)}}
}

// NotifyJoinRequest tells the host someone is waiting for approval
func (s *Service) NotifyJoinRequest(ctx context.Context, tripID, ownerID int64, requesterName, tripName string) error {
	return s.Notify(ctx, []int64{ownerID}, Request{
		Type:   TypeTripUpdate,
		Title:  "New join request",
		Body:   requesterName + " wants to join " + tripName,
		TripID: tripID,
		Target: tripTarget(ScreenMembers, tripID),
	})
}

// NotifyOptInApproved tells a traveller the host let them in
func (s *Service) NotifyOptInApproved(ctx context.Context, tripID, userID int64, tripName string) error {
	return s.Notify(ctx, []int64{userID}, Request{
		Type:   TypeOptInApproved,
		Title:  "You're in!",
		Body:   "Your request to join " + tripName + " was approved.",
		TripID: tripID,
		Target: tripTarget(ScreenTrip, tripID),
	})
}

// NotifyOptInRejected tells a traveller the host declined them
func (s *Service) NotifyOptInRejected(ctx context.Context, tripID, userID int64, tripName string) error {
	return s.Notify(ctx, []int64{userID}, Request{
		Type:   TypeOptInRejected,
		Title:  "Request declined",
		Body:   "Your request to join " + tripName + " was declined.",
		TripID: tripID,
		Target: tripTarget(ScreenTrip, tripID),
	})
}

// NotifyProposalLocked tells members the host picked an option
func (s *Service) NotifyProposalLocked(ctx context.Context, tripID int64, recipientIDs []int64, category, title string) error {
	return s.Notify(ctx, recipientIDs, Request{
		Type:   TypeProposalLocked,
		Title:  category + " locked",
		Body:   "Host locked " + category + ": " + title,
		TripID: tripID,
		Target: tripTarget(ScreenNegotiation, tripID),
	})
}

// NotifyPaymentDue tells unpaid members what they owe
func (s *Service) NotifyPaymentDue(ctx context.Context, tripID int64, recipientIDs []int64, amount decimal.Decimal) error {
	return s.Notify(ctx, recipientIDs, Request{
		Type:   TypePaymentDue,
		Title:  "Payments are open",
		Body:   "Your share is ₹" + amount.String() + ".",
		TripID: tripID,
		Target: tripTarget(ScreenPayment, tripID),
	})
}

// NotifyTripConfirmed tells members everyone has paid
func (s *Service) NotifyTripConfirmed(ctx context.Context, tripID int64, recipientIDs []int64, tripName string) error {
	return s.Notify(ctx, recipientIDs, Request{
		Type:   TypeTripUpdate,
		Title:  "Trip confirmed",
		Body:   "Everyone has paid. " + tripName + " is confirmed!",
		TripID: tripID,
		Target: tripTarget(ScreenTrip, tripID),
	})
}
