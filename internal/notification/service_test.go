package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/events/eventstest"
	"github.com/fkhayef/tribe/pkg/apperr"
)

func newTestService(t *testing.T) (*Service, *eventstest.Recorder) {
	t.Helper()
	rec := &eventstest.Recorder{}
	return NewService(NewMemoryRepository(), rec), rec
}

func TestNotifyStoresPerRecipientAndPublishes(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t)
	ctx := context.Background()

	if err := svc.NotifyPaymentDue(ctx, 4, []int64{2, 3}, decimal.NewFromInt(9950)); err != nil {
		t.Fatalf("notify: %v", err)
	}

	for _, id := range []int64{2, 3} {
		list, total, err := svc.ListByRecipientID(ctx, id, 1, 20, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 {
			t.Fatalf("recipient %d: expected 1 notification, got %d", id, total)
		}
		n := list[0]
		if n.Type != TypePaymentDue || n.Body != "Your share is ₹9950." || n.TripID != 4 {
			t.Fatalf("unexpected notification %+v", n)
		}
		if n.Target.Screen != ScreenPayment || n.Target.Params["tripId"] != "4" {
			t.Fatalf("unexpected target %+v", n.Target)
		}
	}

	evts := rec.Events()
	if len(evts) != 1 || evts[0].Type != events.TypeNotification || evts[0].TripID != 4 {
		t.Fatalf("expected one notification event, got %+v", evts)
	}
	var payload struct {
		RecipientIDs []int64 `json:"recipient_ids"`
		Type         Type    `json:"type"`
	}
	if err := json.Unmarshal(evts[0].Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.RecipientIDs) != 2 || payload.Type != TypePaymentDue {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestNotifyValidation(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t)
	ctx := context.Background()

	if err := svc.Notify(ctx, []int64{1}, Request{Type: "carrier_pigeon"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.Notify(ctx, nil, Request{Type: TypeMessage}); err != nil {
		t.Fatalf("no recipients should be a no-op: %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatal("nothing should have been published")
	}
}

func TestMarkAsRead(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.NotifyOptInApproved(ctx, 1, 5, "Goa")
	svc.NotifyOptInRejected(ctx, 2, 5, "Manali")

	count, _ := svc.GetUnreadCount(ctx, 5)
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	if err := svc.MarkAsRead(ctx, 1, 6); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected not recipient, got %v", err)
	}
	if err := svc.MarkAsRead(ctx, 99, 5); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.MarkAsRead(ctx, 1, 5); err != nil {
		t.Fatalf("mark: %v", err)
	}

	unread, total, _ := svc.ListByRecipientID(ctx, 5, 1, 20, true)
	if total != 1 || unread[0].Type != TypeOptInRejected {
		t.Fatalf("expected only the rejection unread, got %+v", unread)
	}

	if err := svc.MarkAllAsRead(ctx, 5); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	count, _ = svc.GetUnreadCount(ctx, 5)
	if count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}
