package trip

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/pkg/apperr"
)

func newTestService(t *testing.T) (*Service, *user.Service) {
	t.Helper()
	users := user.NewService(user.NewMemoryRepository())
	return NewService(NewMemoryRepository(), users), users
}

func mustUser(t *testing.T, users *user.Service, name string) *user.User {
	t.Helper()
	u, err := users.Create(context.Background(), &user.CreateUserRequest{Name: name})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateTrip(t *testing.T) {
	t.Parallel()
	svc, users := newTestService(t)
	ctx := context.Background()
	host := mustUser(t, users, "Priya")

	tr, err := svc.Create(ctx, host.ID, &CreateTripRequest{Name: " Goa Weekend ", Destination: "Goa"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.Status != StatusPlanning || tr.Name != "Goa Weekend" || tr.OwnerID != host.ID {
		t.Fatalf("unexpected trip %+v", tr)
	}

	isOwner, err := svc.IsOwner(ctx, tr.ID, host.ID)
	if err != nil || !isOwner {
		t.Fatalf("expected host to own trip: %v %v", isOwner, err)
	}
	isOwner, _ = svc.IsOwner(ctx, tr.ID, host.ID+1)
	if isOwner {
		t.Fatal("stranger must not own trip")
	}

	if _, err := svc.Create(ctx, host.ID, &CreateTripRequest{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, 999, &CreateTripRequest{Name: "Ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected unknown owner to be not found, got %v", err)
	}
	if _, err := svc.IsOwner(ctx, 999, host.ID); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected trip not found, got %v", err)
	}
}

func TestAdvanceHasOneWinner(t *testing.T) {
	t.Parallel()
	svc, users := newTestService(t)
	ctx := context.Background()
	host := mustUser(t, users, "Priya")
	tr, _ := svc.Create(ctx, host.ID, &CreateTripRequest{Name: "Ladakh"})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Advance(ctx, tr.ID, StatusPlanning, StatusPaymentOpen)
			if err != nil {
				t.Errorf("advance: %v", err)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	got, _ := svc.GetByID(ctx, tr.ID)
	if got.Status != StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN, got %s", got.Status)
	}

	// Never moves backwards
	ok, _ := svc.Advance(ctx, tr.ID, StatusPlanning, StatusPaymentOpen)
	if ok {
		t.Fatal("stale from-status must not win")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()
	svc, users := newTestService(t)
	ctx := context.Background()
	host := mustUser(t, users, "Priya")

	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.Create(ctx, host.ID, &CreateTripRequest{Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	svc.Advance(ctx, 2, StatusPlanning, StatusPaymentOpen)

	planning, total, err := svc.List(ctx, StatusPlanning, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(planning) != 2 || planning[0].ID != 3 {
		t.Fatalf("unexpected planning trips: total=%d %+v", total, planning)
	}

	page2, total, _ := svc.List(ctx, "", 2, 2)
	if total != 3 || len(page2) != 1 || page2[0].ID != 1 {
		t.Fatalf("unexpected second page: total=%d %+v", total, page2)
	}

	if _, _, err := svc.List(ctx, "DONE", 1, 20); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected bad status, got %v", err)
	}
}

func TestAdvanceWaitsForHold(t *testing.T) {
	t.Parallel()
	svc, users := newTestService(t)
	ctx := context.Background()
	host := mustUser(t, users, "Priya")
	tr, err := svc.Create(ctx, host.ID, &CreateTripRequest{Name: "Hampi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	held := make(chan struct{})
	release := make(chan struct{})
	holdDone := make(chan error, 1)
	go func() {
		holdDone <- svc.Hold(ctx, tr.ID, func(t *Trip) error {
			close(held)
			<-release
			if t.Status != StatusPlanning {
				return errors.New("status changed under hold")
			}
			return nil
		})
	}()
	<-held

	var advanced atomic.Bool
	advanceDone := make(chan struct{})
	go func() {
		defer close(advanceDone)
		won, err := svc.Advance(ctx, tr.ID, StatusPlanning, StatusPaymentOpen)
		if err != nil || !won {
			t.Errorf("advance: %v %v", won, err)
		}
		advanced.Store(true)
	}()

	// Reads stay open while the status is held
	if got, err := svc.GetByID(ctx, tr.ID); err != nil || got.Status != StatusPlanning {
		t.Fatalf("expected PLANNING during hold, got %+v %v", got, err)
	}
	if advanced.Load() {
		t.Fatal("advance finished while the trip was held")
	}

	close(release)
	if err := <-holdDone; err != nil {
		t.Fatalf("hold: %v", err)
	}
	<-advanceDone
	if got, _ := svc.GetByID(ctx, tr.ID); got.Status != StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN after hold, got %s", got.Status)
	}

	if err := svc.Hold(ctx, 404, func(*Trip) error { return nil }); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
