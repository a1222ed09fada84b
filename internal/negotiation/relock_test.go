package negotiation

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/trip"
)

// steppedTrips pauses the next hold once it has the trip and reports when
// a status change is attempted
type steppedTrips struct {
	*trip.MemoryRepository
	armed    atomic.Bool
	held     chan struct{}
	release  chan struct{}
	advanced chan struct{}
}

func newSteppedTrips() *steppedTrips {
	return &steppedTrips{
		MemoryRepository: trip.NewMemoryRepository(),
		held:             make(chan struct{}),
		release:          make(chan struct{}),
		advanced:         make(chan struct{}, 1),
	}
}

func (r *steppedTrips) Hold(ctx context.Context, id int64, fn func(t *trip.Trip) error) error {
	pause := r.armed.CompareAndSwap(true, false)
	return r.MemoryRepository.Hold(ctx, id, func(t *trip.Trip) error {
		if pause {
			close(r.held)
			<-r.release
		}
		return fn(t)
	})
}

func (r *steppedTrips) CompareAndSetStatus(ctx context.Context, id int64, from, to trip.Status) (bool, error) {
	select {
	case r.advanced <- struct{}{}:
	default:
	}
	return r.MemoryRepository.CompareAndSetStatus(ctx, id, from, to)
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// A re-lock that read PLANNING must land before payments open, so the
// announced amount is the one members are charged.
func TestRelockRacingPaymentOpen(t *testing.T) {
	t.Parallel()
	repo := newSteppedTrips()
	f := newFixtureWithTrips(t, repo)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Bus", "1450")
	train := f.propose(t, tr.ID, member.ID, CategoryTransport, "Train", "20000")
	villa := f.propose(t, tr.ID, member.ID, CategoryLodging, "Villa", "8500")
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID); err != nil {
		t.Fatalf("lock bus: %v", err)
	}
	f.events.Reset()

	repo.armed.Store(true)
	relock := make(chan error, 1)
	go func() {
		_, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, train.ID)
		relock <- err
	}()
	waitFor(t, repo.held, "the re-lock to read the trip")

	lodging := make(chan error, 1)
	go func() {
		_, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryLodging, villa.ID)
		lodging <- err
	}()
	waitFor(t, repo.advanced, "the lodging lock to open payments")

	time.Sleep(20 * time.Millisecond)
	if got := f.status(t, tr.ID); got != trip.StatusPlanning {
		t.Fatalf("payments opened while a re-lock was in flight, status %s", got)
	}

	close(repo.release)
	for name, ch := range map[string]chan error{"re-lock": relock, "lodging lock": lodging} {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", name)
		}
	}

	if got := f.status(t, tr.ID); got != trip.StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN, got %s", got)
	}
	want := decimal.NewFromInt(28500)
	amount, err := f.svc.PayableAmount(ctx, tr.ID)
	if err != nil || !amount.Equal(want) {
		t.Fatalf("expected %s payable, got %s %v", want, amount, err)
	}

	var announced []decimal.Decimal
	for _, evt := range f.events.Events() {
		if evt.Type != events.TypeLifecycleChanged {
			continue
		}
		var data struct {
			PayableAmount decimal.Decimal `json:"payable_amount"`
		}
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			t.Fatalf("decode lifecycle event: %v", err)
		}
		announced = append(announced, data.PayableAmount)
	}
	if len(announced) != 1 || !announced[0].Equal(want) {
		t.Fatalf("expected one announcement of %s, got %v", want, announced)
	}
}
