package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/notification"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/pkg/apperr"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "TRANSPORT", want: CategoryTransport},
		{in: " lodging ", want: CategoryLodging},
		{in: "Flight", want: CategoryFlight},
		{in: "FOOD", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("ParseCategory(%q) expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseCategory(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestBookingPhaseCompletes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Volvo sleeper bus", "1450")
	villa := f.propose(t, tr.ID, host.ID, CategoryLodging, "Anjuna villa", "8500")

	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID); err != nil {
		t.Fatalf("lock transport: %v", err)
	}
	if got := f.status(t, tr.ID); got != trip.StatusPlanning {
		t.Fatalf("expected PLANNING with lodging open, got %s", got)
	}
	amount, err := f.svc.PayableAmount(ctx, tr.ID)
	if err != nil || !amount.IsZero() {
		t.Fatalf("expected zero payable before booking completes, got %s %v", amount, err)
	}

	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryLodging, villa.ID); err != nil {
		t.Fatalf("lock lodging: %v", err)
	}
	if got := f.status(t, tr.ID); got != trip.StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN, got %s", got)
	}

	ledger, err := f.svc.Ledger(ctx, tr.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if !ledger.PayableAmount.Equal(decimal.NewFromInt(9950)) {
		t.Fatalf("expected 9950 payable, got %s", ledger.PayableAmount)
	}
	if ledger.Status != trip.StatusPaymentOpen || len(ledger.Categories) != len(Categories) {
		t.Fatalf("unexpected ledger %+v", ledger)
	}

	texts := f.events.Texts()
	want := []string{
		"Arjun Mehta proposed TRANSPORT: Volvo sleeper bus, ₹1450",
		"Priya Nair proposed LODGING: Anjuna villa, ₹8500",
		"Host locked TRANSPORT: Volvo sleeper bus",
		"Host locked LODGING: Anjuna villa",
		"Booking Phase Complete. Payments Are Now Open.",
	}
	if len(texts) != len(want) {
		t.Fatalf("expected messages %q, got %q", want, texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, texts[i], want[i])
		}
	}
	if n := f.events.Count(events.TypeLifecycleChanged); n != 1 {
		t.Fatalf("expected one lifecycle event, got %d", n)
	}

	// The host paid on creating the trip, so only the member owes
	due, _, err := f.notifications.ListByRecipientID(ctx, member.ID, 1, 20, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var paymentDue int
	for _, n := range due {
		if n.Type == notification.TypePaymentDue {
			paymentDue++
			if n.Body != "Your share is ₹9950." {
				t.Errorf("unexpected body %q", n.Body)
			}
		}
	}
	if paymentDue != 1 {
		t.Fatalf("expected one payment_due notification, got %d", paymentDue)
	}
	hostNotes, _, _ := f.notifications.ListByRecipientID(ctx, host.ID, 1, 20, false)
	for _, n := range hostNotes {
		if n.Type == notification.TypePaymentDue || n.Type == notification.TypeProposalLocked {
			t.Fatalf("host should not be notified of own lock or payment, got %s", n.Type)
		}
	}
}

func TestFlightStandsInForTransport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	flight := f.propose(t, tr.ID, member.ID, CategoryFlight, "IndiGo 6E-501", "4200.50")
	hostel := f.propose(t, tr.ID, member.ID, CategoryLodging, "Zostel", "1200")

	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryFlight, flight.ID); err != nil {
		t.Fatalf("lock flight: %v", err)
	}
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryLodging, hostel.ID); err != nil {
		t.Fatalf("lock lodging: %v", err)
	}
	if got := f.status(t, tr.ID); got != trip.StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN, got %s", got)
	}
	amount, _ := f.svc.PayableAmount(ctx, tr.ID)
	if !amount.Equal(decimal.RequireFromString("5400.50")) {
		t.Fatalf("expected 5400.50, got %s", amount)
	}
}

func TestBoardPrefersTransportOverFlight(t *testing.T) {
	t.Parallel()

	lockedState := func(c Category, price string) *CategoryState {
		p := &Proposal{ID: uuid.New(), Category: c, PricePerPerson: decimal.RequireFromString(price)}
		id := p.ID
		return &CategoryState{Category: c, Proposals: []*Proposal{p}, LockedProposalID: &id}
	}

	board := Board{
		CategoryTransport: lockedState(CategoryTransport, "1000"),
		CategoryFlight:    lockedState(CategoryFlight, "5000"),
		CategoryLodging:   lockedState(CategoryLodging, "2000"),
	}
	if !board.BookingComplete() {
		t.Fatal("expected booking complete")
	}
	if got := board.PayableAmount(); !got.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected 3000, got %s", got)
	}

	delete(board, CategoryLodging)
	if board.BookingComplete() || !board.PayableAmount().IsZero() {
		t.Fatal("board without lodging must not be complete")
	}
}

func TestProposeValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)
	outsider := f.user(t, "Kabir", trust.Profile{})

	tests := []struct {
		name   string
		userID int64
		req    ProposeRequest
		want   error
	}{
		{name: "blank_title", userID: member.ID, req: ProposeRequest{Title: "  ", PricePerPerson: decimal.NewFromInt(10)}, want: apperr.ErrValidation},
		{name: "zero_price", userID: member.ID, req: ProposeRequest{Title: "Bus"}, want: apperr.ErrValidation},
		{name: "negative_price", userID: host.ID, req: ProposeRequest{Title: "Bus", PricePerPerson: decimal.NewFromInt(-5)}, want: apperr.ErrValidation},
		{name: "not_a_member", userID: outsider.ID, req: ProposeRequest{Title: "Bus", PricePerPerson: decimal.NewFromInt(10)}, want: apperr.ErrUnauthorized},
	}
	for _, tt := range tests {
		req := tt.req
		if _, err := f.svc.Propose(ctx, tr.ID, tt.userID, CategoryTransport, &req); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	if _, err := f.svc.Propose(ctx, 999, host.ID, CategoryTransport, &ProposeRequest{Title: "Bus", PricePerPerson: decimal.NewFromInt(10)}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown trip, got %v", err)
	}
}

func TestProposeIntoLockedCategory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Bus", "900")
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	_, err := f.svc.Propose(ctx, tr.ID, member.ID, CategoryTransport, &ProposeRequest{Title: "Train", PricePerPerson: decimal.NewFromInt(700)})
	if !errors.Is(err, ErrCategoryLocked) || !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected category locked, got %v", err)
	}

	st, _ := f.svc.State(ctx, tr.ID, CategoryTransport)
	if len(st.Proposals) != 1 {
		t.Fatalf("locked category must keep one proposal, got %d", len(st.Proposals))
	}
}

func TestVote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Volvo sleeper bus", "1450")
	if !bus.HasVoter(member.ID) {
		t.Fatal("proposer should be the first voter")
	}
	f.events.Reset()

	p, err := f.svc.Vote(ctx, tr.ID, host.ID, CategoryTransport, bus.ID, DecisionYes)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(p.VoterIDs) != 2 {
		t.Fatalf("expected two voters, got %v", p.VoterIDs)
	}
	if _, err := f.svc.Vote(ctx, tr.ID, host.ID, CategoryTransport, bus.ID, DecisionYes); err != nil {
		t.Fatalf("repeat vote: %v", err)
	}
	if texts := f.events.Texts(); len(texts) != 1 || texts[0] != "Priya Nair agreed to Volvo sleeper bus" {
		t.Fatalf("expected one agreement message, got %q", texts)
	}

	p, err = f.svc.Vote(ctx, tr.ID, host.ID, CategoryTransport, bus.ID, DecisionNo)
	if err != nil {
		t.Fatalf("vote no: %v", err)
	}
	if p.HasVoter(host.ID) || len(p.VoterIDs) != 1 {
		t.Fatalf("expected host removed, got %v", p.VoterIDs)
	}
	if len(f.events.Texts()) != 1 {
		t.Fatal("NO must not post a chat message")
	}

	// Unknown proposals are ignored
	p, err = f.svc.Vote(ctx, tr.ID, host.ID, CategoryTransport, uuid.New(), DecisionYes)
	if err != nil || p != nil {
		t.Fatalf("expected silent no-op, got %+v %v", p, err)
	}

	outsider := f.user(t, "Kabir", trust.Profile{})
	if _, err := f.svc.Vote(ctx, tr.ID, outsider.ID, CategoryTransport, bus.ID, DecisionYes); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for outsider, got %v", err)
	}
	if _, err := f.svc.Vote(ctx, tr.ID, host.ID, CategoryTransport, bus.ID, Decision("MAYBE")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Bus", "900")
	train := f.propose(t, tr.ID, member.ID, CategoryTransport, "Train", "700")

	if _, err := f.svc.Lock(ctx, tr.ID, member.ID, CategoryTransport, bus.ID); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected host-only lock, got %v", err)
	}
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for unknown proposal, got %v", err)
	}
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryLodging, bus.ID); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("proposal from another category must not lock, got %v", err)
	}

	st, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if st.Locked().ID != bus.ID {
		t.Fatalf("expected bus locked, got %+v", st.Locked())
	}
	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected already locked, got %v", err)
	}

	// The host may change their mind while planning
	st, err = f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, train.ID)
	if err != nil {
		t.Fatalf("re-lock: %v", err)
	}
	if st.Locked().ID != train.ID {
		t.Fatalf("expected train locked, got %+v", st.Locked())
	}

	notes, _, _ := f.notifications.ListByRecipientID(ctx, member.ID, 1, 20, false)
	locked := 0
	for _, n := range notes {
		if n.Type == notification.TypeProposalLocked {
			locked++
		}
	}
	if locked != 2 {
		t.Fatalf("expected two lock notifications for the member, got %d", locked)
	}
}

func TestLockAfterPaymentsOpen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Bus", "900")
	train := f.propose(t, tr.ID, member.ID, CategoryTransport, "Train", "700")
	villa := f.propose(t, tr.ID, member.ID, CategoryLodging, "Villa", "3000")
	f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, bus.ID)
	f.svc.Lock(ctx, tr.ID, host.ID, CategoryLodging, villa.ID)

	if _, err := f.svc.Lock(ctx, tr.ID, host.ID, CategoryTransport, train.ID); !errors.Is(err, ErrPlanningClosed) {
		t.Fatalf("expected planning closed, got %v", err)
	}
	amount, _ := f.svc.PayableAmount(ctx, tr.ID)
	if !amount.Equal(decimal.NewFromInt(3900)) {
		t.Fatalf("payable must not change after payments open, got %s", amount)
	}
}

func TestConcurrentLocksOpenPaymentsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tr, host, member := f.trip(t)

	bus := f.propose(t, tr.ID, member.ID, CategoryTransport, "Bus", "1450")
	villa := f.propose(t, tr.ID, member.ID, CategoryLodging, "Villa", "8500")
	f.events.Reset()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, lock := range []struct {
		c  Category
		id uuid.UUID
	}{{CategoryTransport, bus.ID}, {CategoryLodging, villa.ID}} {
		lock := lock
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Lock(ctx, tr.ID, host.ID, lock.c, lock.id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
	}

	if got := f.status(t, tr.ID); got != trip.StatusPaymentOpen {
		t.Fatalf("expected PAYMENT_OPEN, got %s", got)
	}
	if n := f.events.Count(events.TypeLifecycleChanged); n != 1 {
		t.Fatalf("expected exactly one lifecycle event, got %d", n)
	}
	complete := 0
	for _, text := range f.events.Texts() {
		if text == "Booking Phase Complete. Payments Are Now Open." {
			complete++
		}
	}
	if complete != 1 {
		t.Fatalf("expected one booking complete message, got %d", complete)
	}
}
