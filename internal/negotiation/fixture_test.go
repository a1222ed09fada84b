package negotiation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tribe/internal/events/eventstest"
	"github.com/fkhayef/tribe/internal/notification"
	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/user"
)

type fixture struct {
	svc           *Service
	userRepo      *user.MemoryRepository
	trips         *trip.Service
	members       *participation.Service
	notifications *notification.Service
	events        *eventstest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithTrips(t, trip.NewMemoryRepository())
}

func newFixtureWithTrips(t *testing.T, tripRepo trip.Repository) *fixture {
	t.Helper()
	rec := &eventstest.Recorder{}
	userRepo := user.NewMemoryRepository()
	users := user.NewService(userRepo)
	trips := trip.NewService(tripRepo, users)
	notifications := notification.NewService(notification.NewMemoryRepository(), rec)
	members := participation.NewService(participation.NewMemoryRepository(), trips, users, rec, notifications)
	return &fixture{
		svc:           NewService(NewMemoryStore(), trips, members, users, rec, notifications),
		userRepo:      userRepo,
		trips:         trips,
		members:       members,
		notifications: notifications,
		events:        rec,
	}
}

func (f *fixture) user(t *testing.T, name string, p trust.Profile) *user.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.userRepo.Create(ctx, name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err = f.userRepo.Update(ctx, u.ID, func(u *user.User) error {
		u.Trust = p
		return nil
	})
	if err != nil {
		t.Fatalf("set trust: %v", err)
	}
	return u
}

// trip creates a planning trip with its host and one auto-approved member
func (f *fixture) trip(t *testing.T) (tr *trip.Trip, host, member *user.User) {
	t.Helper()
	ctx := context.Background()
	host = f.user(t, "Priya Nair", trust.Profile{KYCVerified: true})
	tr, err := f.trips.Create(ctx, host.ID, &trip.CreateTripRequest{Name: "Goa Weekend", Destination: "Goa"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if err := f.members.JoinAsOwner(ctx, tr.ID, host.ID); err != nil {
		t.Fatalf("enrol owner: %v", err)
	}
	member = f.user(t, "Arjun Mehta", trust.Profile{KYCVerified: true, TripsCompleted: 5, AvgRating: 4.8, RatingCount: 5})
	m, err := f.members.RequestToJoin(ctx, tr.ID, member.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if m.State != participation.StateApprovedUnpaid {
		t.Fatalf("expected member auto-approved, got %s", m.State)
	}
	f.events.Reset()
	return tr, host, member
}

func (f *fixture) propose(t *testing.T, tripID, userID int64, c Category, title, price string) *Proposal {
	t.Helper()
	p, err := f.svc.Propose(context.Background(), tripID, userID, c, &ProposeRequest{
		Title:          title,
		PricePerPerson: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("propose %s: %v", title, err)
	}
	return p
}

func (f *fixture) status(t *testing.T, tripID int64) trip.Status {
	t.Helper()
	tr, err := f.trips.GetByID(context.Background(), tripID)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	return tr.Status
}
