package participation

import (
	"context"
	"testing"

	"github.com/fkhayef/tribe/internal/events/eventstest"
	"github.com/fkhayef/tribe/internal/notification"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/user"
)

type fixture struct {
	svc           *Service
	users         *user.Service
	userRepo      *user.MemoryRepository
	trips         *trip.Service
	notifications *notification.Service
	events        *eventstest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &eventstest.Recorder{}
	userRepo := user.NewMemoryRepository()
	users := user.NewService(userRepo)
	trips := trip.NewService(trip.NewMemoryRepository(), users)
	notifications := notification.NewService(notification.NewMemoryRepository(), rec)
	return &fixture{
		svc:           NewService(NewMemoryRepository(), trips, users, rec, notifications),
		users:         users,
		userRepo:      userRepo,
		trips:         trips,
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

// trip creates a trip hosted by a fresh owner enrolled the way the API does it
func (f *fixture) trip(t *testing.T) (*trip.Trip, *user.User) {
	t.Helper()
	ctx := context.Background()
	host := f.user(t, "Priya Nair", trust.Profile{KYCVerified: true})
	tr, err := f.trips.Create(ctx, host.ID, &trip.CreateTripRequest{Name: "Goa Weekend"})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if err := f.svc.JoinAsOwner(ctx, tr.ID, host.ID); err != nil {
		t.Fatalf("enrol owner: %v", err)
	}
	f.events.Reset()
	return tr, host
}

// highTrust scores 9.8
var highTrust = trust.Profile{KYCVerified: true, TripsCompleted: 5, AvgRating: 4.8, RatingCount: 5}

// unverifiedHighTrust scores 7.8 without identity verification
var unverifiedHighTrust = trust.Profile{TripsCompleted: 5, AvgRating: 4.8, RatingCount: 5}
