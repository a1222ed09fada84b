package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fkhayef/tribe/internal/config"
	"github.com/fkhayef/tribe/internal/events"
	"github.com/fkhayef/tribe/internal/matching"
	"github.com/fkhayef/tribe/internal/negotiation"
	"github.com/fkhayef/tribe/internal/notification"
	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/payment"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/user"
	mw "github.com/fkhayef/tribe/pkg/middleware"
)

// app wires every feature service over one set of stores and one event bus
type app struct {
	users         *user.Service
	trips         *trip.Service
	members       *participation.Service
	ledger        *negotiation.Service
	payments      *payment.Service
	matching      *matching.Service
	notifications *notification.Service
	bus           events.Bus
}

func newApp(s *stores, bus events.Bus) *app {
	// User feature
	users := user.NewService(s.users)

	// Trip feature
	trips := trip.NewService(s.trips, users)

	// Notification outbox
	notifications := notification.NewService(s.notifications, bus)

	// Join state machine
	members := participation.NewService(s.memberships, trips, users, bus, notifications)

	// Negotiation ledger
	ledger := negotiation.NewService(s.negotiations, trips, members, users, bus, notifications)

	return &app{
		users:         users,
		trips:         trips,
		members:       members,
		ledger:        ledger,
		payments:      payment.NewService(s.receipts, trips, members, ledger),
		matching:      matching.NewService(trips, members, users),
		notifications: notifications,
		bus:           bus,
	}
}

// identity picks bearer tokens when a secret is configured and the dev
// header otherwise
func identity(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.JWTSecret != "" {
		return mw.AuthMiddleware(cfg.JWTSecret)
	}
	return mw.TestUserMiddleware
}

func (a *app) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Service-to-service endpoints: verification, moderation and the
		// payment gateway
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireServiceToken(cfg.ServiceToken))

			r.Mount("/internal/users", user.NewHandler(a.users).InternalRoutes())
			r.Mount("/internal/trips/{id}/payment", payment.NewHandler(a.payments).InternalRoutes())
		})

		r.Group(func(r chi.Router) {
			r.Use(identity(cfg))

			r.Mount("/users", user.NewHandler(a.users).Routes())
			r.Mount("/notifications", notification.NewHandler(a.notifications).Routes())

			// Trip sub-resources, registered before the trip router so the
			// longer patterns win
			r.Mount("/trips/{id}/members", participation.NewHandler(a.members).Routes())
			r.Mount("/trips/{id}/negotiation", negotiation.NewHandler(a.ledger).Routes())
			r.Mount("/trips/{id}/payment", payment.NewHandler(a.payments).Routes())
			r.Get("/trips/{id}/events", events.NewHandler(a.bus, a.members, cfg.WSAllowedOrigins).Stream)
			matching.NewHandler(a.matching).Register(r)

			r.Mount("/trips", trip.NewHandler(a.trips, a.members).Routes())
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
