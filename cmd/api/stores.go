package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/fkhayef/tribe/internal/config"
	"github.com/fkhayef/tribe/internal/database"
	"github.com/fkhayef/tribe/internal/negotiation"
	"github.com/fkhayef/tribe/internal/notification"
	"github.com/fkhayef/tribe/internal/participation"
	"github.com/fkhayef/tribe/internal/payment"
	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/user"
)

// stores holds one repository per feature, all on the same backend
type stores struct {
	users         user.Repository
	trips         trip.Repository
	memberships   participation.Repository
	negotiations  negotiation.Store
	receipts      payment.Repository
	notifications notification.Repository

	db *sql.DB
}

func memoryStores() *stores {
	return &stores{
		users:         user.NewMemoryRepository(),
		trips:         trip.NewMemoryRepository(),
		memberships:   participation.NewMemoryRepository(),
		negotiations:  negotiation.NewMemoryStore(),
		receipts:      payment.NewMemoryRepository(),
		notifications: notification.NewMemoryRepository(),
	}
}

func postgresStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Println("[INFO] connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	return &stores{
		users:         user.NewPostgresRepository(db),
		trips:         trip.NewPostgresRepository(db),
		memberships:   participation.NewPostgresRepository(db),
		negotiations:  negotiation.NewPostgresStore(db),
		receipts:      payment.NewPostgresRepository(db),
		notifications: notification.NewPostgresRepository(db),
		db:            db,
	}, nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Println("[WARN] using in-memory stores; data is lost on restart")
		return memoryStores(), nil
	}
	return postgresStores(ctx, cfg)
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
