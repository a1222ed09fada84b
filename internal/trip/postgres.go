package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const tripColumns = `id, owner_id, name, destination, status, created_at, updated_at`

// maxHolds caps concurrent holds. A hold keeps one pooled connection while
// fn writes through others, so the pool must never be all holds.
const maxHolds = 10

// PostgresRepository handles trip data persistence in Postgres
type PostgresRepository struct {
	db    *sql.DB
	holds chan struct{}
}

// NewPostgresRepository creates a new trip repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, holds: make(chan struct{}, maxHolds)}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	t := &Trip{}
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Name,
		&t.Destination,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// Create inserts a new trip into the database
func (r *PostgresRepository) Create(ctx context.Context, t *Trip) (*Trip, error) {
	status := t.Status
	if status == "" {
		status = StatusPlanning
	}
	query := `
		INSERT INTO trips (owner_id, name, destination, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + tripColumns

	created, err := scanTrip(r.db.QueryRowContext(ctx, query, t.OwnerID, t.Name, t.Destination, status))
	if err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	return created, nil
}

// GetByID retrieves a trip by its ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	t, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// List retrieves trips with pagination
func (r *PostgresRepository) List(ctx context.Context, status Status, limit, offset int) ([]*Trip, int, error) {
	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM trips WHERE ($1::text = '' OR status = $1::text)`
	if err := r.db.QueryRowContext(ctx, countQuery, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, total, nil
}

// CompareAndSetStatus moves the trip from one status to another in a single
// conditional update, so concurrent callers see exactly one winner.
func (r *PostgresRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	query := `UPDATE trips SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update trip status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update trip status: %w", err)
	}
	return n == 1, nil
}

// Hold share-locks the trip row for the duration of fn. Status updates wait
// for the lock, so the status fn sees stays true until fn returns.
func (r *PostgresRepository) Hold(ctx context.Context, id int64, fn func(t *Trip) error) error {
	select {
	case r.holds <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.holds }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTrip(tx.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR SHARE`, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to hold trip: %w", err)
		}
		t = nil
	}

	if err := fn(t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to release trip: %w", err)
	}
	return nil
}
