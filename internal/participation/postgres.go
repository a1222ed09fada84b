package participation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const membershipColumns = `trip_id, user_id, state, paid, trust_score_at_joining, snapshot, created_at, updated_at`

// PostgresRepository handles membership persistence in Postgres
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new membership repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row rowScanner) (*Membership, error) {
	m := &Membership{}
	var rawSnapshot []byte
	if err := row.Scan(
		&m.TripID,
		&m.UserID,
		&m.State,
		&m.Paid,
		&m.TrustScoreAtJoining,
		&rawSnapshot,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawSnapshot) > 0 {
		if err := json.Unmarshal(rawSnapshot, &m.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode membership snapshot: %w", err)
		}
	}
	return m, nil
}

// Get retrieves a membership, or nil if the pair has none
func (r *PostgresRepository) Get(ctx context.Context, tripID, userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE trip_id = $1 AND user_id = $2 AND state <> 'NOT_JOINED'
	`

	m, err := scanMembership(r.db.QueryRowContext(ctx, query, tripID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListByTrip retrieves a trip's memberships in joining order
func (r *PostgresRepository) ListByTrip(ctx context.Context, tripID int64) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE trip_id = $1 AND state <> 'NOT_JOINED'
		ORDER BY created_at, user_id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// Upsert locks the (trip, user) row, applies fn and writes the result back.
// A NOT_JOINED placeholder row is inserted first so that two first-time
// requests serialize on the same row lock.
func (r *PostgresRepository) Upsert(ctx context.Context, tripID, userID int64, fn func(current *Membership) (*Membership, error)) (*Membership, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholder := `
		INSERT INTO memberships (trip_id, user_id, state)
		VALUES ($1, $2, 'NOT_JOINED')
		ON CONFLICT (trip_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, placeholder, tripID, userID); err != nil {
		return nil, fmt.Errorf("failed to reserve membership: %w", err)
	}

	locked, err := scanMembership(tx.QueryRowContext(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE trip_id = $1 AND user_id = $2
		FOR UPDATE
	`, tripID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock membership: %w", err)
	}

	var current *Membership
	if locked.State != StateNotJoined {
		current = locked
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(next.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode membership snapshot: %w", err)
	}

	query := `
		UPDATE memberships
		SET state = $3,
		    paid = $4,
		    trust_score_at_joining = $5,
		    snapshot = $6,
		    updated_at = NOW()
		WHERE trip_id = $1 AND user_id = $2
		RETURNING ` + membershipColumns

	saved, err := scanMembership(tx.QueryRowContext(ctx, query,
		tripID, userID, next.State, next.Paid, next.TrustScoreAtJoining, string(snapshot)))
	if err != nil {
		return nil, fmt.Errorf("failed to save membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit membership: %w", err)
	}
	return saved, nil
}
