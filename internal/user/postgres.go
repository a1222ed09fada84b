package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fkhayef/tribe/internal/vibe"
)

const userColumns = `id, name, kyc_verified, trips_completed, trips_dropped, avg_rating, rating_count,
	rating_total, abusive_count, toxic_count, spam_count, violent_content_flag, vibe, created_at, updated_at`

// PostgresRepository handles user data persistence in Postgres
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new user repository with database dependency injected
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var rawVibe []byte
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Trust.KYCVerified,
		&u.Trust.TripsCompleted,
		&u.Trust.TripsDropped,
		&u.Trust.AvgRating,
		&u.Trust.RatingCount,
		&u.RatingTotal,
		&u.Trust.ChatFlags.AbusiveCount,
		&u.Trust.ChatFlags.ToxicCount,
		&u.Trust.ChatFlags.SpamCount,
		&u.Trust.ViolentContentFlag,
		&rawVibe,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawVibe) > 0 {
		u.Vibe = &vibe.Profile{}
		if err := json.Unmarshal(rawVibe, u.Vibe); err != nil {
			return nil, fmt.Errorf("failed to decode vibe profile: %w", err)
		}
	}
	return u, nil
}

// Create inserts a new user into the database
func (r *PostgresRepository) Create(ctx context.Context, name string) (*User, error) {
	query := `
		INSERT INTO users (name)
		VALUES ($1)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by their ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetMany retrieves the users that exist among ids, ordered by ID
func (r *PostgresRepository) GetMany(ctx context.Context, ids []int64) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update locks the user row, applies fn and writes the result back
func (r *PostgresRepository) Update(ctx context.Context, id int64, fn func(u *User) error) (*User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := fn(u); err != nil {
		return nil, err
	}

	var rawVibe sql.NullString
	if u.Vibe != nil {
		b, err := json.Marshal(u.Vibe)
		if err != nil {
			return nil, fmt.Errorf("failed to encode vibe profile: %w", err)
		}
		rawVibe = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		UPDATE users
		SET name = $2,
		    kyc_verified = $3,
		    trips_completed = $4,
		    trips_dropped = $5,
		    avg_rating = $6,
		    rating_count = $7,
		    rating_total = $8,
		    abusive_count = $9,
		    toxic_count = $10,
		    spam_count = $11,
		    violent_content_flag = $12,
		    vibe = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(tx.QueryRowContext(ctx, query,
		u.ID,
		u.Name,
		u.Trust.KYCVerified,
		u.Trust.TripsCompleted,
		u.Trust.TripsDropped,
		u.Trust.AvgRating,
		u.Trust.RatingCount,
		u.RatingTotal,
		u.Trust.ChatFlags.AbusiveCount,
		u.Trust.ChatFlags.ToxicCount,
		u.Trust.ChatFlags.SpamCount,
		u.Trust.ViolentContentFlag,
		rawVibe,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}
	return updated, nil
}
