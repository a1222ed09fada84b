package payment

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepository stores receipts in the payment_receipts table
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new receipt repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const receiptColumns = `id, trip_id, user_id, amount, reference, created_at`

func scanReceipt(row interface{ Scan(...interface{}) error }) (*Receipt, error) {
	r := &Receipt{}
	if err := row.Scan(&r.ID, &r.TripID, &r.UserID, &r.Amount, &r.Reference, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

// Record inserts the receipt, keeping the existing one on conflict
func (p *PostgresRepository) Record(ctx context.Context, r *Receipt) (*Receipt, bool, error) {
	query := `
		INSERT INTO payment_receipts (trip_id, user_id, amount, reference)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trip_id, user_id) DO NOTHING
		RETURNING ` + receiptColumns

	stored, err := scanReceipt(p.db.QueryRowContext(ctx, query, r.TripID, r.UserID, r.Amount, r.Reference))
	if err == nil {
		return stored, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to record payment: %w", err)
	}

	query = `SELECT ` + receiptColumns + ` FROM payment_receipts WHERE trip_id = $1 AND user_id = $2`
	stored, err = scanReceipt(p.db.QueryRowContext(ctx, query, r.TripID, r.UserID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get payment: %w", err)
	}
	return stored, false, nil
}

// ListByTrip retrieves a trip's receipts, newest first
func (p *PostgresRepository) ListByTrip(ctx context.Context, tripID int64, limit, offset int) ([]*Receipt, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_receipts WHERE trip_id = $1`, tripID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := `
		SELECT ` + receiptColumns + `
		FROM payment_receipts
		WHERE trip_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := p.db.QueryContext(ctx, query, tripID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	receipts := []*Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return receipts, total, nil
}
