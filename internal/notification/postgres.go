package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const notificationColumns = `id, recipient_id, type, title, body, trip_id, target, is_read, created_at`

// PostgresRepository handles notification data persistence in Postgres
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new notification repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var rawTarget []byte
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.TripID,
		&rawTarget,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawTarget) > 0 {
		if err := json.Unmarshal(rawTarget, &n.Target); err != nil {
			return nil, fmt.Errorf("failed to decode notification target: %w", err)
		}
	}
	return n, nil
}

// Create inserts a new notification into the database
func (r *PostgresRepository) Create(ctx context.Context, recipientID int64, req *Request) (*Notification, error) {
	target, err := json.Marshal(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification target: %w", err)
	}

	query := `
		INSERT INTO notifications (recipient_id, type, title, body, trip_id, target)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns

	n, err := scanNotification(r.db.QueryRowContext(ctx, query,
		recipientID, req.Type, req.Title, req.Body, req.TripID, string(target)))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// GetByID retrieves a notification by its ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByRecipientID retrieves all notifications for a user
func (r *PostgresRepository) ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		countQuery += ` AND is_read = false`
	}
	if err := r.db.QueryRowContext(ctx, countQuery, recipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkAsRead marks a notification as read
func (r *PostgresRepository) MarkAsRead(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (r *PostgresRepository) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	query := `UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND is_read = false`
	if _, err := r.db.ExecContext(ctx, query, recipientID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (r *PostgresRepository) GetUnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
