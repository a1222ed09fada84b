package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository handles notification persistence
type Repository interface {
	Create(ctx context.Context, recipientID int64, req *Request) (*Notification, error)
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context, recipientID int64) error
	GetUnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// MemoryRepository keeps notifications in process memory
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*Notification
}

// NewMemoryRepository creates an empty in-memory notification repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[int64]*Notification{}}
}

// Create stores a notification for one recipient
func (r *MemoryRepository) Create(_ context.Context, recipientID int64, req *Request) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	n := &Notification{
		ID:          r.nextID,
		RecipientID: recipientID,
		Type:        req.Type,
		Title:       req.Title,
		Body:        req.Body,
		TripID:      req.TripID,
		Target:      req.Target,
		CreatedAt:   time.Now().UTC(),
	}
	r.items[n.ID] = n
	out := *n
	return &out, nil
}

// GetByID retrieves a notification by its ID
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	out := *n
	return &out, nil
}

// ListByRecipientID retrieves a recipient's notifications, newest first
func (r *MemoryRepository) ListByRecipientID(_ context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*Notification
	for _, n := range r.items {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out := *n
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// MarkAsRead marks a notification as read
func (r *MemoryRepository) MarkAsRead(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.items[id]; ok {
		n.IsRead = true
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (r *MemoryRepository) MarkAllAsRead(_ context.Context, recipientID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (r *MemoryRepository) GetUnreadCount(_ context.Context, recipientID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
