package participation

import (
	"context"
	"sort"
	"sync"
	"time"
)

type key struct {
	tripID, userID int64
}

// Repository persists memberships keyed by (trip, user).
//
// Upsert is an atomic read-modify-write: fn receives the stored record, or
// nil when the pair has none, and returns the record to save. An error from
// fn aborts the write and is returned unchanged.
type Repository interface {
	Get(ctx context.Context, tripID, userID int64) (*Membership, error)
	ListByTrip(ctx context.Context, tripID int64) ([]*Membership, error)
	Upsert(ctx context.Context, tripID, userID int64, fn func(current *Membership) (*Membership, error)) (*Membership, error)
}

// MemoryRepository keeps memberships in process memory
type MemoryRepository struct {
	mu          sync.Mutex
	memberships map[key]*Membership
}

// NewMemoryRepository creates an empty in-memory membership repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{memberships: map[key]*Membership{}}
}

// Get retrieves a membership, or nil if the pair has none
func (r *MemoryRepository) Get(_ context.Context, tripID, userID int64) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.memberships[key{tripID, userID}]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

// ListByTrip retrieves a trip's memberships in joining order
func (r *MemoryRepository) ListByTrip(_ context.Context, tripID int64) ([]*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Membership
	for k, m := range r.memberships {
		if k.tripID == tripID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Upsert applies fn to the stored membership under the repository lock
func (r *MemoryRepository) Upsert(_ context.Context, tripID, userID int64, fn func(current *Membership) (*Membership, error)) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{tripID, userID}
	var current *Membership
	if m, ok := r.memberships[k]; ok {
		c := *m
		current = &c
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := *next
	stored.TripID, stored.UserID = tripID, userID
	if current != nil {
		stored.CreatedAt = current.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.memberships[k] = &stored

	out := stored
	return &out, nil
}
