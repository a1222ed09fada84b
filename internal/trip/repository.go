package trip

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists trips
type Repository interface {
	Create(ctx context.Context, t *Trip) (*Trip, error)
	GetByID(ctx context.Context, id int64) (*Trip, error)
	// List returns trips newest first; an empty status matches every trip.
	List(ctx context.Context, status Status, limit, offset int) ([]*Trip, int, error)
	// CompareAndSetStatus moves the trip from one status to another and
	// reports whether this call made the change. It waits for running holds.
	CompareAndSetStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	// Hold runs fn with the stored trip (nil when missing) while its status
	// cannot change. Several holds on a trip may run at once. fn must not
	// change the trip's status or hold it again.
	Hold(ctx context.Context, id int64, fn func(t *Trip) error) error
}

// MemoryRepository keeps trips in process memory
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	trips  map[int64]*Trip
	status map[int64]*sync.RWMutex
}

// NewMemoryRepository creates an empty in-memory trip repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{trips: map[int64]*Trip{}, status: map[int64]*sync.RWMutex{}}
}

// statusLock is read-held by Hold and write-held by status changes
func (r *MemoryRepository) statusLock(id int64) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.status[id]
	if !ok {
		l = &sync.RWMutex{}
		r.status[id] = l
	}
	return l
}

// Create stores a new trip
func (r *MemoryRepository) Create(_ context.Context, t *Trip) (*Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	stored := *t
	stored.ID = r.nextID
	if stored.Status == "" {
		stored.Status = StatusPlanning
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.trips[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetByID retrieves a trip by its ID
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

// List retrieves trips with pagination
func (r *MemoryRepository) List(_ context.Context, status Status, limit, offset int) ([]*Trip, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*Trip
	for _, t := range r.trips {
		if status != "" && t.Status != status {
			continue
		}
		out := *t
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

// CompareAndSetStatus moves the trip from one status to another
func (r *MemoryRepository) CompareAndSetStatus(_ context.Context, id int64, from, to Status) (bool, error) {
	l := r.statusLock(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Hold runs fn while the trip's status is frozen
func (r *MemoryRepository) Hold(ctx context.Context, id int64, fn func(t *Trip) error) error {
	l := r.statusLock(id)
	l.RLock()
	defer l.RUnlock()

	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fn(t)
}
