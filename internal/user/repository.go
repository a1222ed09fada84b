package user

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists users. Update applies fn to the stored user and saves
// the result atomically; it returns (nil, nil) when the user does not exist.
type Repository interface {
	Create(ctx context.Context, name string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetMany(ctx context.Context, ids []int64) ([]*User, error)
	Update(ctx context.Context, id int64, fn func(u *User) error) (*User, error)
}

// MemoryRepository keeps users in process memory
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
}

// NewMemoryRepository creates an empty in-memory user repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[int64]*User{}}
}

// Create stores a new user
func (r *MemoryRepository) Create(_ context.Context, name string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	u := &User{ID: r.nextID, Name: name, CreatedAt: now, UpdatedAt: now}
	r.users[u.ID] = u
	return clone(u), nil
}

// GetByID retrieves a user by their ID
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

// GetMany retrieves the users that exist among ids, ordered by ID
func (r *MemoryRepository) GetMany(_ context.Context, ids []int64) ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool, len(ids))
	var users []*User
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := r.users[id]; ok {
			users = append(users, clone(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Update modifies a user under the repository lock
func (r *MemoryRepository) Update(_ context.Context, id int64, fn func(u *User) error) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u := clone(stored)
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return clone(u), nil
}

func clone(u *User) *User {
	c := *u
	if u.Vibe != nil {
		v := *u.Vibe
		c.Vibe = &v
	}
	return &c
}
