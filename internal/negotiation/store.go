package negotiation

import (
	"context"
	"errors"
	"sync"
)

// errUnchanged tells a Store that fn decided to leave the state as it was
var errUnchanged = errors.New("negotiation state unchanged")

// Store persists the negotiation per (trip, category).
//
// Update is an atomic read-modify-write: fn edits the current state in place
// and the result is saved unless fn returns an error. Returning errUnchanged
// skips the write and Update returns the current state with no error.
type Store interface {
	Get(ctx context.Context, tripID int64, category Category) (*CategoryState, error)
	Board(ctx context.Context, tripID int64) (Board, error)
	Update(ctx context.Context, tripID int64, category Category, fn func(st *CategoryState) error) (*CategoryState, error)
}

type stateKey struct {
	tripID   int64
	category Category
}

// MemoryStore keeps negotiations in process memory
type MemoryStore struct {
	mu     sync.Mutex
	states map[stateKey]*CategoryState
}

// NewMemoryStore creates an empty in-memory negotiation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[stateKey]*CategoryState{}}
}

func (s *MemoryStore) current(tripID int64, category Category) *CategoryState {
	if st, ok := s.states[stateKey{tripID, category}]; ok {
		return st.clone()
	}
	return &CategoryState{TripID: tripID, Category: category}
}

// Get returns the state of one category, empty if nothing was proposed yet
func (s *MemoryStore) Get(_ context.Context, tripID int64, category Category) (*CategoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(tripID, category), nil
}

// Board returns the state of every category of the trip
func (s *MemoryStore) Board(_ context.Context, tripID int64) (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := make(Board, len(Categories))
	for _, c := range Categories {
		board[c] = s.current(tripID, c)
	}
	return board, nil
}

// Update applies fn to the category state under the store lock
func (s *MemoryStore) Update(_ context.Context, tripID int64, category Category, fn func(st *CategoryState) error) (*CategoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.current(tripID, category)
	if err := fn(st); err != nil {
		if errors.Is(err, errUnchanged) {
			return s.current(tripID, category), nil
		}
		return nil, err
	}
	s.states[stateKey{tripID, category}] = st
	return st.clone(), nil
}
