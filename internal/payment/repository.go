package payment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists payment receipts
type Repository interface {
	// Record stores r unless the member already has a receipt for the trip.
	// It returns the stored receipt and whether it was created.
	Record(ctx context.Context, r *Receipt) (*Receipt, bool, error)
	ListByTrip(ctx context.Context, tripID int64, limit, offset int) ([]*Receipt, int, error)
}

type receiptKey struct {
	tripID int64
	userID int64
}

// MemoryRepository keeps receipts in process memory
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	receipts map[receiptKey]*Receipt
}

// NewMemoryRepository creates an empty in-memory receipt store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{receipts: map[receiptKey]*Receipt{}}
}

// Record stores r once per (trip, user)
func (m *MemoryRepository) Record(_ context.Context, r *Receipt) (*Receipt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := receiptKey{r.TripID, r.UserID}
	if existing, ok := m.receipts[key]; ok {
		c := *existing
		return &c, false, nil
	}
	m.nextID++
	stored := *r
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	m.receipts[key] = &stored
	c := stored
	return &c, true, nil
}

// ListByTrip returns a trip's receipts, newest first
func (m *MemoryRepository) ListByTrip(_ context.Context, tripID int64, limit, offset int) ([]*Receipt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*Receipt
	for key, r := range m.receipts {
		if key.tripID == tripID {
			c := *r
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	if offset >= total {
		return []*Receipt{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
