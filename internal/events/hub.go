package events

import (
	"context"
	"sync"
)

const defaultBuffer = 32

// Hub is an in-process Bus. Slow subscribers miss events instead of blocking
// publishers.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	subs   map[int64]map[chan Event]struct{}
}

// NewHub creates a hub; buffer <= 0 uses the default per-subscriber buffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{buffer: buffer, subs: map[int64]map[chan Event]struct{}{}}
}

// Subscribe registers a subscriber for tripID
func (h *Hub) Subscribe(ctx context.Context, tripID int64) (<-chan Event, func(), error) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	if h.subs[tripID] == nil {
		h.subs[tripID] = map[chan Event]struct{}{}
	}
	h.subs[tripID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			h.unsubscribe(tripID, ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

func (h *Hub) unsubscribe(tripID int64, ch chan Event) {
	h.mu.Lock()
	subs := h.subs[tripID]
	_, exists := subs[ch]
	if exists {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.subs, tripID)
		}
	}
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

// Publish fans evt out to the trip's subscribers without blocking
func (h *Hub) Publish(_ context.Context, evt Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[evt.TripID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribers reports how many subscribers a trip has
func (h *Hub) Subscribers(tripID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tripID])
}

// Close drops every subscriber
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[int64]map[chan Event]struct{}{}
	h.mu.Unlock()
	for _, chans := range subs {
		for ch := range chans {
			close(ch)
		}
	}
	return nil
}
