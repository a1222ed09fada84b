// Package eventstest provides an events.Publisher that remembers what it saw.
package eventstest

import (
	"context"
	"sync"

	"github.com/fkhayef/tribe/internal/events"
)

// Recorder collects published events in order
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Publish records evt
func (r *Recorder) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Texts returns the text of every system message, in order
func (r *Recorder) Texts() []string {
	var out []string
	for _, evt := range r.Events() {
		if evt.Type == events.TypeSystemMessage {
			out = append(out, evt.Text)
		}
	}
	return out
}

// Count returns how many events of the given type were recorded
func (r *Recorder) Count(eventType events.Type) int {
	n := 0
	for _, evt := range r.Events() {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
