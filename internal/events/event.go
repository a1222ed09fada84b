// Package events carries trip changes to whoever is watching a trip: chat
// renders the system messages, clients refresh their view of the ledger.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type classifies an event
type Type string

const (
	TypeSystemMessage      Type = "system_message"
	TypeMembershipUpdated  Type = "membership_updated"
	TypeNegotiationUpdated Type = "negotiation_updated"
	TypeLifecycleChanged   Type = "lifecycle_changed"
	TypeNotification       Type = "notification"
)

// Event is one change on a trip
type Event struct {
	Type   Type            `json:"type"`
	TripID int64           `json:"trip_id"`
	At     time.Time       `json:"at"`
	Text   string          `json:"text,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with data encoded as JSON
func NewEvent(tripID int64, eventType Type, data interface{}) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{Type: eventType, TripID: tripID, At: time.Now().UTC(), Data: raw}
}

// SystemMessage builds a chat line authored by the system
func SystemMessage(tripID int64, text string) Event {
	return Event{Type: TypeSystemMessage, TripID: tripID, At: time.Now().UTC(), Text: text}
}

// Publisher sends events to a trip's subscribers
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus is a Publisher that can also be subscribed to per trip
type Bus interface {
	Publisher
	// Subscribe streams events for one trip until ctx ends or cancel is
	// called; the channel is closed afterwards.
	Subscribe(ctx context.Context, tripID int64) (<-chan Event, func(), error)
	Close() error
}
