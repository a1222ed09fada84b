package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out through Redis pub/sub so every API replica sees
// changes made by the others.
type RedisBus struct {
	client *redis.Client
	buffer int
}

// NewRedisBus connects to the Redis server at url and checks it answers
func NewRedisBus(ctx context.Context, url string) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisBusFromClient(client), nil
}

// NewRedisBusFromClient wraps an existing client
func NewRedisBusFromClient(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, buffer: defaultBuffer}
}

func channelName(tripID int64) string {
	return fmt.Sprintf("trip:%d:events", tripID)
}

// Publish sends evt to the trip channel
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(evt.TripID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the trip channel. It returns once Redis has confirmed
// the subscription, so nothing published afterwards is missed.
func (b *RedisBus) Subscribe(ctx context.Context, tripID int64) (<-chan Event, func(), error) {
	ps := b.client.Subscribe(ctx, channelName(tripID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() { ps.Close() })
	}

	out := make(chan Event, b.buffer)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Printf("[WARN] dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()
	return out, stop, nil
}

// Close releases the Redis connection pool
func (b *RedisBus) Close() error {
	return b.client.Close()
}
