package hiringtest

import (
	"context"
	"sync"

	"hiring_assistant_backend/internal/events"
)

// Bus records published events without delivering them.
type Bus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *Bus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *Bus) Subscribe(string, events.Handler) {}

// Named returns the recorded events with the given name, in publish order.
func (b *Bus) Named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
