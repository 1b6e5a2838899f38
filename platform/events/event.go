// Package events provides the in-process event bus used to decouple the
// hiring core from audit and follow-up side effects.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Ordered events share a key with the events they must not overtake.
// Asynchronous delivery runs handlers for one key strictly in publish order;
// events without a key, or with an empty one, are delivered concurrently.
type Ordered interface {
	Event
	OrderingKey() string
}

// BaseEvent carries the time the event happened, which is not necessarily
// the time it was published.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEventAt(time.Now())
}

// BaseEventAt stamps an event with at, for events recorded after the fact.
func BaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

func orderingKey(event Event) string {
	if o, ok := event.(Ordered); ok {
		return o.OrderingKey()
	}
	return ""
}

// Handler processes published events.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish delivers the event in the background and returns at once.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler inline and joins their errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the event name returned by Event.EventName().
	Subscribe(eventName string, handler Handler)
}
