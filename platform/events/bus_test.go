package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hiring_assistant_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("first")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if err == nil || err.Error() != "first" {
		t.Fatalf("PublishSync() error = %v, want first", err)
	}
	if calls != 2 {
		t.Fatalf("handlers called %d times, want 2", calls)
	}
}

func TestPublishRunsHandlersAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		panic("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("handlers called %d times, want 3", got)
	}
}

type keyedEvent struct {
	BaseEvent
	Key string
	Seq int
}

func (keyedEvent) EventName() string     { return "test.keyed" }
func (e keyedEvent) OrderingKey() string { return e.Key }

func TestPublishKeepsOrderPerKey(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	release := make(chan struct{})
	otherDone := make(chan struct{})

	var mu sync.Mutex
	var seen []int
	bus.Subscribe("test.keyed", HandlerFunc(func(_ context.Context, e Event) error {
		ev := e.(keyedEvent)
		if ev.Key == "b" {
			close(otherDone)
			return nil
		}
		if ev.Seq == 1 {
			<-release
		}
		mu.Lock()
		seen = append(seen, ev.Seq)
		mu.Unlock()
		return nil
	}))

	ctx := context.Background()
	for seq := 1; seq <= 5; seq++ {
		bus.Publish(ctx, keyedEvent{BaseEvent: NewBaseEvent(), Key: "a", Seq: seq})
	}
	bus.Publish(ctx, keyedEvent{BaseEvent: NewBaseEvent(), Key: "b"})

	select {
	case <-otherDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("event with another key was blocked")
	}
	mu.Lock()
	if len(seen) != 0 {
		t.Fatalf("later events overtook a blocked one: %v", seen)
	}
	mu.Unlock()

	close(release)
	bus.Wait()

	for i, seq := range seen {
		if seq != i+1 {
			t.Fatalf("delivery order = %v, want 1..5", seen)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("delivered %d events, want 5", len(seen))
	}
	if len(bus.tails) != 0 {
		t.Fatalf("ordering queues not released: %d left", len(bus.tails))
	}
}

func TestBaseEventAtIsUTC(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	got := BaseEventAt(at).OccurredAt()
	if got.Location() != time.UTC || !got.Equal(at) {
		t.Fatalf("OccurredAt() = %v", got)
	}
}
