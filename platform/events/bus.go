package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hiring_assistant_backend/platform/logger"
)

const asyncHandlerTimeout = 30 * time.Second

// InMemoryBus dispatches events to handlers registered in the same process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	log      *logger.Logger

	// tails holds, per ordering key, a channel closed once the most recently
	// published event for that key has been fully handled.
	tailsMu sync.Mutex
	tails   map[string]chan struct{}
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		tails:    make(map[string]chan struct{}),
		log:      log,
	}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := b.handlers[eventName]
	out := make([]Handler, len(list))
	copy(out, list)
	return out
}

// Publish runs handlers in the background. The request context is detached
// so handlers outlive the request that raised the event. Unkeyed events get
// one goroutine per handler; keyed events run their handlers one after the
// other, after every earlier event with the same key.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.EventName())
	if len(handlers) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)

	key := orderingKey(event)
	if key == "" {
		for _, h := range handlers {
			b.wg.Add(1)
			go func(h Handler) {
				defer b.wg.Done()
				b.runAsync(base, h, event)
			}(h)
		}
		return
	}

	prev, done := b.enqueue(key)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.release(key, done)
		if prev != nil {
			<-prev
		}
		for _, h := range handlers {
			b.runAsync(base, h, event)
		}
	}()
}

// enqueue makes done the new tail for key and returns the previous tail.
func (b *InMemoryBus) enqueue(key string) (prev, done chan struct{}) {
	done = make(chan struct{})
	b.tailsMu.Lock()
	defer b.tailsMu.Unlock()
	prev = b.tails[key]
	b.tails[key] = done
	return prev, done
}

func (b *InMemoryBus) release(key string, done chan struct{}) {
	b.tailsMu.Lock()
	defer b.tailsMu.Unlock()
	close(done)
	if b.tails[key] == done {
		delete(b.tails, key)
	}
}

func (b *InMemoryBus) runAsync(base context.Context, h Handler, event Event) {
	hctx, cancel := context.WithTimeout(base, asyncHandlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", event.EventName(), "panic", fmt.Sprint(r))
		}
	}()
	if err := h.Handle(hctx, event); err != nil {
		b.log.Warn("event handler failed", "event", event.EventName(), "error", err)
	}
}

// PublishSync runs each handler in registration order and returns the joined errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until every asynchronously published handler has returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
