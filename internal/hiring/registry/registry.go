// Package registry owns every live session of the process. Each session has
// its own lock; all mutation goes through WithSession.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/platform/apperr"
)

type entry struct {
	// lock is a one-slot semaphore so waiting can honour a context.
	lock    chan struct{}
	session *domain.Session
}

func newEntry(s *domain.Session) *entry {
	return &entry{lock: make(chan struct{}, 1), session: s}
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) release() {
	<-e.lock
}

// Registry is a concurrency-safe map of sessions with per-session locks and
// last-activity tracking for the sweeper.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	activity map[string]time.Time
	now      func() time.Time
}

// New creates an empty registry. now defaults to time.Now.
func New(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		entries:  make(map[string]*entry),
		activity: make(map[string]time.Time),
		now:      now,
	}
}

// GetOrCreate returns a snapshot of the session, creating it in Engagement if
// it does not exist. created reports whether it was new.
func (r *Registry) GetOrCreate(id string) (snapshot *domain.Session, created bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		now := r.now()
		e = newEntry(domain.NewSession(id, now))
		r.entries[id] = e
		r.activity[id] = now
	}
	r.mu.Unlock()

	if !ok {
		return e.session.Clone(), true
	}
	// Existing sessions may be mid-mutation; read under the session lock.
	snap, _ := r.snapshot(context.Background(), e)
	return snap, false
}

// Get returns a snapshot of the session, or nil when unknown.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Session, error) {
	e := r.lookup(id)
	if e == nil {
		return nil, nil
	}
	return r.snapshot(ctx, e)
}

func (r *Registry) snapshot(ctx context.Context, e *entry) (*domain.Session, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()
	return e.session.Clone(), nil
}

// Remove evicts the session. It reports whether the session existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	delete(r.activity, id)
	return ok
}

// Touch records activity on the session. Unknown ids are ignored; sessions
// already untracked by the sweeper stay untracked.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activity[id]; ok {
		r.activity[id] = r.now()
	}
}

// LastActivity returns the last recorded activity and whether the session is
// still tracked.
func (r *Registry) LastActivity(id string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.activity[id]
	return t, ok
}

// Untrack stops activity tracking for id. The session stays readable.
func (r *Registry) Untrack(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.activity, id)
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Idle returns the tracked sessions inactive for longer than threshold,
// oldest first.
func (r *Registry) Idle(threshold time.Duration) []string {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0)
	for id, last := range r.activity {
		if now.Sub(last) > threshold {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.activity[ids[i]].Before(r.activity[ids[j]])
	})
	return ids
}

// WithSession runs fn with exclusive access to the session. Mutations made by
// fn are kept. It returns a not found error for unknown ids and ctx.Err() if
// the lock cannot be acquired in time.
func (r *Registry) WithSession(ctx context.Context, id string, fn func(s *domain.Session) error) error {
	e := r.lookup(id)
	if e == nil {
		return apperr.NotFound("session not found").WithOp("registry.WithSession")
	}
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	return fn(e.session)
}

func (r *Registry) lookup(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}
