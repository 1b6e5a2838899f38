// Package history stores conversation transcripts and recovers contact
// details from them.
package history

import (
	"context"
	"sync"

	"hiring_assistant_backend/internal/hiring/ports"
)

// MemoryStore is a process-local transcript store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]ports.HistoryEntry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]ports.HistoryEntry)}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, entry ports.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionID] = append(m.entries[sessionID], entry)
	return nil
}

func (m *MemoryStore) List(_ context.Context, sessionID string) ([]ports.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[sessionID]
	out := make([]ports.HistoryEntry, len(list))
	copy(out, list)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}
