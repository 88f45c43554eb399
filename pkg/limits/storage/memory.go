package storage

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds the in-memory backend so a subject-ID
// cardinality explosion cannot exhaust memory.
const DefaultMaxKeys = 100_000

// MemoryBackend keeps counter state in a map. State does not survive a
// restart, which for a sliding window means a briefly over-permissive
// window after deploys; pair it with the SQLite backend when that
// matters.
type MemoryBackend struct {
	mu      sync.RWMutex
	states  map[string]*State
	maxKeys int
}

// NewMemoryBackend creates an in-memory backend bounded at
// DefaultMaxKeys.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithCapacity(DefaultMaxKeys)
}

// NewMemoryBackendWithCapacity creates an in-memory backend bounded at
// maxKeys. Zero or negative means DefaultMaxKeys.
func NewMemoryBackendWithCapacity(maxKeys int) *MemoryBackend {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &MemoryBackend{
		states:  make(map[string]*State),
		maxKeys: maxKeys,
	}
}

// Save stores the state. A new key beyond capacity returns
// ErrTooManyKeys, which the caller treats as a store failure.
func (m *MemoryBackend) Save(ctx context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.states[state.Key]; !exists && len(m.states) >= m.maxKeys {
		return ErrTooManyKeys
	}
	// Store a clone: the caller keeps mutating its own state between
	// Save calls, and Cleanup reads LastUpdated concurrently.
	m.states[state.Key] = state.Clone()
	return nil
}

// Load returns the state for a key, or (nil, nil) when absent. The
// returned state is a copy; the caller owns it outright.
func (m *MemoryBackend) Load(ctx context.Context, key string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[key].Clone(), nil
}

// Delete removes a key's state.
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

// Cleanup drops counters not updated since the cutoff.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for key, state := range m.states {
		if state.LastUpdated.Before(olderThan) {
			delete(m.states, key)
			dropped++
		}
	}
	return dropped, nil
}

// Len reports the number of tracked keys.
func (m *MemoryBackend) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states), nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
