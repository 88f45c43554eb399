package storage

import (
	"context"
	"errors"
	"time"

	"aegis-hq/warden/pkg/limits/ratelimit"
)

// ErrTooManyKeys is returned by Save when a bounded backend is at
// capacity and the state's key is not already tracked.
var ErrTooManyKeys = errors.New("storage: counter key capacity exhausted")

// State is the persisted counter state for one (rule, subject) key.
type State struct {
	// Key identifies the counter, "<rule_id>:<subject_id>".
	Key string

	// Window holds the sliding window buckets.
	Window *ratelimit.Window

	// LastUpdated is when this state was last written. Cleanup uses it
	// to expire idle counters.
	LastUpdated time.Time
}

// Clone returns an independent copy of the state. In-memory backends
// store and hand out clones so a caller mutating its copy never races
// the backend's own reads.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Key:         s.Key,
		LastUpdated: s.LastUpdated,
	}
	if s.Window != nil {
		c.Window = s.Window.Clone()
	}
	return c
}

// Backend persists sliding window counter state. Implementations must
// be safe for concurrent use; the limiter serializes operations per
// key but distinct keys proceed in parallel.
//
// Any error from a backend means the counter's truth is unknown, and
// the dispatcher above fails closed on it.
type Backend interface {
	// Save persists the state for its key, replacing any previous
	// value.
	Save(ctx context.Context, state *State) error

	// Load retrieves the state for a key. A key never seen returns
	// (nil, nil).
	Load(ctx context.Context, key string) (*State, error)

	// Delete removes a key's state. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Cleanup removes counters not updated since the cutoff and
	// returns how many were dropped.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Len reports the number of tracked keys.
	Len(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
