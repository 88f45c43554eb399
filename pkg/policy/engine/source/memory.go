package source

import (
	"context"
	"sync"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/policy/engine"
)

// MemorySource is an in-memory bundle source for testing and for
// callers that assemble bundles programmatically.
type MemorySource struct {
	mu      sync.Mutex
	bundle  *ast.Bundle
	eventCh chan engine.BundleEvent
}

// NewMemorySource creates an in-memory bundle source.
func NewMemorySource(bundle *ast.Bundle) *MemorySource {
	return &MemorySource{
		bundle:  bundle,
		eventCh: make(chan engine.BundleEvent, 1),
	}
}

// Load returns the bundle stored in memory.
func (s *MemorySource) Load(ctx context.Context) (*ast.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle, nil
}

// Watch returns a channel that fires when SetBundle replaces the
// bundle.
func (s *MemorySource) Watch(ctx context.Context) (<-chan engine.BundleEvent, error) {
	out := make(chan engine.BundleEvent)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.eventCh:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// SetBundle replaces the bundle and signals watchers.
func (s *MemorySource) SetBundle(bundle *ast.Bundle) {
	s.mu.Lock()
	s.bundle = bundle
	s.mu.Unlock()

	select {
	case s.eventCh <- engine.BundleEvent{Type: engine.BundleEventModified, Path: "memory"}:
	default:
	}
}
