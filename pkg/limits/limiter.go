package limits

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"aegis-hq/warden/pkg/limits/ratelimit"
	"aegis-hq/warden/pkg/limits/storage"
)

// lockStripes is the number of key-lock stripes. Distinct keys in the
// same stripe serialize, which is acceptable contention at this width.
const lockStripes = 64

// Limiter is a sliding window rate limiter keyed by (rule, subject).
// It satisfies the decision engine's RateLimiter contract: any error
// it returns is treated upstream as an unavailable store and the
// request is blocked.
//
// Each check is a read-modify-write cycle against the backend,
// serialized per key by striped locks so concurrent checks for the
// same subject never lose increments.
type Limiter struct {
	backend storage.Backend
	metrics *Metrics
	logger  *slog.Logger
	locks   [lockStripes]sync.Mutex

	cleanupEvery time.Duration
	idleAfter    time.Duration
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) LimiterOption {
	return func(l *Limiter) { l.metrics = m }
}

// WithLogger sets the limiter's logger.
func WithLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) { l.logger = logger }
}

// WithCleanupInterval sets how often idle counters are swept and how
// long a counter may sit untouched before the sweep drops it.
func WithCleanupInterval(every, idleAfter time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.cleanupEvery = every
		l.idleAfter = idleAfter
	}
}

// NewLimiter creates a limiter over the given backend and starts the
// idle-counter sweep.
func NewLimiter(backend storage.Backend, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		backend:      backend,
		logger:       slog.Default(),
		cleanupEvery: time.Minute,
		idleAfter:    time.Hour,
		done:         make(chan struct{}),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.sweepLoop()

	return l
}

// CheckAndIncrement admits or rejects one request for the
// (ruleID, subjectID) counter. Only admitted requests consume quota:
// a rejected request does not extend the caller's lockout.
func (l *Limiter) CheckAndIncrement(ctx context.Context, ruleID, subjectID string, limit int64, window time.Duration) (allowed bool, remaining int64, reset time.Time, err error) {
	start := l.now()
	defer func() {
		l.observe(start, allowed, err)
	}()

	if limit <= 0 || window <= 0 {
		return false, 0, time.Time{}, fmt.Errorf("limits: invalid limit %d over %v", limit, window)
	}

	key := counterKey(ruleID, subjectID)
	mu := &l.locks[stripeFor(key)]
	mu.Lock()
	defer mu.Unlock()

	state, err := l.backend.Load(ctx, key)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("limits: load %q: %w", key, err)
	}

	now := l.now()
	if state == nil || state.Window == nil || state.Window.Length != window {
		// First sighting, or the rule's window changed across a
		// reload; stale buckets from the old window are meaningless.
		state = &storage.State{
			Key:    key,
			Window: ratelimit.NewWindow(window),
		}
	}

	used := state.Window.Sum(now)
	reset = state.Window.Reset(now)

	if used >= limit {
		return false, 0, reset, nil
	}

	state.Window.Add(now, 1)
	state.LastUpdated = now
	if err := l.backend.Save(ctx, state); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("limits: save %q: %w", key, err)
	}

	return true, limit - used - 1, state.Window.Reset(now), nil
}

// Usage reports the current count and capacity instant for a counter
// without consuming quota.
func (l *Limiter) Usage(ctx context.Context, ruleID, subjectID string) (used int64, reset time.Time, err error) {
	key := counterKey(ruleID, subjectID)
	mu := &l.locks[stripeFor(key)]
	mu.Lock()
	defer mu.Unlock()

	state, err := l.backend.Load(ctx, key)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("limits: load %q: %w", key, err)
	}
	if state == nil || state.Window == nil {
		return 0, l.now(), nil
	}
	now := l.now()
	return state.Window.Sum(now), state.Window.Reset(now), nil
}

// observe records metrics for one check.
func (l *Limiter) observe(start time.Time, allowed bool, err error) {
	if l.metrics == nil {
		return
	}
	elapsed := l.now().Sub(start)
	switch {
	case err != nil:
		l.metrics.RecordCheck("error", elapsed)
	case allowed:
		l.metrics.RecordCheck("allowed", elapsed)
	default:
		l.metrics.RecordCheck("exceeded", elapsed)
	}
}

// sweepLoop periodically drops idle counters so subject churn does not
// accumulate state forever.
func (l *Limiter) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			dropped, err := l.backend.Cleanup(ctx, l.now().Add(-l.idleAfter))
			cancel()
			if err != nil {
				l.logger.Warn("counter sweep failed", "error", err)
				continue
			}
			if dropped > 0 {
				l.logger.Debug("swept idle counters", "dropped", dropped)
			}
			if l.metrics != nil {
				if n, err := l.backend.Len(context.Background()); err == nil {
					l.metrics.SetTrackedKeys(n)
				}
			}
		}
	}
}

// Close stops the sweep and closes the backend.
func (l *Limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		err = l.backend.Close()
	})
	return err
}

// counterKey scopes a counter to one rule and one subject. Subjects
// hitting different rate-limited rules consume independent windows.
func counterKey(ruleID, subjectID string) string {
	return ruleID + ":" + subjectID
}

// stripeFor maps a key to its lock stripe.
func stripeFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
