package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"aegis-hq/warden/pkg/policy/engine"
)

// ManagerConfig configures the notification manager.
type ManagerConfig struct {
	// QueueSize bounds the delivery queue. Default: 1000.
	QueueSize int

	// Workers is how many deliveries run concurrently. Default: 4.
	Workers int

	// MaxRetries is the attempt cap per delivery. Default: 4.
	MaxRetries int

	// AttemptTimeout bounds each individual send attempt.
	// Default: 10 seconds.
	AttemptTimeout time.Duration
}

// DefaultManagerConfig returns the default manager configuration.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		QueueSize:      1000,
		Workers:        4,
		MaxRetries:     4,
		AttemptTimeout: 10 * time.Second,
	}
}

// delivery is one message bound for one channel.
type delivery struct {
	channel Channel
	msg     Message
}

// Manager fans notifications out to named channels. Deliveries are
// queued and retried with exponential backoff off the decision path;
// Notify itself only enqueues. It satisfies the decision engine's
// Notifier contract.
type Manager struct {
	channels  map[string]Channel
	config    *ManagerConfig
	queue     chan delivery
	dropped   atomic.Int64
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewManager creates a manager over the given channels and starts its
// delivery workers.
func NewManager(channels []Channel, config *ManagerConfig, logger *slog.Logger) *Manager {
	if config == nil {
		config = DefaultManagerConfig()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 4
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		channels: make(map[string]Channel, len(channels)),
		config:   config,
		queue:    make(chan delivery, config.QueueSize),
		done:     make(chan struct{}),
		logger:   logger.With("component", "notify.manager"),
	}
	for _, ch := range channels {
		m.channels[ch.Name()] = ch
	}

	for i := 0; i < config.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	return m
}

// Notify enqueues one delivery per named channel. Unknown channel
// names and a full queue are reported as an error after all channels
// were attempted; partial fan-out proceeds regardless.
func (m *Manager) Notify(ctx context.Context, n engine.Notification) error {
	msg := Message{
		DecisionID:  n.DecisionID,
		RuleID:      n.RuleID,
		Disposition: string(n.Disposition),
		Body:        n.Message,
		Timestamp:   time.Now().UTC(),
	}

	var firstErr error
	for _, name := range n.Channels {
		channel, ok := m.channels[name]
		if !ok {
			m.logger.Warn("notify channel not configured",
				"channel", name,
				"rule_id", n.RuleID,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("notify: channel %q not configured", name)
			}
			continue
		}

		select {
		case m.queue <- delivery{channel: channel, msg: msg}:
		default:
			m.dropped.Add(1)
			m.logger.Error("notify queue full, dropping delivery",
				"channel", name,
				"decision_id", n.DecisionID,
				"dropped_total", m.dropped.Load(),
			)
			if firstErr == nil {
				firstErr = &QueueFullError{Channel: name, DecisionID: n.DecisionID}
			}
		}
	}
	return firstErr
}

// Dropped reports deliveries dropped on a full queue.
func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

// Close drains the queue and stops the workers.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
	return nil
}

// worker delivers queued messages until shutdown, draining the queue
// on the way out.
func (m *Manager) worker() {
	defer m.wg.Done()

	for {
		select {
		case d := <-m.queue:
			m.deliver(d)

		case <-m.done:
			for {
				select {
				case d := <-m.queue:
					m.deliver(d)
				default:
					return
				}
			}
		}
	}
}

// deliver sends one message with bounded retries. Each attempt gets
// its own timeout so a hung endpoint cannot pin a worker.
func (m *Manager) deliver(d delivery) {
	operation := func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.AttemptTimeout)
		defer cancel()
		return struct{}{}, d.channel.Send(ctx, d.msg)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	expo.MaxInterval = 10 * time.Second

	_, err := backoff.Retry(context.Background(), operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(m.config.MaxRetries)),
	)
	if err != nil {
		m.logger.Error("notification delivery failed",
			"channel", d.channel.Name(),
			"decision_id", d.msg.DecisionID,
			"attempts", m.config.MaxRetries,
			"error", err,
		)
		return
	}

	m.logger.Debug("notification delivered",
		"channel", d.channel.Name(),
		"decision_id", d.msg.DecisionID,
	)
}
