package engine

import (
	"fmt"
	"time"
)

// EngineConfig contains configuration for the decision engine.
type EngineConfig struct {
	// RegexTimeout is the hard per-match budget for matches_regex
	// conditions. A match that exceeds it evaluates to false with a
	// diagnostic. Default: 50ms.
	RegexTimeout time.Duration

	// DispatchTimeout bounds one Dispatch pass over the winning action
	// list. Side effects that miss it are recorded as failed.
	// Default: 5s.
	DispatchTimeout time.Duration

	// EnableTrace enables detailed evaluation tracing for debugging.
	// Warning: tracing allocates on every decision.
	// Default: false.
	EnableTrace bool

	// MaxRules is the maximum number of rules a snapshot may carry.
	// This prevents DoS via excessive rule count. Default: 500.
	MaxRules int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		RegexTimeout:    50 * time.Millisecond,
		DispatchTimeout: 5 * time.Second,
		EnableTrace:     false,
		MaxRules:        500,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.RegexTimeout <= 0 {
		return fmt.Errorf("%w: regex timeout must be positive", ErrInvalidConfig)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("%w: dispatch timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRules <= 0 {
		return fmt.Errorf("%w: max rules must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithRegexTimeout sets the per-match regex budget.
func (c *EngineConfig) WithRegexTimeout(timeout time.Duration) *EngineConfig {
	c.RegexTimeout = timeout
	return c
}

// WithDispatchTimeout sets the side-effect dispatch budget.
func (c *EngineConfig) WithDispatchTimeout(timeout time.Duration) *EngineConfig {
	c.DispatchTimeout = timeout
	return c
}

// WithTrace enables or disables evaluation tracing.
func (c *EngineConfig) WithTrace(enabled bool) *EngineConfig {
	c.EnableTrace = enabled
	return c
}

// WithMaxRules sets the maximum number of rules per snapshot.
func (c *EngineConfig) WithMaxRules(max int) *EngineConfig {
	c.MaxRules = max
	return c
}
