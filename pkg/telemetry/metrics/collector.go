package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "aegis"

	// Subsystem groups the decision-engine metrics.
	Subsystem = "warden"

	// maxCardinality bounds unique label sets across all metrics. Rule
	// IDs come from operator-authored bundles, so unbounded label
	// growth is possible without a cap.
	maxCardinality = 10000
)

// Collector is the orchestrator for all Prometheus metrics in Warden. It
// manages metric registration and provides a unified interface for
// recording metrics across all components.
type Collector struct {
	registry *prometheus.Registry

	// Decision metrics
	decisionMetrics *DecisionMetrics

	// Dispatch metrics
	dispatchMetrics *DispatchMetrics

	// Bundle metrics
	bundleMetrics *BundleMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector registered on the given
// Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxCardinality),
	}

	c.decisionMetrics = NewDecisionMetrics(registry)
	c.dispatchMetrics = NewDispatchMetrics(registry)
	c.bundleMetrics = NewBundleMetrics(registry)

	return c
}

// RecordDecision records one completed decision.
//
// Parameters:
//   - disposition: final disposition ("allow", "block", "escalate")
//   - zone: the request zone ("" becomes "none")
//   - duration: evaluation plus dispatch time
func (c *Collector) RecordDecision(disposition, zone string, duration time.Duration) {
	if zone == "" {
		zone = "none"
	}
	c.decisionMetrics.RecordDecision(disposition, zone, duration)
}

// RecordRuleMatch records which rule terminated a decision.
func (c *Collector) RecordRuleMatch(ruleID string) {
	labelSet := fmt.Sprintf("rule:%s", ruleID)
	if !c.cardinalityLimiter.Allow(labelSet) {
		ruleID = "other"
	}
	c.decisionMetrics.RecordRuleMatch(ruleID)
}

// RecordZoneDenial records a request denied by the zone matrix before any
// rule ran.
func (c *Collector) RecordZoneDenial(zone string) {
	c.decisionMetrics.RecordZoneDenial(zone)
}

// RecordAction records one dispatched side-effect action.
//
// Parameters:
//   - actionType: the action type ("log", "notify", "rate_limit", ...)
//   - status: dispatch outcome ("ok", "failed", "skipped", "resolved")
func (c *Collector) RecordAction(actionType, status string) {
	c.dispatchMetrics.RecordAction(actionType, status)
}

// RecordDispatchDuration records the side-effect dispatch time for one
// decision.
func (c *Collector) RecordDispatchDuration(duration time.Duration) {
	c.dispatchMetrics.RecordDuration(duration)
}

// RecordAuditDrop records an audit record lost to a full recorder queue.
func (c *Collector) RecordAuditDrop() {
	c.dispatchMetrics.RecordAuditDrop()
}

// RecordNotifyDrop records a notification lost to a full delivery queue.
func (c *Collector) RecordNotifyDrop() {
	c.dispatchMetrics.RecordNotifyDrop()
}

// RecordReload records a bundle reload attempt.
//
// Parameters:
//   - result: "success" or "failure"
//   - rules: number of rules in the active snapshot after the attempt
func (c *Collector) RecordReload(result string, rules int) {
	c.bundleMetrics.RecordReload(result, rules)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
