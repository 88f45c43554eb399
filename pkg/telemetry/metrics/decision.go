package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics related to decision evaluation.
//
// Metrics:
//   - aegis_warden_decisions_total: Total decisions by disposition and zone
//   - aegis_warden_decision_duration_seconds: End-to-end decision duration
//   - aegis_warden_rule_matches_total: Terminating rule matches by rule ID
//   - aegis_warden_zone_denials_total: Requests denied by the zone matrix
type DecisionMetrics struct {
	// Total decisions
	decisionsTotal *prometheus.CounterVec

	// Decision duration histogram
	decisionDuration prometheus.Histogram

	// Terminating rule matches
	ruleMatchesTotal *prometheus.CounterVec

	// Zone matrix denials
	zoneDenialsTotal *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the
// provided registry.
func NewDecisionMetrics(registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of decisions by disposition and zone",
			},
			[]string{"disposition", "zone"},
		),

		decisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Duration of decision evaluation and dispatch in seconds",
				// Decisions should stay well under 10ms
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "rule_matches_total",
				Help:      "Total number of terminating rule matches",
			},
			[]string{"rule_id"},
		),

		zoneDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "zone_denials_total",
				Help:      "Total number of requests denied by the zone matrix",
			},
			[]string{"zone"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionDuration,
		dm.ruleMatchesTotal,
		dm.zoneDenialsTotal,
	)

	return dm
}

// RecordDecision records one completed decision.
func (dm *DecisionMetrics) RecordDecision(disposition, zone string, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(disposition, zone).Inc()
	dm.decisionDuration.Observe(duration.Seconds())
}

// RecordRuleMatch records the rule that terminated a decision.
func (dm *DecisionMetrics) RecordRuleMatch(ruleID string) {
	dm.ruleMatchesTotal.WithLabelValues(ruleID).Inc()
}

// RecordZoneDenial records a zone matrix denial.
func (dm *DecisionMetrics) RecordZoneDenial(zone string) {
	dm.zoneDenialsTotal.WithLabelValues(zone).Inc()
}
