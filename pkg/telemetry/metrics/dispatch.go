package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks metrics related to side-effect dispatch.
//
// Metrics:
//   - aegis_warden_actions_total: Dispatched actions by type and status
//   - aegis_warden_dispatch_duration_seconds: Per-decision dispatch duration
//   - aegis_warden_audit_dropped_total: Audit records lost to a full queue
//   - aegis_warden_notify_dropped_total: Notifications lost to a full queue
type DispatchMetrics struct {
	// Dispatched actions
	actionsTotal *prometheus.CounterVec

	// Dispatch duration histogram
	dispatchDuration prometheus.Histogram

	// Audit drops
	auditDroppedTotal prometheus.Counter

	// Notification drops
	notifyDroppedTotal prometheus.Counter
}

// NewDispatchMetrics creates and registers dispatch metrics with the
// provided registry.
func NewDispatchMetrics(registry *prometheus.Registry) *DispatchMetrics {
	dm := &DispatchMetrics{
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "actions_total",
				Help:      "Total number of dispatched actions by type and status",
			},
			[]string{"type", "status"},
		),

		dispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of side-effect dispatch per decision in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
		),

		auditDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "audit_dropped_total",
				Help:      "Total number of audit records dropped by a full recorder queue",
			},
		),

		notifyDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "notify_dropped_total",
				Help:      "Total number of notifications dropped by a full delivery queue",
			},
		),
	}

	registry.MustRegister(
		dm.actionsTotal,
		dm.dispatchDuration,
		dm.auditDroppedTotal,
		dm.notifyDroppedTotal,
	)

	return dm
}

// RecordAction records one dispatched action.
func (dm *DispatchMetrics) RecordAction(actionType, status string) {
	dm.actionsTotal.WithLabelValues(actionType, status).Inc()
}

// RecordDuration records the dispatch time for one decision.
func (dm *DispatchMetrics) RecordDuration(duration time.Duration) {
	dm.dispatchDuration.Observe(duration.Seconds())
}

// RecordAuditDrop records a dropped audit record.
func (dm *DispatchMetrics) RecordAuditDrop() {
	dm.auditDroppedTotal.Inc()
}

// RecordNotifyDrop records a dropped notification.
func (dm *DispatchMetrics) RecordNotifyDrop() {
	dm.notifyDroppedTotal.Inc()
}
