package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BundleMetrics tracks metrics related to bundle loading.
//
// Metrics:
//   - aegis_warden_rules_loaded: Rules in the active snapshot
//   - aegis_warden_reloads_total: Bundle reload attempts by result
//   - aegis_warden_last_reload_timestamp_seconds: Last successful reload
type BundleMetrics struct {
	// Active rule count
	rulesLoaded prometheus.Gauge

	// Reload attempts
	reloadsTotal *prometheus.CounterVec

	// Last successful reload time
	lastReload prometheus.Gauge
}

// NewBundleMetrics creates and registers bundle metrics with the provided
// registry.
func NewBundleMetrics(registry *prometheus.Registry) *BundleMetrics {
	bm := &BundleMetrics{
		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "rules_loaded",
				Help:      "Number of rules in the active snapshot",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "reloads_total",
				Help:      "Total number of bundle reload attempts by result",
			},
			[]string{"result"},
		),

		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "last_reload_timestamp_seconds",
				Help:      "Unix timestamp of the last successful bundle reload",
			},
		),
	}

	registry.MustRegister(
		bm.rulesLoaded,
		bm.reloadsTotal,
		bm.lastReload,
	)

	return bm
}

// RecordReload records a bundle reload attempt. The rules gauge always
// reflects the active snapshot, so failed reloads report the surviving
// rule count.
func (bm *BundleMetrics) RecordReload(result string, rules int) {
	bm.reloadsTotal.WithLabelValues(result).Inc()
	bm.rulesLoaded.Set(float64(rules))
	if result == "success" {
		bm.lastReload.Set(float64(time.Now().Unix()))
	}
}
