package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the limits package.
type Metrics struct {
	checks        *prometheus.CounterVec
	checkDuration prometheus.Histogram
	trackedKeys   prometheus.Gauge
}

// NewMetrics creates limits metrics registered on the default
// registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates limits metrics registered on the given
// registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_limits_checks_total",
				Help: "Rate limit checks by result (allowed, exceeded, error)",
			},
			[]string{"result"},
		),
		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aegis_limits_check_duration_seconds",
				Help:    "Latency of rate limit checks including backend round trips",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		trackedKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_limits_tracked_keys",
				Help: "Counter keys currently held by the backend",
			},
		),
	}
}

// RecordCheck records one check's result and latency.
func (m *Metrics) RecordCheck(result string, elapsed time.Duration) {
	m.checks.WithLabelValues(result).Inc()
	m.checkDuration.Observe(elapsed.Seconds())
}

// SetTrackedKeys updates the tracked key gauge.
func (m *Metrics) SetTrackedKeys(n int) {
	m.trackedKeys.Set(float64(n))
}
