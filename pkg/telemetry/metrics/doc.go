// Package metrics provides Prometheus metrics for Warden.
//
// # Overview
//
// The package exposes a Collector that registers and records all decision
// engine metrics on one Prometheus registry:
//
//   - Decision metrics: dispositions, durations, rule matches, zone denials
//   - Dispatch metrics: action outcomes, dispatch durations, queue drops
//   - Bundle metrics: active rule count, reload attempts, last reload time
//
// All metrics carry the aegis_warden_ prefix.
//
// # Usage
//
//	collector := metrics.NewCollector(nil)
//	collector.RecordDecision("allow", "green", 80*time.Microsecond)
//
//	srv := metrics.NewServer(cfg.Telemetry.Metrics, collector)
//	go srv.Start()
//
// # Cardinality
//
// Rule IDs come from operator-authored bundles, so rule-labeled metrics
// pass through a cardinality limiter. Past 10000 unique label sets, new
// rule IDs aggregate under "other".
package metrics
