// Package telemetry provides observability for Warden.
//
// # Overview
//
// The telemetry package implements structured logging, Prometheus metrics,
// OpenTelemetry tracing, and health check endpoints. It provides visibility
// into decision behavior while keeping evaluation overhead low.
//
// # Components
//
//   - logging: Structured logging with sensitive-field redaction
//   - metrics: Prometheus metrics collection
//   - tracing: OpenTelemetry distributed tracing
//   - health: Liveness and readiness endpoints
//
// # Usage
//
//	logger, err := logging.FromConfig(cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	checker := health.New(5 * time.Second)
//
// Each component takes its own section of config.TelemetryConfig, so
// embedders can pick the pieces they need without the rest.
package telemetry
