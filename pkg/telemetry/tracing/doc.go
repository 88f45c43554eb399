// Package tracing provides OpenTelemetry tracing for Warden.
//
// # Overview
//
// The package wraps the OpenTelemetry SDK with an OTLP gRPC exporter and a
// parent-based ratio sampler. When tracing is disabled a noop tracer is
// returned, so callers never branch on configuration.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "decide")
//	defer span.End()
//	span.SetAttributes(tracing.DecisionAttributes(id, "allow", ruleID)...)
//
// # Sampling
//
// Sampling uses TraceIDRatioBased wrapped in ParentBased: the decision is
// made once per trace and children follow their parent, so a trace is
// either recorded whole or not at all.
//
// # Attributes
//
// Custom attributes live under the "warden.*" namespace (decision_id,
// disposition, rule_id, zone, bundle revision). Helpers in attributes.go
// keep naming consistent across spans.
package tracing
