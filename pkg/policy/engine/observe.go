package engine

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"aegis-hq/warden/pkg/telemetry/tracing"
)

// MetricsRecorder receives decision and dispatch measurements. The
// telemetry collector satisfies it; nil disables recording without
// touching the decision path.
type MetricsRecorder interface {
	RecordDecision(disposition, zone string, duration time.Duration)
	RecordRuleMatch(ruleID string)
	RecordZoneDenial(zone string)
	RecordAction(actionType, status string)
	RecordDispatchDuration(duration time.Duration)
	RecordReload(result string, rules int)
}

// record emits metrics and span attributes for one finished decision.
// total covers evaluation plus dispatch.
func (e *Engine) record(decision *Decision, zone ZoneDecision, total time.Duration, span trace.Span) {
	if e.metrics != nil {
		e.metrics.RecordDecision(string(decision.FinalDisposition), string(zone.Zone), total)
		if decision.MatchedRuleID != "" {
			e.metrics.RecordRuleMatch(decision.MatchedRuleID)
		}
		if zone.Verdict == VerdictDenied {
			e.metrics.RecordZoneDenial(string(zone.Zone))
		}
	}
	if span != nil {
		span.SetAttributes(tracing.DecisionAttributes(
			decision.ID, string(decision.FinalDisposition), decision.MatchedRuleID)...)
		tracing.SetZoneVerdict(span, string(zone.Verdict), zone.RequiresAudit)
	}
}

// recordReload emits the reload outcome with the active snapshot's rule
// count, which on failure is still the previous snapshot's.
func (e *Engine) recordReload(err error) {
	if e.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	rules := 0
	if s := e.Snapshot(); s != nil {
		rules = len(s.RuleSet.Rules)
	}
	e.metrics.RecordReload(result, rules)
}
