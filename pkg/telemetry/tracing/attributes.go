package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "warden.*" namespace. Standard keys follow
// OpenTelemetry semantic conventions.
const (
	// Decision attributes
	AttrDecisionID  = "warden.decision_id"
	AttrDisposition = "warden.disposition"
	AttrRuleID      = "warden.rule_id"

	// Request attributes
	AttrSubject  = "warden.subject"
	AttrZone     = "warden.zone"
	AttrResource = "warden.resource"
	AttrVerb     = "warden.verb"

	// Zone attributes
	AttrZoneVerdict   = "warden.zone.verdict"
	AttrRequiresAudit = "warden.zone.requires_audit"

	// Bundle attributes
	AttrBundleRevision = "warden.bundle.revision"
	AttrRuleCount      = "warden.bundle.rules"

	// Dispatch attributes
	AttrActionType   = "warden.action.type"
	AttrActionStatus = "warden.action.status"
)

// DecisionAttributes builds the standard span attributes for one decision.
func DecisionAttributes(decisionID, disposition, ruleID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrDecisionID, decisionID),
		attribute.String(AttrDisposition, disposition),
	}
	if ruleID != "" {
		attrs = append(attrs, attribute.String(AttrRuleID, ruleID))
	}
	return attrs
}

// RequestAttributes builds the standard span attributes for the request
// under evaluation.
func RequestAttributes(subject, zone, resource, verb string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if subject != "" {
		attrs = append(attrs, attribute.String(AttrSubject, subject))
	}
	if zone != "" {
		attrs = append(attrs, attribute.String(AttrZone, zone))
	}
	if resource != "" {
		attrs = append(attrs, attribute.String(AttrResource, resource))
	}
	if verb != "" {
		attrs = append(attrs, attribute.String(AttrVerb, verb))
	}
	return attrs
}

// SetZoneVerdict records the zone verdict on a span.
func SetZoneVerdict(span trace.Span, verdict string, requiresAudit bool) {
	span.SetAttributes(
		attribute.String(AttrZoneVerdict, verdict),
		attribute.Bool(AttrRequiresAudit, requiresAudit),
	)
}

// AddAction records a dispatched action outcome as a span event. A
// dispatch runs several actions, so each outcome is an event rather
// than an attribute one would overwrite.
func AddAction(span trace.Span, actionType, status string) {
	span.AddEvent("action", trace.WithAttributes(
		attribute.String(AttrActionType, actionType),
		attribute.String(AttrActionStatus, status),
	))
}
