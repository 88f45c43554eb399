package engine

import (
	"time"

	"aegis-hq/warden/pkg/apl/ast"
)

// Disposition is the final outcome of a decision.
type Disposition string

const (
	// DispositionAllow lets the proposed agent action proceed.
	DispositionAllow Disposition = "allow"

	// DispositionBlock stops the proposed agent action.
	DispositionBlock Disposition = "block"

	// DispositionEscalate hands the proposed agent action to a human.
	DispositionEscalate Disposition = "escalate"
)

// ZoneVerdict is the outcome of the zone authorization layer, resolved
// independently of the rule set.
type ZoneVerdict string

const (
	// VerdictPermitted means the zone matrix allows the action.
	VerdictPermitted ZoneVerdict = "permitted"

	// VerdictDenied means the zone matrix forbids the action. Denial is
	// an absolute ceiling: no rule action can override it.
	VerdictDenied ZoneVerdict = "denied"

	// VerdictRequiresApproval means the zone permits the action but a
	// human must approve it; a rule's allow is downgraded to escalate.
	VerdictRequiresApproval ZoneVerdict = "requires_approval"
)

// Snapshot is one immutable rule set + zone matrix the engine evaluates
// against. Reloads build a new snapshot and swap it atomically;
// in-flight evaluations keep the snapshot they started with.
type Snapshot struct {
	RuleSet  ast.RuleSet
	Zones    *ast.ZoneMatrix
	Version  string
	LoadedAt time.Time
}

// Decision is the engine's answer for one proposed agent action.
type Decision struct {
	// ID uniquely identifies this decision, for audit correlation.
	ID string

	// MatchedRuleID is the winning rule, or "" when no rule matched
	// and the default action applied.
	MatchedRuleID string

	// DefaultApplied reports that no rule matched and the rule set's
	// default action resolved the disposition.
	DefaultApplied bool

	// ZoneVerdict is the independent zone layer's outcome.
	ZoneVerdict ZoneVerdict

	// FinalDisposition is the merged outcome of both layers, after any
	// rate-limit override.
	FinalDisposition Disposition

	// Actions is the winning rule's action list in stored order, or
	// the synthesized default action when no rule matched.
	Actions []ast.ActionConfig

	// Transforms are the context mutation descriptors produced by
	// transform actions. The engine never applies them; the caller
	// decides what to do with its own request.
	Transforms []TransformOp

	// SideEffects reports every dispatched action in stored order.
	// Empty until the dispatcher runs.
	SideEffects []SideEffectResult

	// RateLimited reports that a rate_limit action forced the
	// disposition to block.
	RateLimited bool

	// Diagnostics collects evaluation-time soft failures (unresolvable
	// fields, regex timeouts, coercion mismatches). They never fail a
	// decision.
	Diagnostics []Diagnostic

	// EvaluationTime is how long the pure evaluation pass took,
	// excluding side-effect dispatch.
	EvaluationTime time.Duration

	// Trace records evaluation steps when tracing is enabled.
	Trace *Trace
}

// TransformOp describes one mutation the caller should apply to its
// outbound request or response.
type TransformOp struct {
	Field ast.FieldPath
	Op    ast.TransformKind
	Value string
}

// SideEffectStatus classifies a dispatched action's outcome.
type SideEffectStatus string

const (
	// StatusResolved marks a terminal action the orchestrator already
	// consumed for the disposition.
	StatusResolved SideEffectStatus = "resolved"

	// StatusOK marks a side effect that ran.
	StatusOK SideEffectStatus = "ok"

	// StatusFailed marks a side effect that errored. Failures never
	// change the disposition, except rate_limit which fails closed.
	StatusFailed SideEffectStatus = "failed"

	// StatusSkipped marks a side effect that could not run (missing
	// subject, redundant terminal).
	StatusSkipped SideEffectStatus = "skipped"
)

// SideEffectResult reports the outcome of dispatching one action.
type SideEffectResult struct {
	ActionType ast.ActionType
	Status     SideEffectStatus
	Detail     string
	Err        string
	Elapsed    time.Duration
}

// Diagnostic records one evaluation-time soft failure.
type Diagnostic struct {
	RuleID  string
	Field   ast.FieldPath
	Message string
}

// Trace records the steps of one evaluation for debugging.
type Trace struct {
	Steps     []TraceStep
	TotalTime time.Duration
}

// TraceStep is one step in the evaluation trace.
type TraceStep struct {
	StepType string // "zone_verdict", "rule_skip", "rule_eval", "rule_match", "default", "merge"
	RuleID   string
	Details  string
	Elapsed  time.Duration
}

// add appends a step when tracing is enabled.
func (t *Trace) add(stepType, ruleID, details string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, TraceStep{
		StepType: stepType,
		RuleID:   ruleID,
		Details:  details,
		Elapsed:  elapsed,
	})
}

// dispositionFor maps a terminal action type to its disposition.
// Side-effect-only rules resolve to allow with their effects queued.
func dispositionFor(action ast.ActionType) Disposition {
	switch action {
	case ast.ActionBlock:
		return DispositionBlock
	case ast.ActionEscalate, ast.ActionRequireApproval:
		return DispositionEscalate
	default:
		return DispositionAllow
	}
}
