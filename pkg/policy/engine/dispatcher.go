package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/telemetry/tracing"
)

// RateLimiter is the counter store consulted by rate_limit actions.
// Implementations must be safe for concurrent calls; pkg/limits
// provides sliding-window implementations with memory and SQLite
// backends.
type RateLimiter interface {
	// CheckAndIncrement admits or rejects one request for the
	// (ruleID, subjectID) key. Only admitted requests consume quota.
	// Any error means the store is unavailable; the dispatcher fails
	// closed on it.
	CheckAndIncrement(ctx context.Context, ruleID, subjectID string, limit int64, window time.Duration) (allowed bool, remaining int64, reset time.Time, err error)
}

// AuditSink receives audit records for log actions and mandatory zone
// audits. pkg/audit provides an async recorder implementation.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Notifier fans a notification out to named channels. pkg/notify
// provides a queued implementation with bounded retries.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// AuditEntry is one audit record emitted by the dispatcher.
type AuditEntry struct {
	Timestamp   time.Time
	DecisionID  string
	RuleID      string
	Zone        ast.Zone
	ZoneVerdict ZoneVerdict
	Disposition Disposition
	Subject     string
	Level       string // debug, info, warn, error
	Message     string

	// Mandatory marks the record the zone's requires_audit flag
	// demanded, as opposed to one an explicit log action produced.
	Mandatory bool
}

// Notification is one notify fan-out request.
type Notification struct {
	DecisionID  string
	RuleID      string
	Channels    []string
	Message     string
	Disposition Disposition
}

// Collaborators bundles the external services side effects run
// against. Nil members degrade: log/notify actions are skipped with a
// recorded result, while a nil RateLimiter counts as an unavailable
// store and fails closed.
type Collaborators struct {
	RateLimiter RateLimiter
	Audit       AuditSink
	Notifier    Notifier

	// Metrics and Tracer are optional observability hooks. With both
	// nil the engine records nothing and starts no spans.
	Metrics MetricsRecorder
	Tracer  *tracing.Tracer
}

// Dispatcher executes the winning rule's action list. Terminal actions
// were already consumed by the orchestrator; side-effecting actions
// always run. Nothing here panics, and no failure changes the
// disposition except rate_limit, which is authorization-relevant and
// overrides to block.
type Dispatcher struct {
	collab Collaborators
	config *EngineConfig
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(collab Collaborators, config *EngineConfig, logger *slog.Logger) *Dispatcher {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		collab: collab,
		config: config,
		logger: logger,
	}
}

// Dispatch runs decision.Actions and fills decision.SideEffects,
// decision.Transforms, and the rate-limit override. Results are
// reported in the action list's stored order; rate_limit actions are
// resolved first internally so every audit record carries the final,
// post-override disposition.
func (d *Dispatcher) Dispatch(ctx context.Context, decision *Decision, rctx ast.RequestContext, zone ZoneDecision) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.config.DispatchTimeout)
	defer cancel()

	var span trace.Span
	if d.collab.Tracer != nil {
		ctx, span = d.collab.Tracer.Start(ctx, "warden.dispatch")
		defer span.End()
	}

	results := make([]SideEffectResult, len(decision.Actions))

	// Phase 1: rate limits. These can change the disposition, so they
	// resolve before anything observes it.
	for i := range decision.Actions {
		action := &decision.Actions[i]
		if action.Type == ast.ActionRateLimit {
			results[i] = d.executeRateLimit(ctx, action, decision, rctx)
		}
	}

	// Phase 2: everything else, in stored order.
	terminalSeen := false
	loggedAudit := false
	for i := range decision.Actions {
		action := &decision.Actions[i]

		switch {
		case action.Type == ast.ActionRateLimit:
			// Already resolved in phase 1.

		case action.Type.Terminal():
			if terminalSeen {
				results[i] = SideEffectResult{
					ActionType: action.Type,
					Status:     StatusSkipped,
					Detail:     "redundant terminal action; first terminal resolved the disposition",
				}
				continue
			}
			terminalSeen = true
			results[i] = SideEffectResult{
				ActionType: action.Type,
				Status:     StatusResolved,
				Detail:     fmt.Sprintf("disposition %s", decision.FinalDisposition),
			}

		case action.Type == ast.ActionLog:
			results[i] = d.executeLog(ctx, action, decision, rctx, zone, false)
			if results[i].Status == StatusOK {
				loggedAudit = true
			}

		case action.Type == ast.ActionNotify:
			results[i] = d.executeNotify(ctx, action, decision)

		case action.Type == ast.ActionTransform:
			results[i] = d.executeTransform(action, decision)

		default:
			results[i] = SideEffectResult{
				ActionType: action.Type,
				Status:     StatusSkipped,
				Detail:     "unknown action type",
			}
		}
	}

	decision.SideEffects = results

	// Mandatory zone audit: requires_audit means one record per
	// decision even when no log action exists in the list.
	if zone.RequiresAudit && !loggedAudit {
		mandatory := ast.ActionConfig{Type: ast.ActionLog}
		result := d.executeLog(ctx, &mandatory, decision, rctx, zone, true)
		decision.SideEffects = append(decision.SideEffects, result)
	}

	d.observe(decision, span, time.Since(start))
}

// observe records per-action metrics and span events after a dispatch.
func (d *Dispatcher) observe(decision *Decision, span trace.Span, elapsed time.Duration) {
	for _, r := range decision.SideEffects {
		if d.collab.Metrics != nil {
			d.collab.Metrics.RecordAction(string(r.ActionType), string(r.Status))
		}
		if span != nil {
			tracing.AddAction(span, string(r.ActionType), string(r.Status))
		}
	}
	if d.collab.Metrics != nil {
		d.collab.Metrics.RecordDispatchDuration(elapsed)
	}
}

// executeRateLimit consults the rate limiter and applies the override.
// The limiter failing or being absent is treated as Exceeded: for a
// policy engine, under-blocking is the worse failure mode.
func (d *Dispatcher) executeRateLimit(ctx context.Context, action *ast.ActionConfig, decision *Decision, rctx ast.RequestContext) SideEffectResult {
	start := time.Now()
	cfg := action.RateLimit
	if cfg == nil {
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "rate_limit action has no config",
			Elapsed:    time.Since(start),
		}
	}

	subject, ok := rctx.SubjectID(cfg.SubjectField)
	if !ok {
		// Cannot key the counter. The limiter is skipped rather than
		// failed closed: an unkeyable request is a rule-authoring
		// problem, not a store outage.
		decision.Diagnostics = append(decision.Diagnostics, Diagnostic{
			RuleID:  decision.MatchedRuleID,
			Field:   cfg.SubjectField,
			Message: "rate_limit subject field not resolvable; limiter skipped",
		})
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "subject field not resolvable",
			Elapsed:    time.Since(start),
		}
	}

	if d.collab.RateLimiter == nil {
		d.overrideBlock(decision, "rate limiter not configured")
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusFailed,
			Err:        "rate limiter not configured; failing closed",
			Elapsed:    time.Since(start),
		}
	}

	allowed, remaining, reset, err := d.collab.RateLimiter.CheckAndIncrement(
		ctx, decision.MatchedRuleID, subject, cfg.Limit, cfg.Window())
	if err != nil {
		d.overrideBlock(decision, "rate limiter store unavailable")
		d.logger.Error("rate limiter unavailable, failing closed",
			"rule_id", decision.MatchedRuleID,
			"subject", subject,
			"error", err,
		)
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusFailed,
			Err:        (&DispatchError{ActionType: string(action.Type), Cause: err}).Error(),
			Elapsed:    time.Since(start),
		}
	}

	if !allowed {
		d.overrideBlock(decision, "rate limit exceeded")
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusOK,
			Detail:     fmt.Sprintf("exceeded; resets %s", reset.Format(time.RFC3339)),
			Elapsed:    time.Since(start),
		}
	}

	return SideEffectResult{
		ActionType: action.Type,
		Status:     StatusOK,
		Detail:     fmt.Sprintf("admitted; %d remaining", remaining),
		Elapsed:    time.Since(start),
	}
}

// overrideBlock forces the disposition to block. Rate limiting is an
// override, not a suggestion.
func (d *Dispatcher) overrideBlock(decision *Decision, reason string) {
	if decision.FinalDisposition != DispositionBlock {
		d.logger.Info("rate limit override",
			"decision_id", decision.ID,
			"was", decision.FinalDisposition,
			"reason", reason,
		)
	}
	decision.FinalDisposition = DispositionBlock
	decision.RateLimited = true
}

// executeLog writes one audit record.
func (d *Dispatcher) executeLog(ctx context.Context, action *ast.ActionConfig, decision *Decision, rctx ast.RequestContext, zone ZoneDecision, mandatory bool) SideEffectResult {
	start := time.Now()

	if d.collab.Audit == nil {
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "no audit sink configured",
			Elapsed:    time.Since(start),
		}
	}

	level := "info"
	message := ""
	if action.Log != nil {
		if action.Log.Level != "" {
			level = action.Log.Level
		}
		message = action.Log.Message
	}
	if mandatory && message == "" {
		message = "zone requires audit"
	}

	subject, _ := rctx.SubjectID("")

	entry := AuditEntry{
		Timestamp:   time.Now().UTC(),
		DecisionID:  decision.ID,
		RuleID:      decision.MatchedRuleID,
		Zone:        zone.Zone,
		ZoneVerdict: zone.Verdict,
		Disposition: decision.FinalDisposition,
		Subject:     subject,
		Level:       level,
		Message:     message,
		Mandatory:   mandatory,
	}

	if err := d.collab.Audit.Record(ctx, entry); err != nil {
		d.logger.Error("audit record failed",
			"decision_id", decision.ID,
			"error", err,
		)
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusFailed,
			Err:        (&DispatchError{ActionType: string(action.Type), Cause: err}).Error(),
			Elapsed:    time.Since(start),
		}
	}

	detail := "audit record written"
	if mandatory {
		detail = "mandatory zone audit record written"
	}
	return SideEffectResult{
		ActionType: action.Type,
		Status:     StatusOK,
		Detail:     detail,
		Elapsed:    time.Since(start),
	}
}

// executeNotify enqueues a notification fan-out. Failures are recorded
// and never alter the disposition.
func (d *Dispatcher) executeNotify(ctx context.Context, action *ast.ActionConfig, decision *Decision) SideEffectResult {
	start := time.Now()

	if d.collab.Notifier == nil {
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "no notifier configured",
			Elapsed:    time.Since(start),
		}
	}

	cfg := action.Notify
	if cfg == nil || len(cfg.Channels) == 0 {
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "notify action has no channels",
			Elapsed:    time.Since(start),
		}
	}

	message := cfg.Message
	if message == "" {
		message = fmt.Sprintf("rule %s resolved %s", decision.MatchedRuleID, decision.FinalDisposition)
	}

	n := Notification{
		DecisionID:  decision.ID,
		RuleID:      decision.MatchedRuleID,
		Channels:    cfg.Channels,
		Message:     message,
		Disposition: decision.FinalDisposition,
	}

	if err := d.collab.Notifier.Notify(ctx, n); err != nil {
		d.logger.Error("notify dispatch failed",
			"decision_id", decision.ID,
			"channels", cfg.Channels,
			"error", err,
		)
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusFailed,
			Err:        (&DispatchError{ActionType: string(action.Type), Cause: err}).Error(),
			Elapsed:    time.Since(start),
		}
	}

	return SideEffectResult{
		ActionType: action.Type,
		Status:     StatusOK,
		Detail:     fmt.Sprintf("queued to %d channel(s)", len(cfg.Channels)),
		Elapsed:    time.Since(start),
	}
}

// executeTransform appends the mutation descriptor. The engine never
// mutates the caller's context; applying the descriptor is the
// caller's business.
func (d *Dispatcher) executeTransform(action *ast.ActionConfig, decision *Decision) SideEffectResult {
	start := time.Now()

	cfg := action.Transform
	if cfg == nil {
		return SideEffectResult{
			ActionType: action.Type,
			Status:     StatusSkipped,
			Detail:     "transform action has no config",
			Elapsed:    time.Since(start),
		}
	}

	decision.Transforms = append(decision.Transforms, TransformOp{
		Field: cfg.Field,
		Op:    cfg.Op,
		Value: cfg.Value,
	})

	return SideEffectResult{
		ActionType: action.Type,
		Status:     StatusOK,
		Detail:     fmt.Sprintf("%s %s", cfg.Op, cfg.Field),
		Elapsed:    time.Since(start),
	}
}
