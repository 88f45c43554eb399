package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/apl/validator"
	"aegis-hq/warden/pkg/telemetry/tracing"
)

// BundleSource provides bundles to the engine.
type BundleSource interface {
	// Load loads the bundle from the source.
	Load(ctx context.Context) (*ast.Bundle, error)

	// Watch watches for bundle changes and sends events on the returned
	// channel. The channel is closed when the context is cancelled.
	Watch(ctx context.Context) (<-chan BundleEvent, error)
}

// BundleEvent represents a bundle change event.
type BundleEvent struct {
	// Type is the event type ("created", "modified", "deleted").
	Type BundleEventType

	// Path is the file path that changed, when the source is file-backed.
	Path string

	// Error is any error that occurred while processing the event.
	Error error
}

// BundleEventType represents the type of bundle change event.
type BundleEventType string

const (
	BundleEventCreated  BundleEventType = "created"
	BundleEventModified BundleEventType = "modified"
	BundleEventDeleted  BundleEventType = "deleted"
)

// Engine evaluates guardrail decisions against an immutable snapshot of
// the loaded bundle. Reload builds a fresh snapshot and swaps it
// atomically; any number of Decide calls may run concurrently.
type Engine struct {
	// snapshot is the current immutable rule set + zone matrix
	snapshot *Snapshot

	// warnings from the last successful load, for introspection
	warnings []validator.Warning

	// snapshotMu protects snapshot and warnings
	snapshotMu sync.RWMutex

	// dispatcher runs the winning action list
	dispatcher *Dispatcher

	// validator turns parsed bundles into evaluable reports
	validator *validator.Validator

	// config contains engine configuration
	config *EngineConfig

	// logger for structured logging
	logger *slog.Logger

	// metrics and tracer are the optional observability hooks from
	// Collaborators; either may be nil
	metrics MetricsRecorder
	tracer  *tracing.Tracer

	// source provides bundles
	source BundleSource

	// stopCh signals shutdown
	stopCh chan struct{}

	// watchCancel stops the source's watch goroutines
	watchCancel context.CancelFunc

	// wg tracks background goroutines
	wg sync.WaitGroup
}

// NewEngine creates a decision engine, loads the initial bundle from
// the source, and starts watching for changes.
func NewEngine(config *EngineConfig, source BundleSource, collab Collaborators, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if source == nil {
		return nil, fmt.Errorf("bundle source cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:     config,
		logger:     logger,
		source:     source,
		validator:  validator.NewValidator(),
		dispatcher: NewDispatcher(collab, config, logger),
		metrics:    collab.Metrics,
		tracer:     collab.Tracer,
		stopCh:     make(chan struct{}),
	}

	if err := engine.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load initial bundle: %w", err)
	}

	engine.startWatching()

	return engine, nil
}

// Decide evaluates one proposed agent action and dispatches the winning
// rule's side effects. The evaluation itself is pure and synchronous;
// the context bounds side-effect dispatch only.
func (e *Engine) Decide(ctx context.Context, rctx ast.RequestContext) (*Decision, error) {
	if rctx == nil {
		return nil, ErrNilContext
	}

	snapshot := e.Snapshot()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	start := time.Now()
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "warden.decide")
		defer span.End()

		zone, _ := rctx.Zone()
		subject, _ := rctx.SubjectID("")
		resource, _ := rctx.Resource()
		verb, _ := rctx.Action()
		span.SetAttributes(tracing.RequestAttributes(subject, string(zone), resource, verb)...)
	}

	decision, zoneDecision := evaluate(snapshot, rctx, e.config)
	decision.ID = uuid.NewString()

	e.dispatcher.Dispatch(ctx, decision, rctx, zoneDecision)

	e.record(decision, zoneDecision, time.Since(start), span)

	e.logger.Debug("decision",
		"decision_id", decision.ID,
		"matched_rule", decision.MatchedRuleID,
		"zone_verdict", decision.ZoneVerdict,
		"disposition", decision.FinalDisposition,
		"rate_limited", decision.RateLimited,
		"evaluation_time", decision.EvaluationTime,
	)

	return decision, nil
}

// Evaluate runs the pure evaluation pass over a snapshot: zone verdict,
// first-match rule selection, and merge. No side effects are dispatched
// and no shared state is touched, so any number of callers may evaluate
// the same snapshot concurrently.
func Evaluate(snapshot *Snapshot, rctx ast.RequestContext, config *EngineConfig) *Decision {
	decision, _ := evaluate(snapshot, rctx, config)
	return decision
}

// evaluate implements the orchestration algorithm. It returns the zone
// decision alongside so Decide can hand it to the dispatcher without
// re-resolving.
func evaluate(snapshot *Snapshot, rctx ast.RequestContext, config *EngineConfig) (*Decision, ZoneDecision) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	start := time.Now()
	decision := &Decision{}
	if config.EnableTrace {
		decision.Trace = &Trace{}
	}

	// Layer 1: zone authorization, independent of rules.
	zoneDecision := AuthorizeZone(snapshot.Zones, rctx)
	decision.ZoneVerdict = zoneDecision.Verdict
	decision.Trace.add("zone_verdict", "", fmt.Sprintf("zone=%s verdict=%s %s",
		zoneDecision.Zone, zoneDecision.Verdict, zoneDecision.Reason), time.Since(start))

	// Layer 2: ordered first-match over enabled rules. Array order is
	// authoritative; the stored priority field is display-only and is
	// never consulted here.
	var winner *ast.Rule
	for i := range snapshot.RuleSet.Rules {
		rule := &snapshot.RuleSet.Rules[i]

		if !rule.Enabled {
			decision.Trace.add("rule_skip", rule.ID, "disabled", 0)
			continue
		}

		ruleStart := time.Now()
		matched, diags := Matches(rule, rctx, config)
		decision.Diagnostics = append(decision.Diagnostics, diags...)
		decision.Trace.add("rule_eval", rule.ID, fmt.Sprintf("matched=%v", matched), time.Since(ruleStart))

		if matched {
			winner = rule
			decision.Trace.add("rule_match", rule.ID, "first match wins; remaining rules not evaluated", 0)
			break
		}
	}

	var ruleDisposition Disposition
	if winner != nil {
		decision.MatchedRuleID = winner.ID
		decision.Actions = winner.Actions

		if terminal, ok := winner.FirstTerminal(); ok {
			ruleDisposition = dispositionFor(terminal.Type)
		} else {
			// Side-effect-only rule: allow, with effects queued.
			ruleDisposition = DispositionAllow
		}
	} else {
		// Virtual rule carrying only the default action.
		decision.DefaultApplied = true
		decision.Actions = []ast.ActionConfig{{Type: snapshot.RuleSet.DefaultAction}}
		ruleDisposition = dispositionFor(snapshot.RuleSet.DefaultAction)
		decision.Trace.add("default", "", fmt.Sprintf("no rule matched; default action %q", snapshot.RuleSet.DefaultAction), 0)
	}

	// Merge the two layers. Zone denial is an absolute ceiling; zone
	// approval downgrades a rule allow to escalate; otherwise the rule
	// disposition stands.
	switch {
	case zoneDecision.Verdict == VerdictDenied:
		decision.FinalDisposition = DispositionBlock
	case zoneDecision.Verdict == VerdictRequiresApproval && ruleDisposition == DispositionAllow:
		decision.FinalDisposition = DispositionEscalate
	default:
		decision.FinalDisposition = ruleDisposition
	}
	decision.Trace.add("merge", decision.MatchedRuleID, fmt.Sprintf("rule=%s zone=%s final=%s",
		ruleDisposition, zoneDecision.Verdict, decision.FinalDisposition), 0)

	decision.EvaluationTime = time.Since(start)
	if decision.Trace != nil {
		decision.Trace.TotalTime = decision.EvaluationTime
	}

	return decision, zoneDecision
}

// Reload loads the bundle from the source, validates it, and swaps in a
// fresh snapshot. In-flight evaluations keep the snapshot they started
// with; a failed reload leaves the previous snapshot active.
func (e *Engine) Reload(ctx context.Context) error {
	err := e.reload(ctx)
	e.recordReload(err)
	return err
}

func (e *Engine) reload(ctx context.Context) error {
	e.logger.Info("reloading bundle")

	bundle, err := e.source.Load(ctx)
	if err != nil {
		return &ReloadError{Source: "source", Cause: err}
	}

	report, err := e.validator.Validate(bundle)
	if err != nil {
		return &ValidationError{Bundle: bundle.Name, Cause: err}
	}

	if len(report.RuleSet.Rules) > e.config.MaxRules {
		return &ValidationError{
			Bundle: bundle.Name,
			Cause:  fmt.Errorf("too many rules: %d (max: %d)", len(report.RuleSet.Rules), e.config.MaxRules),
		}
	}

	for _, w := range report.Warnings {
		e.logger.Warn("bundle validation warning", "warning", w.String())
	}

	snapshot := &Snapshot{
		RuleSet:  report.RuleSet,
		Zones:    report.Zones,
		Version:  bundle.Version,
		LoadedAt: time.Now(),
	}

	e.snapshotMu.Lock()
	e.snapshot = snapshot
	e.warnings = report.Warnings
	e.snapshotMu.Unlock()

	e.logger.Info("bundle reloaded",
		"bundle", bundle.Name,
		"version", bundle.Version,
		"rule_count", len(report.RuleSet.Rules),
		"enabled_rules", report.RuleSet.EnabledCount(),
		"excluded_rules", len(report.ExcludedRuleIDs),
		"warnings", len(report.Warnings),
	)

	return nil
}

// Snapshot returns the current snapshot. Snapshots are immutable; the
// caller may evaluate against it for as long as it likes.
func (e *Engine) Snapshot() *Snapshot {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	return e.snapshot
}

// Warnings returns the validation warnings from the last successful
// load, for introspection.
func (e *Engine) Warnings() []validator.Warning {
	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()
	warnings := make([]validator.Warning, len(e.warnings))
	copy(warnings, e.warnings)
	return warnings
}

// startWatching starts watching for bundle changes. The watch context
// is cancelled by Close so the source's polling goroutines exit with
// the engine.
func (e *Engine) startWatching() {
	ctx, cancel := context.WithCancel(context.Background())
	e.watchCancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		eventCh, err := e.source.Watch(ctx)
		if err != nil {
			e.logger.Error("failed to start bundle watcher", "error", err)
			return
		}

		for {
			select {
			case <-e.stopCh:
				return
			case event, ok := <-eventCh:
				if !ok {
					return
				}
				e.handleBundleEvent(event)
			}
		}
	}()
}

// handleBundleEvent handles a bundle change event.
func (e *Engine) handleBundleEvent(event BundleEvent) {
	e.logger.Info("bundle changed",
		"type", event.Type,
		"path", event.Path,
	)

	if err := e.Reload(context.Background()); err != nil {
		e.logger.Error("failed to reload bundle after change",
			"error", err,
			"path", event.Path,
		)
	}
}

// Close shuts down the engine and releases resources. The source's
// watch goroutines are cancelled and waited for.
func (e *Engine) Close() error {
	if e.watchCancel != nil {
		e.watchCancel()
	}
	close(e.stopCh)
	e.wg.Wait()
	return nil
}
