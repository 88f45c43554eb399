package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"aegis-hq/warden/pkg/apl/ast"
)

// fakeLimiter scripts CheckAndIncrement outcomes and records calls.
type fakeLimiter struct {
	mu      sync.Mutex
	calls   []string
	admit   int64 // admit this many calls, reject the rest
	err     error
	served  int64
	window  time.Duration
	lastKey string
}

func (f *fakeLimiter) CheckAndIncrement(ctx context.Context, ruleID, subjectID string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ruleID+"/"+subjectID)
	f.lastKey = ruleID + "/" + subjectID
	f.window = window
	if f.err != nil {
		return false, 0, time.Time{}, f.err
	}
	f.served++
	if f.served > f.admit {
		return false, 0, time.Now().Add(window), nil
	}
	return true, limit - f.served, time.Now().Add(window), nil
}

// fakeAudit records entries, optionally failing.
type fakeAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

// fakeNotifier records notifications, optionally failing.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func dispatchFor(t *testing.T, collab Collaborators, rule ast.Rule, rctx ast.RequestContext) *Decision {
	t.Helper()
	snapshot := testSnapshot(t, ast.ActionBlock, rule)
	decision, zone := evaluate(snapshot, rctx, nil)
	decision.ID = "d-test"
	NewDispatcher(collab, nil, quietLogger()).Dispatch(context.Background(), decision, rctx, zone)
	return decision
}

func rateLimitRule(limit int64) ast.Rule {
	return ast.Rule{
		ID:         "rl",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionRateLimit, RateLimit: &ast.RateLimitConfig{Limit: limit, WindowSeconds: 60}},
			{Type: ast.ActionAllow},
		},
	}
}

func TestDispatch_RateLimitOverride(t *testing.T) {
	limiter := &fakeLimiter{admit: 1}
	collab := Collaborators{RateLimiter: limiter}
	rule := rateLimitRule(1)

	// First request within the window is admitted.
	d := dispatchFor(t, collab, rule, greenContext())
	if d.FinalDisposition != DispositionAllow {
		t.Fatalf("first request: FinalDisposition = %q, want allow", d.FinalDisposition)
	}
	if d.RateLimited {
		t.Error("first request: RateLimited = true, want false")
	}

	// Second request exceeds the limit and the override blocks it.
	d = dispatchFor(t, collab, rule, greenContext())
	if d.FinalDisposition != DispositionBlock {
		t.Errorf("second request: FinalDisposition = %q, want block", d.FinalDisposition)
	}
	if !d.RateLimited {
		t.Error("second request: RateLimited = false, want true")
	}
	if d.SideEffects[0].Status != StatusOK || !strings.Contains(d.SideEffects[0].Detail, "exceeded") {
		t.Errorf("rate_limit result = %+v, want ok/exceeded", d.SideEffects[0])
	}

	if limiter.window != 60*time.Second {
		t.Errorf("window = %v, want 60s", limiter.window)
	}
	if limiter.lastKey != "rl/u-1" {
		t.Errorf("counter key = %q, want rule and subject scoped", limiter.lastKey)
	}
}

func TestDispatch_RateLimitFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		collab Collaborators
	}{
		{"store error", Collaborators{RateLimiter: &fakeLimiter{err: fmt.Errorf("store down")}}},
		{"no limiter configured", Collaborators{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dispatchFor(t, tt.collab, rateLimitRule(10), greenContext())
			if d.FinalDisposition != DispositionBlock {
				t.Errorf("FinalDisposition = %q, want block", d.FinalDisposition)
			}
			if !d.RateLimited {
				t.Error("RateLimited = false, want true")
			}
			if d.SideEffects[0].Status != StatusFailed {
				t.Errorf("rate_limit status = %q, want failed", d.SideEffects[0].Status)
			}
		})
	}
}

func TestDispatch_RateLimitUnresolvableSubject(t *testing.T) {
	limiter := &fakeLimiter{admit: 100}
	rctx := ast.RequestContext{
		"request.zone":     "green",
		"request.resource": "docs",
		"request.action":   "write",
		// no request.user_id
	}

	d := dispatchFor(t, Collaborators{RateLimiter: limiter}, rateLimitRule(10), rctx)
	if d.FinalDisposition != DispositionAllow {
		t.Errorf("FinalDisposition = %q, want allow (limiter skipped, not failed closed)", d.FinalDisposition)
	}
	if d.SideEffects[0].Status != StatusSkipped {
		t.Errorf("rate_limit status = %q, want skipped", d.SideEffects[0].Status)
	}
	if len(limiter.calls) != 0 {
		t.Errorf("limiter called %d times, want 0", len(limiter.calls))
	}

	found := false
	for _, diag := range d.Diagnostics {
		if strings.Contains(diag.Message, "subject field") {
			found = true
		}
	}
	if !found {
		t.Error("no diagnostic recorded for unresolvable subject")
	}
}

func TestDispatch_RateLimitResolvesBeforeAudit(t *testing.T) {
	// The log action is stored before the rate_limit, but the audit
	// record still carries the post-override disposition.
	audit := &fakeAudit{}
	limiter := &fakeLimiter{admit: 0}
	rule := ast.Rule{
		ID:         "rl-log",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionLog, Log: &ast.LogConfig{Level: "warn", Message: "write observed"}},
			{Type: ast.ActionRateLimit, RateLimit: &ast.RateLimitConfig{Limit: 1, WindowSeconds: 60}},
			{Type: ast.ActionAllow},
		},
	}

	d := dispatchFor(t, Collaborators{RateLimiter: limiter, Audit: audit}, rule, greenContext())
	if d.FinalDisposition != DispositionBlock {
		t.Fatalf("FinalDisposition = %q, want block", d.FinalDisposition)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(audit.entries))
	}
	if audit.entries[0].Disposition != DispositionBlock {
		t.Errorf("audited disposition = %q, want the post-override block", audit.entries[0].Disposition)
	}
	if audit.entries[0].Level != "warn" || audit.entries[0].Message != "write observed" {
		t.Errorf("audit entry = %+v, want configured level and message", audit.entries[0])
	}
}

func TestDispatch_MandatoryZoneAudit(t *testing.T) {
	// Yellow zone requires audit; the rule has no log action, so the
	// dispatcher appends the mandatory record.
	audit := &fakeAudit{}
	rule := terminalRule("allow-crm", ast.ActionAllow,
		cond("request.action", ast.OpEquals, "read"),
	)
	rctx := ast.RequestContext{
		"request.zone":     "yellow",
		"request.resource": "crm",
		"request.action":   "read",
		"request.user_id":  "u-1",
	}

	d := dispatchFor(t, Collaborators{Audit: audit}, rule, rctx)
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1 mandatory record", len(audit.entries))
	}
	entry := audit.entries[0]
	if !entry.Mandatory {
		t.Error("Mandatory = false, want true")
	}
	if entry.Zone != ast.ZoneYellow || entry.Subject != "u-1" {
		t.Errorf("entry = %+v, want yellow zone and subject u-1", entry)
	}

	// The mandatory record appears after the per-action results.
	last := d.SideEffects[len(d.SideEffects)-1]
	if last.ActionType != ast.ActionLog || last.Status != StatusOK {
		t.Errorf("appended result = %+v, want ok log", last)
	}
}

func TestDispatch_ExplicitLogSatisfiesZoneAudit(t *testing.T) {
	audit := &fakeAudit{}
	rule := ast.Rule{
		ID:         "log-crm",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "read")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionLog, Log: &ast.LogConfig{Message: "crm read"}},
			{Type: ast.ActionAllow},
		},
	}
	rctx := ast.RequestContext{
		"request.zone":     "yellow",
		"request.resource": "crm",
		"request.action":   "read",
		"request.user_id":  "u-1",
	}

	dispatchFor(t, Collaborators{Audit: audit}, rule, rctx)
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1 (no duplicate mandatory record)", len(audit.entries))
	}
	if audit.entries[0].Mandatory {
		t.Error("Mandatory = true, want the explicit log action's record")
	}
}

func TestDispatch_RedundantTerminalSkipped(t *testing.T) {
	rule := ast.Rule{
		ID:         "two-terminals",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionBlock},
			{Type: ast.ActionAllow},
		},
	}

	d := dispatchFor(t, Collaborators{}, rule, greenContext())
	if d.FinalDisposition != DispositionBlock {
		t.Fatalf("FinalDisposition = %q, want the first terminal's block", d.FinalDisposition)
	}
	if d.SideEffects[0].Status != StatusResolved {
		t.Errorf("first terminal status = %q, want resolved", d.SideEffects[0].Status)
	}
	if d.SideEffects[1].Status != StatusSkipped {
		t.Errorf("second terminal status = %q, want skipped", d.SideEffects[1].Status)
	}
}

func TestDispatch_TransformDescriptors(t *testing.T) {
	rule := ast.Rule{
		ID:         "redactor",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionTransform, Transform: &ast.TransformConfig{Field: "output.body", Op: ast.TransformRedact}},
			{Type: ast.ActionTransform, Transform: &ast.TransformConfig{Field: "request.note", Op: ast.TransformSet, Value: "reviewed"}},
			{Type: ast.ActionAllow},
		},
	}

	rctx := greenContext()
	d := dispatchFor(t, Collaborators{}, rule, rctx)

	if len(d.Transforms) != 2 {
		t.Fatalf("transforms = %d, want 2", len(d.Transforms))
	}
	if d.Transforms[0].Op != ast.TransformRedact || d.Transforms[0].Field != "output.body" {
		t.Errorf("first transform = %+v", d.Transforms[0])
	}
	if d.Transforms[1].Op != ast.TransformSet || d.Transforms[1].Value != "reviewed" {
		t.Errorf("second transform = %+v", d.Transforms[1])
	}

	// Descriptors only; the request context is never mutated.
	if _, ok := rctx["request.note"]; ok {
		t.Error("request context mutated by transform dispatch")
	}
}

func TestDispatch_NotifyFailureKeepsDisposition(t *testing.T) {
	notifier := &fakeNotifier{err: fmt.Errorf("webhook 500")}
	rule := ast.Rule{
		ID:         "noisy",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionNotify, Notify: &ast.NotifyConfig{Channels: []string{"secops"}}},
			{Type: ast.ActionAllow},
		},
	}

	d := dispatchFor(t, Collaborators{Notifier: notifier}, rule, greenContext())
	if d.FinalDisposition != DispositionAllow {
		t.Errorf("FinalDisposition = %q, want allow despite notify failure", d.FinalDisposition)
	}
	if d.SideEffects[0].Status != StatusFailed {
		t.Errorf("notify status = %q, want failed", d.SideEffects[0].Status)
	}
}

func TestDispatch_NotifyGeneratedMessage(t *testing.T) {
	notifier := &fakeNotifier{}
	rule := ast.Rule{
		ID:         "quiet",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionNotify, Notify: &ast.NotifyConfig{Channels: []string{"secops", "oncall"}}},
			{Type: ast.ActionEscalate},
		},
	}

	dispatchFor(t, Collaborators{Notifier: notifier}, rule, greenContext())
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.sent))
	}
	n := notifier.sent[0]
	if len(n.Channels) != 2 {
		t.Errorf("channels = %v, want both", n.Channels)
	}
	if !strings.Contains(n.Message, "quiet") || !strings.Contains(n.Message, "escalate") {
		t.Errorf("generated message = %q, want rule ID and disposition", n.Message)
	}
}

func TestDispatch_NilCollaboratorsDegrade(t *testing.T) {
	// Log and notify skip without collaborators; the decision stands.
	rule := ast.Rule{
		ID:         "degraded",
		Enabled:    true,
		Conditions: []ast.Condition{cond("request.action", ast.OpEquals, "write")},
		Actions: []ast.ActionConfig{
			{Type: ast.ActionLog, Log: &ast.LogConfig{}},
			{Type: ast.ActionNotify, Notify: &ast.NotifyConfig{Channels: []string{"secops"}}},
			{Type: ast.ActionAllow},
		},
	}

	d := dispatchFor(t, Collaborators{}, rule, greenContext())
	if d.FinalDisposition != DispositionAllow {
		t.Errorf("FinalDisposition = %q, want allow", d.FinalDisposition)
	}
	if d.SideEffects[0].Status != StatusSkipped || d.SideEffects[1].Status != StatusSkipped {
		t.Errorf("side effects = %+v, want skipped log and notify", d.SideEffects[:2])
	}
	if len(d.SideEffects) != len(rule.Actions) {
		t.Errorf("side effects = %d, want one per action", len(d.SideEffects))
	}
}
