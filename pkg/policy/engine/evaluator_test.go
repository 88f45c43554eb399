package engine

import (
	"strings"
	"testing"
	"time"

	"aegis-hq/warden/pkg/apl/ast"
)

func TestEvaluateCondition_Operators(t *testing.T) {
	rctx := ast.RequestContext{
		"request.zone":     "red",
		"request.cost":     42.5,
		"request.count":    7,
		"agent.autonomous": true,
		"agent.tags":       []string{"finance", "external"},
		"request.path":     "/api/v1/billing/invoices",
		"request.user_id":  "u-123",
	}

	tests := []struct {
		name string
		cond ast.Condition
		want bool
	}{
		{"equals string true", ast.Condition{Field: "request.zone", Operator: ast.OpEquals, Value: "red", ValueType: ast.TypeString}, true},
		{"equals string false", ast.Condition{Field: "request.zone", Operator: ast.OpEquals, Value: "green", ValueType: ast.TypeString}, false},
		{"not_equals", ast.Condition{Field: "request.zone", Operator: ast.OpNotEquals, Value: "green", ValueType: ast.TypeString}, true},
		{"equals number int context", ast.Condition{Field: "request.count", Operator: ast.OpEquals, Value: "7", ValueType: ast.TypeNumber}, true},
		{"equals number float vs int literal", ast.Condition{Field: "request.cost", Operator: ast.OpEquals, Value: "42.5", ValueType: ast.TypeNumber}, true},
		{"equals boolean", ast.Condition{Field: "agent.autonomous", Operator: ast.OpEquals, Value: "true", ValueType: ast.TypeBoolean}, true},
		{"not_equals boolean", ast.Condition{Field: "agent.autonomous", Operator: ast.OpNotEquals, Value: "false", ValueType: ast.TypeBoolean}, true},
		{"contains substring", ast.Condition{Field: "request.path", Operator: ast.OpContains, Value: "billing", ValueType: ast.TypeString}, true},
		{"not_contains substring", ast.Condition{Field: "request.path", Operator: ast.OpNotContains, Value: "admin", ValueType: ast.TypeString}, true},
		{"contains array membership", ast.Condition{Field: "agent.tags", Operator: ast.OpContains, Value: "finance", ValueType: ast.TypeArray}, true},
		{"contains array non-member", ast.Condition{Field: "agent.tags", Operator: ast.OpContains, Value: "internal", ValueType: ast.TypeArray}, false},
		{"greater_than true", ast.Condition{Field: "request.cost", Operator: ast.OpGreaterThan, Value: "40", ValueType: ast.TypeNumber}, true},
		{"greater_than false", ast.Condition{Field: "request.cost", Operator: ast.OpGreaterThan, Value: "50", ValueType: ast.TypeNumber}, false},
		{"less_than", ast.Condition{Field: "request.count", Operator: ast.OpLessThan, Value: "10", ValueType: ast.TypeNumber}, true},
		{"greater_than_or_equal boundary", ast.Condition{Field: "request.cost", Operator: ast.OpGreaterThanOrEqual, Value: "42.5", ValueType: ast.TypeNumber}, true},
		{"less_than_or_equal boundary", ast.Condition{Field: "request.cost", Operator: ast.OpLessThanOrEqual, Value: "42.5", ValueType: ast.TypeNumber}, true},
		{"in member", ast.Condition{Field: "request.zone", Operator: ast.OpIn, Value: "red, yellow", ValueType: ast.TypeString}, true},
		{"in non-member", ast.Condition{Field: "request.zone", Operator: ast.OpIn, Value: "green, yellow", ValueType: ast.TypeString}, false},
		{"not_in", ast.Condition{Field: "request.zone", Operator: ast.OpNotIn, Value: "green, yellow", ValueType: ast.TypeString}, true},
		{"in numeric tolerates formatting", ast.Condition{Field: "request.count", Operator: ast.OpIn, Value: "7.0, 9", ValueType: ast.TypeNumber}, true},
		{"starts_with", ast.Condition{Field: "request.path", Operator: ast.OpStartsWith, Value: "/api/v1", ValueType: ast.TypeString}, true},
		{"starts_with case sensitive", ast.Condition{Field: "request.path", Operator: ast.OpStartsWith, Value: "/API", ValueType: ast.TypeString}, false},
		{"ends_with", ast.Condition{Field: "request.path", Operator: ast.OpEndsWith, Value: "invoices", ValueType: ast.TypeString}, true},
		{"matches_regex", ast.Condition{Field: "request.path", Operator: ast.OpMatchesRegex, Value: `^/api/v\d+/billing/`, ValueType: ast.TypeString}, true},
		{"equals array element-wise", ast.Condition{Field: "agent.tags", Operator: ast.OpEquals, Value: "finance, external", ValueType: ast.TypeArray}, true},
		{"equals array order matters", ast.Condition{Field: "agent.tags", Operator: ast.OpEquals, Value: "external, finance", ValueType: ast.TypeArray}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := EvaluateCondition(&tt.cond, rctx, nil)
			if got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v (diag: %v)", got, tt.want, diag)
			}
			if diag != nil {
				t.Errorf("diagnostic = %+v, want none", diag)
			}
		})
	}
}

func TestEvaluateCondition_SoftFailures(t *testing.T) {
	rctx := ast.RequestContext{
		"request.zone": "red",
		"agent.tags":   []string{"a"},
	}

	tests := []struct {
		name     string
		cond     ast.Condition
		wantDiag string
	}{
		{
			name:     "unresolvable field",
			cond:     ast.Condition{Field: "request.missing", Operator: ast.OpEquals, Value: "x", ValueType: ast.TypeString},
			wantDiag: "not present",
		},
		{
			name:     "unresolvable field under not_equals still false",
			cond:     ast.Condition{Field: "request.missing", Operator: ast.OpNotEquals, Value: "x", ValueType: ast.TypeString},
			wantDiag: "not present",
		},
		{
			name:     "non-numeric operand",
			cond:     ast.Condition{Field: "request.zone", Operator: ast.OpGreaterThan, Value: "5", ValueType: ast.TypeNumber},
			wantDiag: "does not coerce to number",
		},
		{
			name:     "non-numeric literal",
			cond:     ast.Condition{Field: "agent.tags", Operator: ast.OpEquals, Value: "x", ValueType: ast.TypeNumber},
			wantDiag: "does not coerce to number",
		},
		{
			name:     "boolean mismatch",
			cond:     ast.Condition{Field: "request.zone", Operator: ast.OpEquals, Value: "true", ValueType: ast.TypeBoolean},
			wantDiag: "does not coerce to boolean",
		},
		{
			name:     "regex compile failure",
			cond:     ast.Condition{Field: "request.zone", Operator: ast.OpMatchesRegex, Value: "[unclosed", ValueType: ast.TypeString},
			wantDiag: "does not compile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := EvaluateCondition(&tt.cond, rctx, nil)
			if got {
				t.Error("EvaluateCondition() = true, want false on soft failure")
			}
			if diag == nil {
				t.Fatal("diagnostic = nil, want one")
			}
			if !strings.Contains(diag.Message, tt.wantDiag) {
				t.Errorf("diagnostic = %q, want it to contain %q", diag.Message, tt.wantDiag)
			}
		})
	}
}

func TestEvaluateCondition_BestEffortCoercion(t *testing.T) {
	// Operator input is imperfect: a number-typed condition against a
	// numeric string context value still compares numerically.
	rctx := ast.RequestContext{"request.cost": "42.50"}

	cond := ast.Condition{Field: "request.cost", Operator: ast.OpGreaterThan, Value: "40", ValueType: ast.TypeNumber}
	got, diag := EvaluateCondition(&cond, rctx, nil)
	if !got || diag != nil {
		t.Errorf("EvaluateCondition() = %v (diag %v), want true with no diagnostic", got, diag)
	}

	// And a string-typed condition against a bool renders it.
	rctx2 := ast.RequestContext{"agent.autonomous": true}
	cond2 := ast.Condition{Field: "agent.autonomous", Operator: ast.OpEquals, Value: "true", ValueType: ast.TypeString}
	got2, diag2 := EvaluateCondition(&cond2, rctx2, nil)
	if !got2 || diag2 != nil {
		t.Errorf("EvaluateCondition() = %v (diag %v), want true with no diagnostic", got2, diag2)
	}
}

func TestEvaluateCondition_RegexBudget(t *testing.T) {
	// A pattern that would backtrack catastrophically in a backtracking
	// engine must evaluate within the budget and come back false.
	crafted := strings.Repeat("a", 64) + "b"
	cond := ast.Condition{
		Field:     "output.body",
		Operator:  ast.OpMatchesRegex,
		Value:     `^(a+)+$`,
		ValueType: ast.TypeString,
	}
	rctx := ast.RequestContext{"output.body": crafted}

	config := DefaultEngineConfig().WithRegexTimeout(50 * time.Millisecond)

	start := time.Now()
	got, _ := EvaluateCondition(&cond, rctx, config)
	elapsed := time.Since(start)

	if got {
		t.Error("EvaluateCondition() = true, want false")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("evaluation took %v, want it bounded by the budget", elapsed)
	}
}

func TestEvaluateCondition_RegexTimeoutDiagnostic(t *testing.T) {
	// Force the budget to fire: a microscopic timeout against a large
	// input loses the race to the timer.
	cond := ast.Condition{
		Field:     "output.body",
		Operator:  ast.OpMatchesRegex,
		Value:     `a+b`,
		ValueType: ast.TypeString,
	}
	rctx := ast.RequestContext{"output.body": strings.Repeat("a", 8*1024*1024)}

	config := DefaultEngineConfig().WithRegexTimeout(time.Nanosecond)

	got, diag := EvaluateCondition(&cond, rctx, config)
	if got {
		t.Error("EvaluateCondition() = true, want false on timeout")
	}
	if diag == nil || !strings.Contains(diag.Message, "budget") {
		t.Errorf("diagnostic = %+v, want a budget-exceeded diagnostic", diag)
	}
}

func TestEvaluateCondition_PatternCacheReuse(t *testing.T) {
	cond := ast.Condition{
		Field:     "request.zone",
		Operator:  ast.OpMatchesRegex,
		Value:     `^re{1}d$`,
		ValueType: ast.TypeString,
	}
	rctx := ast.RequestContext{"request.zone": "red"}

	for i := 0; i < 3; i++ {
		got, diag := EvaluateCondition(&cond, rctx, nil)
		if !got || diag != nil {
			t.Fatalf("iteration %d: EvaluateCondition() = %v (diag %v), want true", i, got, diag)
		}
	}

	if _, ok := regexCache.Load(cond.Value); !ok {
		t.Error("pattern not cached after evaluation")
	}
}
