package engine

import (
	"testing"

	"aegis-hq/warden/pkg/apl/ast"
)

func cond(field string, op ast.Operator, value string) ast.Condition {
	return ast.Condition{Field: ast.FieldPath(field), Operator: op, Value: value, ValueType: ast.TypeString}
}

func TestMatches_Logic(t *testing.T) {
	rctx := ast.RequestContext{
		"request.zone":   "red",
		"request.action": "write",
	}

	matchZone := cond("request.zone", ast.OpEquals, "red")
	missZone := cond("request.zone", ast.OpEquals, "green")
	matchAction := cond("request.action", ast.OpEquals, "write")
	missAction := cond("request.action", ast.OpEquals, "read")

	tests := []struct {
		name       string
		logic      ast.Logic
		conditions []ast.Condition
		want       bool
	}{
		{"and both match", ast.LogicAnd, []ast.Condition{matchZone, matchAction}, true},
		{"and first misses", ast.LogicAnd, []ast.Condition{missZone, matchAction}, false},
		{"and second misses", ast.LogicAnd, []ast.Condition{matchZone, missAction}, false},
		{"and both miss", ast.LogicAnd, []ast.Condition{missZone, missAction}, false},
		{"or both match", ast.LogicOr, []ast.Condition{matchZone, matchAction}, true},
		{"or first matches", ast.LogicOr, []ast.Condition{matchZone, missAction}, true},
		{"or second matches", ast.LogicOr, []ast.Condition{missZone, matchAction}, true},
		{"or both miss", ast.LogicOr, []ast.Condition{missZone, missAction}, false},
		{"default logic is and", "", []ast.Condition{matchZone, missAction}, false},
		{"single condition", ast.LogicAnd, []ast.Condition{matchZone}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &ast.Rule{ID: "r1", Logic: tt.logic, Conditions: tt.conditions}
			got, _ := Matches(rule, rctx, nil)
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_UnresolvableFieldUnderOr(t *testing.T) {
	// A missing field fails its own condition but a later disjunct can
	// still match the rule.
	rctx := ast.RequestContext{"request.zone": "yellow"}
	rule := &ast.Rule{
		ID:    "r-or",
		Logic: ast.LogicOr,
		Conditions: []ast.Condition{
			cond("request.missing", ast.OpEquals, "x"),
			cond("request.zone", ast.OpEquals, "yellow"),
		},
	}

	got, diags := Matches(rule, rctx, nil)
	if !got {
		t.Error("Matches() = false, want true")
	}
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	if diags[0].RuleID != "r-or" {
		t.Errorf("diagnostic rule ID = %q, want %q", diags[0].RuleID, "r-or")
	}
}

func TestMatches_AndShortCircuit(t *testing.T) {
	// Once a conjunct fails the remaining conditions are not evaluated,
	// so their diagnostics never appear.
	rctx := ast.RequestContext{"request.zone": "green"}
	rule := &ast.Rule{
		ID: "r-and",
		Conditions: []ast.Condition{
			cond("request.zone", ast.OpEquals, "red"),
			cond("request.missing", ast.OpEquals, "x"),
		},
	}

	got, diags := Matches(rule, rctx, nil)
	if got {
		t.Error("Matches() = true, want false")
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v, want none after short circuit", diags)
	}
}
