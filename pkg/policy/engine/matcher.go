package engine

import (
	"aegis-hq/warden/pkg/apl/ast"
)

// Matches reports whether a rule's conditions hold for the request
// context. AND logic short-circuits on the first false condition, OR on
// the first true one. Diagnostics from conditions that were actually
// evaluated are returned tagged with the rule's ID.
//
// Disabled rules never reach this function; the orchestrator rejects
// them before any condition work.
func Matches(rule *ast.Rule, rctx ast.RequestContext, config *EngineConfig) (bool, []Diagnostic) {
	var diags []Diagnostic

	record := func(d *Diagnostic) {
		if d == nil {
			return
		}
		d.RuleID = rule.ID
		diags = append(diags, *d)
	}

	if rule.Logic == ast.LogicOr {
		for i := range rule.Conditions {
			matched, diag := EvaluateCondition(&rule.Conditions[i], rctx, config)
			record(diag)
			if matched {
				return true, diags
			}
		}
		return false, diags
	}

	// AND is the default for anything else; the validator guarantees
	// loaded rules carry a valid logic value.
	for i := range rule.Conditions {
		matched, diag := EvaluateCondition(&rule.Conditions[i], rctx, config)
		record(diag)
		if !matched {
			return false, diags
		}
	}
	return true, diags
}
