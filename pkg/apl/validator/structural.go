package validator

import (
	"fmt"
	"regexp"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

// ruleValidator validates rule structure and condition enums. Every
// finding that makes a rule unevaluable returns false so the caller
// excludes the rule; the set as a whole stays usable.
type ruleValidator struct{}

func newRuleValidator() *ruleValidator {
	return &ruleValidator{}
}

// validate checks one rule's structure and conditions. It records a
// warning per finding and reports whether the rule is evaluable.
func (v *ruleValidator) validate(rule *ast.Rule, report *Report) bool {
	ok := true

	if !rule.Logic.Valid() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    fmt.Sprintf("Unknown condition logic %q; rule excluded", rule.Logic),
			Suggestion: "Valid values: AND, OR",
			Location:   rule.Location,
		})
		ok = false
	}

	if !rule.HasConditions() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    "Rule has no conditions; rule excluded",
			Suggestion: "Add at least one condition, or delete the rule",
			Location:   rule.Location,
		})
		ok = false
	}

	for i := range rule.Conditions {
		if !v.validateCondition(rule, &rule.Conditions[i], report) {
			ok = false
		}
	}

	return ok
}

// validateCondition checks one condition's field path, operator and
// value type.
func (v *ruleValidator) validateCondition(rule *ast.Rule, cond *ast.Condition, report *Report) bool {
	ok := true

	if !cond.Field.Valid() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:  rule.ID,
			Message: fmt.Sprintf("Condition field %q is not a recognized context path; rule excluded", cond.Field),
			Suggestion: fmt.Sprintf("Field paths start with one of: %s., %s., %s., %s.",
				ast.NamespaceRequest, ast.NamespaceAgent, ast.NamespaceContext, ast.NamespaceOutput),
			Location: cond.Location,
		})
		ok = false
	}

	if !cond.Operator.Valid() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    fmt.Sprintf("Unknown operator %q; rule excluded", cond.Operator),
			Suggestion: aplErrors.SuggestClosest(string(cond.Operator), operatorNames()),
			Location:   cond.Location,
		})
		ok = false
	}

	if !cond.ValueType.Valid() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    fmt.Sprintf("Unknown value type %q; rule excluded", cond.ValueType),
			Suggestion: "Valid values: string, number, boolean, array",
			Location:   cond.Location,
		})
		ok = false
	}

	// A pattern that does not compile can never match; evaluation would
	// return false forever, so say so now. The rule stays loaded: the
	// evaluator degrades the condition to false with a diagnostic, which
	// is the documented soft-failure path.
	if cond.Operator == ast.OpMatchesRegex {
		if _, err := regexp.Compile(cond.Value); err != nil {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    fmt.Sprintf("Regex pattern does not compile and will never match: %v", err),
				Suggestion: "Fix the pattern; until then this condition always evaluates false",
				Location:   cond.Location,
			})
		}
	}

	return ok
}
