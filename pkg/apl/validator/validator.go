package validator

import (
	"fmt"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

// Warning is a non-fatal finding attached to a load report. Warnings
// never fail a bundle; a warning that names a RuleID may mean the rule
// was excluded from evaluation.
type Warning struct {
	RuleID     string
	Message    string
	Suggestion string
	Location   ast.Location
}

// String renders the warning with its location.
func (w Warning) String() string {
	prefix := ""
	if w.RuleID != "" {
		prefix = fmt.Sprintf("rule %q: ", w.RuleID)
	}
	msg := prefix + w.Message
	if w.Location.IsValid() {
		msg += " (" + w.Location.String() + ")"
	}
	if w.Suggestion != "" {
		msg += ": " + w.Suggestion
	}
	return msg
}

// Report is the product of validating a bundle: the evaluable rule set
// (invalid rules already excluded), the zone matrix, and everything the
// operator should hear about. An empty rule set is a valid report;
// every request then resolves via the default action.
type Report struct {
	RuleSet  ast.RuleSet
	Zones    *ast.ZoneMatrix
	Tests    []ast.BundleTest
	Warnings []Warning

	// ExcludedRuleIDs lists the rules dropped from evaluation, in
	// bundle order. Each has at least one warning explaining why.
	ExcludedRuleIDs []string
}

// HasWarnings reports whether the validation produced any warnings.
func (r *Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Validator validates a parsed bundle and produces the evaluable
// Report. Malformed rules are excluded one at a time with warnings;
// only a missing zone matrix is fatal, because nothing can be
// authorized without one.
type Validator struct {
	rules   *ruleValidator
	actions *actionValidator
}

// NewValidator creates a validator with all validation passes.
func NewValidator() *Validator {
	return &Validator{
		rules:   newRuleValidator(),
		actions: newActionValidator(),
	}
}

// Validate checks a bundle and assembles the load report.
func (v *Validator) Validate(bundle *ast.Bundle) (*Report, error) {
	if bundle == nil {
		return nil, &aplErrors.Error{
			Type:    aplErrors.ErrorTypeValidation,
			Message: "Bundle is nil",
		}
	}
	if bundle.Zones == nil {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeValidation,
			Message:  "Bundle has no zone matrix",
			Location: bundle.Location,
		}
	}

	report := &Report{
		Zones: bundle.Zones,
		Tests: bundle.Tests,
	}

	report.RuleSet.DefaultAction = v.validateDefaultAction(bundle, report)

	seen := make(map[string]bool, len(bundle.Rules))
	kept := make([]ast.Rule, 0, len(bundle.Rules))
	for i := range bundle.Rules {
		rule := &bundle.Rules[i]

		if seen[rule.ID] {
			v.exclude(report, rule, fmt.Sprintf("Duplicate rule ID %q; first occurrence kept", rule.ID), "")
			continue
		}
		seen[rule.ID] = true

		ok := v.rules.validate(rule, report)
		ok = v.actions.validate(rule, report) && ok
		if !ok {
			report.ExcludedRuleIDs = append(report.ExcludedRuleIDs, rule.ID)
			continue
		}
		kept = append(kept, *rule)
	}
	report.RuleSet.Rules = kept

	v.checkDisplayPriorities(kept, report)

	return report, nil
}

// validateDefaultAction normalizes the bundle's default action. The
// fallback is block: when the authored default is missing or not a
// terminal action, failing closed beats guessing permissive.
func (v *Validator) validateDefaultAction(bundle *ast.Bundle, report *Report) ast.ActionType {
	action := bundle.DefaultAction
	switch {
	case action == "":
		report.Warnings = append(report.Warnings, Warning{
			Message:    "Missing 'default_action'; defaulting to 'block'",
			Suggestion: "Set default_action to allow, block, escalate or require_approval",
			Location:   bundle.Location,
		})
		return ast.ActionBlock
	case !action.Valid():
		report.Warnings = append(report.Warnings, Warning{
			Message:    fmt.Sprintf("Unknown default action %q; defaulting to 'block'", action),
			Suggestion: aplErrors.SuggestClosest(string(action), terminalActionNames()),
			Location:   bundle.Location,
		})
		return ast.ActionBlock
	case !action.Terminal():
		report.Warnings = append(report.Warnings, Warning{
			Message:    fmt.Sprintf("Default action %q is not terminal; defaulting to 'block'", action),
			Suggestion: "The default action must resolve a disposition: allow, block, escalate or require_approval",
			Location:   bundle.Location,
		})
		return ast.ActionBlock
	}
	return action
}

// checkDisplayPriorities warns when the stored numeric priorities
// disagree with array order. Array order is authoritative for
// evaluation and is never changed; the warning exists so a console
// rendering by priority cannot silently diverge from what runs.
func (v *Validator) checkDisplayPriorities(rules []ast.Rule, report *Report) {
	for i := 1; i < len(rules); i++ {
		prev, cur := &rules[i-1], &rules[i]
		if prev.Priority != 0 && cur.Priority != 0 && cur.Priority < prev.Priority {
			report.Warnings = append(report.Warnings, Warning{
				RuleID: cur.ID,
				Message: fmt.Sprintf(
					"Display priority %d is lower than preceding rule %q (%d) but evaluation order follows array order",
					cur.Priority, prev.ID, prev.Priority),
				Suggestion: "Reorder the rules array if the priorities reflect intended evaluation order",
				Location:   cur.Location,
			})
		}
	}
}

// exclude records an exclusion warning and marks the rule dropped.
func (v *Validator) exclude(report *Report, rule *ast.Rule, message, suggestion string) {
	report.Warnings = append(report.Warnings, Warning{
		RuleID:     rule.ID,
		Message:    message,
		Suggestion: suggestion,
		Location:   rule.Location,
	})
	report.ExcludedRuleIDs = append(report.ExcludedRuleIDs, rule.ID)
}

func terminalActionNames() []string {
	return []string{
		string(ast.ActionAllow),
		string(ast.ActionBlock),
		string(ast.ActionEscalate),
		string(ast.ActionRequireApproval),
	}
}

func actionTypeNames() []string {
	return []string{
		string(ast.ActionAllow),
		string(ast.ActionBlock),
		string(ast.ActionEscalate),
		string(ast.ActionRequireApproval),
		string(ast.ActionLog),
		string(ast.ActionNotify),
		string(ast.ActionRateLimit),
		string(ast.ActionTransform),
	}
}

func operatorNames() []string {
	ops := ast.Operators()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return names
}
