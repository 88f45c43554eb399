package validator

import (
	"fmt"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

// actionValidator validates a rule's action list and the typed config
// each side-effecting action carries.
type actionValidator struct{}

func newActionValidator() *actionValidator {
	return &actionValidator{}
}

// validate checks one rule's actions. It records a warning per finding
// and reports whether the rule is evaluable.
func (v *actionValidator) validate(rule *ast.Rule, report *Report) bool {
	ok := true

	if !rule.HasActions() {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    "Rule has no actions; rule excluded",
			Suggestion: "Add at least one action, or delete the rule",
			Location:   rule.Location,
		})
		ok = false
	}

	terminals := 0
	for i := range rule.Actions {
		action := &rule.Actions[i]

		if !action.Type.Valid() {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    fmt.Sprintf("Unknown action type %q; rule excluded", action.Type),
				Suggestion: aplErrors.SuggestClosest(string(action.Type), actionTypeNames()),
				Location:   action.Location,
			})
			ok = false
			continue
		}

		if action.Type.Terminal() {
			terminals++
			if action.IgnoredConfig {
				report.Warnings = append(report.Warnings, Warning{
					RuleID:     rule.ID,
					Message:    fmt.Sprintf("%s action takes no config; config ignored", action.Type),
					Suggestion: "Remove the config block",
					Location:   action.Location,
				})
			}
			continue
		}

		if !v.validateSideEffect(rule, action, report) {
			ok = false
		}
	}

	// More than one terminal is legal but almost always a mistake: the
	// first one in stored order decides the disposition, the rest are
	// dead weight.
	if terminals > 1 {
		report.Warnings = append(report.Warnings, Warning{
			RuleID:     rule.ID,
			Message:    fmt.Sprintf("Rule has %d terminal actions; only the first in stored order resolves the disposition", terminals),
			Suggestion: "Remove the extra terminal actions",
			Location:   rule.Location,
		})
	}

	return ok
}

// validateSideEffect checks the typed config of one side-effecting
// action.
func (v *actionValidator) validateSideEffect(rule *ast.Rule, action *ast.ActionConfig, report *Report) bool {
	switch action.Type {
	case ast.ActionNotify:
		if action.Notify == nil || len(action.Notify.Channels) == 0 {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    "notify action has no channels; rule excluded",
				Suggestion: `Add config: {channels: ["ops"]}`,
				Location:   action.Location,
			})
			return false
		}

	case ast.ActionRateLimit:
		cfg := action.RateLimit
		if cfg == nil || cfg.Limit <= 0 || cfg.WindowSeconds <= 0 {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    "rate_limit action needs a positive limit and window_seconds; rule excluded",
				Suggestion: "Add config: {limit: 10, window_seconds: 60}",
				Location:   action.Location,
			})
			return false
		}
		if cfg.SubjectField != "" && !cfg.SubjectField.Valid() {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    fmt.Sprintf("rate_limit subject_field %q is not a recognized context path; rule excluded", cfg.SubjectField),
				Suggestion: "Use a namespaced path such as request.user_id or agent.id",
				Location:   action.Location,
			})
			return false
		}

	case ast.ActionLog:
		cfg := action.Log
		if cfg == nil {
			// Parser always attaches a LogConfig; a bare log action with
			// defaults is fine.
			return true
		}
		switch cfg.Level {
		case "", "debug", "info", "warn", "error":
		default:
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    fmt.Sprintf("Unknown log level %q; using 'info'", cfg.Level),
				Suggestion: "Valid levels: debug, info, warn, error",
				Location:   action.Location,
			})
			cfg.Level = "info"
		}

	case ast.ActionTransform:
		cfg := action.Transform
		if cfg == nil || !cfg.Op.Valid() {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    "transform action needs an op of set, redact or remove; rule excluded",
				Suggestion: `Add config: {field: "output.body", op: "redact"}`,
				Location:   action.Location,
			})
			return false
		}
		if !cfg.Field.Valid() {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    fmt.Sprintf("transform field %q is not a recognized context path; rule excluded", cfg.Field),
				Suggestion: "Use a namespaced path such as output.body",
				Location:   action.Location,
			})
			return false
		}
		if cfg.Op == ast.TransformSet && cfg.Value == "" {
			report.Warnings = append(report.Warnings, Warning{
				RuleID:     rule.ID,
				Message:    "transform op 'set' needs a value; rule excluded",
				Suggestion: "Add a value to set, or use op redact/remove",
				Location:   action.Location,
			})
			return false
		}
	}

	return true
}
