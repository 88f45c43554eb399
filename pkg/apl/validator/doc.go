// Package validator turns a parsed APL bundle into an evaluable load
// report.
//
// Validation is per-rule and degrading: a rule with an unknown
// operator, an empty condition list, or a malformed typed action
// config is excluded from evaluation with a warning, and the rest of
// the bundle stays usable. An empty rule set is valid; every request
// then resolves via the default action. Only a missing zone matrix
// fails validation outright, because no request can be authorized
// without one.
//
// # Basic Usage
//
//	bundle, err := parser.NewParser().Parse("guardrails.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := validator.NewValidator().Validate(bundle)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range report.Warnings {
//	    fmt.Println("warning:", w)
//	}
//	// report.RuleSet and report.Zones feed the policy engine.
//
// # Display Priority
//
// The numeric priority field on rules is display-only. The validator
// warns when stored priorities disagree with array order but never
// reorders: evaluation order is storage order.
package validator
