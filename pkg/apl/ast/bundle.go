package ast

// Bundle is one parsed guardrail bundle file: an ordered rule set, a
// zone matrix, and optional embedded expectation tests.
type Bundle struct {
	Name          string
	Version       string
	Description   string
	DefaultAction ActionType
	Rules         []Rule
	Zones         *ZoneMatrix
	Tests         []BundleTest
	SourceFile    string
	Location      Location
}

// RuleSet returns the bundle's rules in the evaluation shape the engine
// consumes: array order preserved, default action attached.
func (b *Bundle) RuleSet() RuleSet {
	return RuleSet{Rules: b.Rules, DefaultAction: b.DefaultAction}
}

// BundleTest is one embedded expectation: a synthetic request context
// and the decision the author expects for it. The aegis test command
// runs these against the bundle they ship with.
type BundleTest struct {
	Name     string
	Context  RequestContext
	Expect   Expectation
	Location Location
}

// Expectation describes the asserted outcome of a bundle test. Fields
// are plain strings compared against the engine's rendered decision, so
// bundles never depend on engine types. Empty fields are not asserted.
type Expectation struct {
	Disposition string // "allow", "block" or "escalate"
	MatchedRule string // Rule ID, or "default" for the virtual default rule
	ZoneVerdict string // "permitted", "denied" or "requires_approval"
}
