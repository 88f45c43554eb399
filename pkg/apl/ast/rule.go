package ast

// Logic combines a rule's conditions.
type Logic string

const (
	LogicAnd Logic = "AND" // All conditions must hold
	LogicOr  Logic = "OR"  // Any condition may hold
)

// Valid reports whether the logic value is recognized.
func (l Logic) Valid() bool {
	return l == LogicAnd || l == LogicOr
}

// Rule is a single guardrail rule: an ordered condition list combined by
// Logic, plus an ordered action list executed when the rule wins. Rules
// are evaluated read-only; a rule with no conditions or no actions is
// invalid and excluded at load time.
type Rule struct {
	ID          string         // Unique within the rule set
	Name        string         // Human-readable label
	Description string         // Optional longer description
	Enabled     bool           // Disabled rules are skipped before any condition work
	Priority    int            // Display ordering hint only; never affects evaluation
	Logic       Logic          // AND or OR over Conditions
	Conditions  []Condition    // Ordered, non-empty
	Actions     []ActionConfig // Ordered, non-empty
	Location    Location       // Source location in the bundle file
}

// HasConditions reports whether the rule has at least one condition.
func (r *Rule) HasConditions() bool {
	return len(r.Conditions) > 0
}

// HasActions reports whether the rule has at least one action.
func (r *Rule) HasActions() bool {
	return len(r.Actions) > 0
}

// FirstTerminal returns the first terminal action in stored order.
// The boolean is false when the rule carries only side-effecting actions.
func (r *Rule) FirstTerminal() (ActionConfig, bool) {
	for _, a := range r.Actions {
		if a.Type.Terminal() {
			return a, true
		}
	}
	return ActionConfig{}, false
}

// HasActionType reports whether any action in the rule has the given type.
func (r *Rule) HasActionType(t ActionType) bool {
	for _, a := range r.Actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

// RuleSet is an ordered rule list plus the fallback action applied when no
// rule matches. Array order is the evaluation order; rule IDs are unique.
type RuleSet struct {
	Rules         []Rule
	DefaultAction ActionType // Must be a terminal action type
}

// Len returns the number of rules, enabled or not.
func (s *RuleSet) Len() int {
	return len(s.Rules)
}

// RuleByID returns the rule with the given ID, if present.
func (s *RuleSet) RuleByID(id string) (*Rule, bool) {
	for i := range s.Rules {
		if s.Rules[i].ID == id {
			return &s.Rules[i], true
		}
	}
	return nil, false
}

// EnabledCount returns how many rules are enabled.
func (s *RuleSet) EnabledCount() int {
	n := 0
	for i := range s.Rules {
		if s.Rules[i].Enabled {
			n++
		}
	}
	return n
}
