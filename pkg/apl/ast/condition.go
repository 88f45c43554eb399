package ast

import "strings"

// FieldPath is a dotted path into the request context, e.g. "request.zone"
// or "agent.name". Paths are namespaced; only the four namespaces below are
// addressable by conditions.
type FieldPath string

// Context namespaces a condition field may address.
const (
	NamespaceRequest = "request"
	NamespaceAgent   = "agent"
	NamespaceContext = "context"
	NamespaceOutput  = "output"
)

// Well-known context fields consumed by the engine itself.
const (
	FieldZone     FieldPath = "request.zone"
	FieldResource FieldPath = "request.resource"
	FieldAction   FieldPath = "request.action"
	FieldUserID   FieldPath = "request.user_id"
)

// Namespace returns the leading path segment, e.g. "request" for
// "request.zone". An empty string means the path has no namespace.
func (f FieldPath) Namespace() string {
	s := string(f)
	idx := strings.IndexByte(s, '.')
	if idx <= 0 {
		return ""
	}
	return s[:idx]
}

// Valid reports whether the path is non-empty, namespaced, and addresses
// one of the recognized context namespaces.
func (f FieldPath) Valid() bool {
	ns := f.Namespace()
	switch ns {
	case NamespaceRequest, NamespaceAgent, NamespaceContext, NamespaceOutput:
		// Require at least one character after "namespace.".
		return len(f) > len(ns)+1
	default:
		return false
	}
}

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpMatchesRegex       Operator = "matches_regex"
)

// Operators lists every recognized operator, in documentation order.
func Operators() []Operator {
	return []Operator{
		OpEquals, OpNotEquals,
		OpContains, OpNotContains,
		OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
		OpIn, OpNotIn,
		OpStartsWith, OpEndsWith,
		OpMatchesRegex,
	}
}

// Valid reports whether the operator is one of the recognized operators.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals,
		OpContains, OpNotContains,
		OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
		OpIn, OpNotIn,
		OpStartsWith, OpEndsWith,
		OpMatchesRegex:
		return true
	}
	return false
}

// Numeric reports whether the operator compares numbers. Numeric operators
// evaluate to false when either operand cannot be coerced to a number.
func (o Operator) Numeric() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

// ValueType declares how a condition's literal value (and the context value
// it is compared against) should be coerced before comparison.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeArray   ValueType = "array"
)

// Valid reports whether the value type is recognized.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray:
		return true
	}
	return false
}

// Condition is a single field comparison inside a rule. Conditions are
// immutable once loaded and owned by their rule.
type Condition struct {
	Field     FieldPath // Context field to inspect
	Operator  Operator  // Comparison operator
	Value     string    // Literal operand, coerced per ValueType at evaluation
	ValueType ValueType // Declared type of Value
	Location  Location  // Source location in the bundle file
}
