package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"aegis-hq/warden/pkg/apl/ast"
)

// EvaluateCondition evaluates one condition against a request context.
// It never fails: an unresolvable field path, a coercion mismatch, a
// regex that does not compile or exceeds its match budget all evaluate
// to false with a diagnostic describing why. Operator input is assumed
// imperfect; evaluation degrades, it does not error.
func EvaluateCondition(cond *ast.Condition, rctx ast.RequestContext, config *EngineConfig) (bool, *Diagnostic) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	actual, ok := rctx.Get(cond.Field)
	if !ok {
		return false, &Diagnostic{
			Field:   cond.Field,
			Message: "field not present in request context",
		}
	}

	switch cond.Operator {
	case ast.OpEquals:
		return evaluateEquals(cond, actual)

	case ast.OpNotEquals:
		matched, diag := evaluateEquals(cond, actual)
		if diag != nil {
			return false, diag
		}
		return !matched, nil

	case ast.OpContains:
		return evaluateContains(cond, actual)

	case ast.OpNotContains:
		matched, diag := evaluateContains(cond, actual)
		if diag != nil {
			return false, diag
		}
		return !matched, nil

	case ast.OpGreaterThan, ast.OpLessThan, ast.OpGreaterThanOrEqual, ast.OpLessThanOrEqual:
		return evaluateNumeric(cond, actual)

	case ast.OpIn:
		return evaluateIn(cond, actual)

	case ast.OpNotIn:
		matched, diag := evaluateIn(cond, actual)
		if diag != nil {
			return false, diag
		}
		return !matched, nil

	case ast.OpStartsWith, ast.OpEndsWith:
		return evaluateAffix(cond, actual)

	case ast.OpMatchesRegex:
		return evaluateRegex(cond, actual, config.RegexTimeout)

	default:
		// The validator excludes rules with unknown operators; this
		// only triggers for hand-built rule sets.
		return false, &Diagnostic{
			Field:   cond.Field,
			Message: fmt.Sprintf("unknown operator %q", cond.Operator),
		}
	}
}

// evaluateEquals compares for structural equality after coercing both
// sides to the condition's declared value type.
func evaluateEquals(cond *ast.Condition, actual any) (bool, *Diagnostic) {
	switch cond.ValueType {
	case ast.TypeNumber:
		actualNum, ok := coerceNumber(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "number")
		}
		expectedNum, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
		if err != nil {
			return false, literalDiag(cond, "number")
		}
		return actualNum == expectedNum, nil

	case ast.TypeBoolean:
		actualBool, ok := coerceBool(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "boolean")
		}
		expectedBool, err := strconv.ParseBool(strings.TrimSpace(cond.Value))
		if err != nil {
			return false, literalDiag(cond, "boolean")
		}
		return actualBool == expectedBool, nil

	case ast.TypeArray:
		actualArr, ok := coerceArray(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "array")
		}
		expectedArr := splitList(cond.Value)
		if len(actualArr) != len(expectedArr) {
			return false, nil
		}
		for i := range actualArr {
			if actualArr[i] != expectedArr[i] {
				return false, nil
			}
		}
		return true, nil

	default:
		actualStr, ok := coerceString(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "string")
		}
		return actualStr == cond.Value, nil
	}
}

// evaluateContains checks substring containment for strings and element
// membership for arrays, per the declared value type.
func evaluateContains(cond *ast.Condition, actual any) (bool, *Diagnostic) {
	if cond.ValueType == ast.TypeArray {
		actualArr, ok := coerceArray(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "array")
		}
		for _, elem := range actualArr {
			if elem == cond.Value {
				return true, nil
			}
		}
		return false, nil
	}

	actualStr, ok := coerceString(actual)
	if !ok {
		return false, coercionDiag(cond, actual, "string")
	}
	return strings.Contains(actualStr, cond.Value), nil
}

// evaluateNumeric compares both operands as numbers. A non-numeric
// operand on either side evaluates false with a diagnostic.
func evaluateNumeric(cond *ast.Condition, actual any) (bool, *Diagnostic) {
	actualNum, ok := coerceNumber(actual)
	if !ok {
		return false, coercionDiag(cond, actual, "number")
	}
	expectedNum, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
	if err != nil {
		return false, literalDiag(cond, "number")
	}

	switch cond.Operator {
	case ast.OpGreaterThan:
		return actualNum > expectedNum, nil
	case ast.OpLessThan:
		return actualNum < expectedNum, nil
	case ast.OpGreaterThanOrEqual:
		return actualNum >= expectedNum, nil
	default:
		return actualNum <= expectedNum, nil
	}
}

// evaluateIn tests the context value for membership in the
// comma-separated literal set. Number-typed conditions compare
// numerically so "42" and "42.0" agree.
func evaluateIn(cond *ast.Condition, actual any) (bool, *Diagnostic) {
	set := splitList(cond.Value)

	if cond.ValueType == ast.TypeNumber {
		actualNum, ok := coerceNumber(actual)
		if !ok {
			return false, coercionDiag(cond, actual, "number")
		}
		for _, elem := range set {
			if elemNum, err := strconv.ParseFloat(elem, 64); err == nil && elemNum == actualNum {
				return true, nil
			}
		}
		return false, nil
	}

	actualStr, ok := coerceString(actual)
	if !ok {
		return false, coercionDiag(cond, actual, "string")
	}
	for _, elem := range set {
		if elem == actualStr {
			return true, nil
		}
	}
	return false, nil
}

// evaluateAffix checks a case-sensitive string prefix or suffix.
func evaluateAffix(cond *ast.Condition, actual any) (bool, *Diagnostic) {
	actualStr, ok := coerceString(actual)
	if !ok {
		return false, coercionDiag(cond, actual, "string")
	}
	if cond.Operator == ast.OpStartsWith {
		return strings.HasPrefix(actualStr, cond.Value), nil
	}
	return strings.HasSuffix(actualStr, cond.Value), nil
}

// regexCacheEntry caches a compiled pattern, or the compile failure, so
// each pattern compiles once per process.
type regexCacheEntry struct {
	re  *regexp.Regexp
	err error
}

var regexCache sync.Map // pattern string -> *regexCacheEntry

// compilePattern returns the cached compilation of a pattern.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		entry := cached.(*regexCacheEntry)
		return entry.re, entry.err
	}
	re, err := regexp.Compile(pattern)
	regexCache.Store(pattern, &regexCacheEntry{re: re, err: err})
	return re, err
}

// evaluateRegex matches the context value against the condition's
// pattern under a hard per-match budget. A pattern an operator authors
// must never be able to stall an evaluation goroutine.
func evaluateRegex(cond *ast.Condition, actual any, timeout time.Duration) (bool, *Diagnostic) {
	actualStr, ok := coerceString(actual)
	if !ok {
		return false, coercionDiag(cond, actual, "string")
	}

	re, err := compilePattern(cond.Value)
	if err != nil {
		return false, &Diagnostic{
			Field:   cond.Field,
			Message: fmt.Sprintf("regex does not compile: %v", err),
		}
	}

	done := make(chan bool, 1)
	go func() {
		done <- re.MatchString(actualStr)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case matched := <-done:
		return matched, nil
	case <-timer.C:
		return false, &Diagnostic{
			Field:   cond.Field,
			Message: fmt.Sprintf("regex match exceeded %v budget", timeout),
		}
	}
}

func coercionDiag(cond *ast.Condition, actual any, wantType string) *Diagnostic {
	return &Diagnostic{
		Field:   cond.Field,
		Message: fmt.Sprintf("context value %T does not coerce to %s", actual, wantType),
	}
}

func literalDiag(cond *ast.Condition, wantType string) *Diagnostic {
	return &Diagnostic{
		Field:   cond.Field,
		Message: fmt.Sprintf("condition value %q does not parse as %s", cond.Value, wantType),
	}
}
