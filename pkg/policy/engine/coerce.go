package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Coercion helpers for condition evaluation. Operator-authored rules
// compare a string literal against whatever the caller put in the
// request context, so both sides are coerced to the condition's
// declared value type on a best-effort basis. A value that cannot be
// coerced fails the coercion, never the evaluation: the condition
// evaluates false with a diagnostic.

// coerceString renders a context value as a string. Basic scalar kinds
// are rendered; composite values do not coerce.
func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(s), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

// coerceNumber converts a context value to float64. Numeric strings
// parse; booleans and composites do not.
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// coerceBool converts a context value to bool via strconv.ParseBool
// semantics for strings.
func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

// coerceArray converts a context value to a string slice. Slices render
// element-wise; a plain string is treated as a comma-separated literal,
// matching how the console serializes array values.
func coerceArray(v any) ([]string, bool) {
	switch a := v.(type) {
	case []string:
		return a, true
	case []any:
		out := make([]string, 0, len(a))
		for _, e := range a {
			s, ok := coerceString(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return splitList(a), true
	}
	return nil, false
}

// splitList parses a comma-separated literal into trimmed elements.
// Empty elements are dropped; "a, b ,c" and "a,b,c" parse the same.
func splitList(literal string) []string {
	parts := strings.Split(literal, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
