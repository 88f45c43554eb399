package errors

import (
	"fmt"
	"strings"
)

// SuggestClosest finds the valid name nearest the unknown one by edit
// distance. It is used for operators, action types, zones and levels,
// which are all short enum-like vocabularies.
func SuggestClosest(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string
	for _, v := range valid {
		if d := levenshteinDistance(unknown, v); d < minDistance {
			minDistance = d
			bestMatch = v
		}
	}

	if minDistance < 5 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	if len(valid) > 5 {
		return fmt.Sprintf("Valid values include: %s, ...", strings.Join(valid[:5], ", "))
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(valid, ", "))
}

// SuggestOperator lists the operators that make sense for a value type.
func SuggestOperator(valueType string) string {
	switch valueType {
	case "string":
		return "Valid operators for string: equals, not_equals, contains, not_contains, starts_with, ends_with, matches_regex, in, not_in"
	case "number":
		return "Valid operators for number: equals, not_equals, greater_than, less_than, greater_than_or_equal, less_than_or_equal, in, not_in"
	case "boolean":
		return "Valid operators for boolean: equals, not_equals"
	case "array":
		return "Valid operators for array: contains, not_contains, in, not_in"
	default:
		return "Valid operators: equals, not_equals, contains, not_contains, greater_than, less_than, greater_than_or_equal, less_than_or_equal, in, not_in, starts_with, ends_with, matches_regex"
	}
}

// SuggestMissingField suggests adding a required field, with an example
// value when one helps.
func SuggestMissingField(fieldName string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s' to the bundle", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add '%s' field to the bundle", fieldName)
}

func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1, len2 := len(s1), len(s2)
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len1][len2]
}
