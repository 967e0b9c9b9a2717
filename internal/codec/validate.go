package codec

import (
	"fmt"
	"strings"

	"github.com/solatis/rulebuilder/internal/types"
)

// ValidateValue checks a committed value against the shape (dt, op) requires.
// Returns human-readable problems; nil means the value is sendable.
func ValidateValue(dt types.DataType, op string, value types.Value) []string {
	switch FamilyOf(op) {
	case FamilyNone:
		return nil
	case FamilyList:
		return validateList(dt, value)
	case FamilyRange:
		return validateRange(dt, value)
	default:
		if msg := validateScalar(dt, value); msg != "" {
			return []string{msg}
		}
		return nil
	}
}

func validateList(dt types.DataType, value types.Value) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{"value list has not been committed"}
	}
	if len(items) == 0 {
		return []string{"at least one value is required"}
	}
	var problems []string
	for i, item := range items {
		if msg := validateScalar(dt, item); msg != "" {
			problems = append(problems, fmt.Sprintf("item %d: %s", i+1, msg))
		}
	}
	return problems
}

func validateRange(dt types.DataType, value types.Value) []string {
	items, ok := value.([]any)
	if !ok || len(items) != 2 {
		return []string{"between requires a low and a high value"}
	}
	var problems []string
	for i, side := range []string{"low", "high"} {
		if msg := validateScalar(dt, items[i]); msg != "" {
			problems = append(problems, fmt.Sprintf("%s value: %s", side, msg))
		}
	}
	if len(problems) > 0 {
		return problems
	}

	switch dt {
	case types.DataTypeNumeric:
		lo, _ := items[0].(float64)
		hi, _ := items[1].(float64)
		if lo > hi {
			problems = append(problems, "low value is greater than high value")
		}
	case types.DataTypeDate, types.DataTypeDateTime:
		lo, _ := parseDate(dt, coerceText(items[0]))
		hi, _ := parseDate(dt, coerceText(items[1]))
		if lo.After(hi) {
			problems = append(problems, "low date is after high date")
		}
	}
	return problems
}

// validateScalar returns "" when value is a complete, well-typed operand.
func validateScalar(dt types.DataType, value any) string {
	if value == nil {
		return "value is required"
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return "value is required"
	}

	switch dt {
	case types.DataTypeNumeric:
		if _, ok := value.(float64); !ok {
			return fmt.Sprintf("%q is not a number", coerceText(value))
		}
	case types.DataTypeBoolean:
		if _, ok := value.(bool); !ok {
			return "value must be true or false"
		}
	case types.DataTypeDate:
		if _, err := parseDate(dt, coerceText(value)); err != nil {
			return fmt.Sprintf("%q is not a date (YYYY-MM-DD)", coerceText(value))
		}
	case types.DataTypeDateTime:
		if _, err := parseDate(dt, coerceText(value)); err != nil {
			return fmt.Sprintf("%q is not a date and time (YYYY-MM-DDTHH:MM)", coerceText(value))
		}
	}
	return ""
}
