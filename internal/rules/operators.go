// internal/rules/operators.go
package rules

import (
	"strings"
	"time"

	"github.com/solatis/rulebuilder/internal/codec"
)

/*
 * Operator comparison logic.
 *
 * Values reach Compare already coerced (float64, string, bool, time.Time).
 * List operands are []any and range operands are [2]any of the same types.
 *
 * Ordering operators compare numbers and times; strings order
 * lexicographically. Incomparable pairs never match.
 *
 * contains/not contains test substrings on text and membership on list
 * record values, so {"tags": ["a","b"]} contains "a".
 */

// Compare applies the canonical operator op to a coerced record value.
func Compare(op string, value, operand any) bool {
	switch op {
	case codec.OpEq:
		return compareEqual(value, operand)
	case codec.OpNeq:
		return !compareEqual(value, operand)
	case codec.OpLt:
		c, ok := compareOrdered(value, operand)
		return ok && c < 0
	case codec.OpLte:
		c, ok := compareOrdered(value, operand)
		return ok && c <= 0
	case codec.OpGt:
		c, ok := compareOrdered(value, operand)
		return ok && c > 0
	case codec.OpGte:
		c, ok := compareOrdered(value, operand)
		return ok && c >= 0
	case codec.OpBetween:
		return compareBetween(value, operand)
	case codec.OpIn:
		return compareIn(value, operand)
	case codec.OpNotIn:
		return !compareIn(value, operand)
	case codec.OpContains:
		return compareContains(value, operand)
	case codec.OpNotContains:
		return !compareContains(value, operand)
	case codec.OpStartsWith:
		return compareStrings(value, operand, strings.HasPrefix)
	case codec.OpEndsWith:
		return compareStrings(value, operand, strings.HasSuffix)
	default:
		return false
	}
}

func compareEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// compareOrdered performs a three-way comparison; ok is false for incomparable types.
func compareOrdered(a, b any) (int, bool) {
	switch va := a.(type) {
	case float64:
		vb, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case va < vb:
			return -1, true
		case va > vb:
			return 1, true
		}
		return 0, true
	case time.Time:
		vb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return va.Compare(vb), true
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(va, vb), true
	}
	return 0, false
}

// compareBetween is inclusive on both ends.
func compareBetween(value, bounds any) bool {
	r, ok := bounds.([2]any)
	if !ok {
		return false
	}
	lo, ok1 := compareOrdered(value, r[0])
	hi, ok2 := compareOrdered(value, r[1])
	return ok1 && ok2 && lo >= 0 && hi <= 0
}

func compareIn(value, set any) bool {
	items, ok := set.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if compareEqual(value, item) {
			return true
		}
	}
	return false
}

func compareContains(value, operand any) bool {
	if items, ok := value.([]any); ok {
		return compareIn(operand, items)
	}
	return compareStrings(value, operand, strings.Contains)
}

func compareStrings(value, operand any, fn func(s, sub string) bool) bool {
	vs, ok1 := value.(string)
	os, ok2 := operand.(string)
	return ok1 && ok2 && fn(vs, os)
}
