// internal/codec/operators.go
package codec

import "strings"

/*
 * Operator tokens and value-shape families.
 *
 * The canonical shape of Condition.Value is a function of (data type,
 * operator). Operators fall into four families that decide the shape:
 *
 *   - none:   Any, Exists         -> "" (operand not evaluated by backend)
 *   - list:   in, not in          -> []any of scalars
 *   - range:  between             -> []any{low, high}
 *   - scalar: everything else     -> string / float64 / bool / nil
 *
 * Token matching ignores case and surrounding whitespace because operator
 * catalogs are remote and not consistent about either.
 */

// Comparison operator tokens understood by the rule service.
const (
	OpEq          = "="
	OpNeq         = "!="
	OpGt          = ">"
	OpGte         = ">="
	OpLt          = "<"
	OpLte         = "<="
	OpBetween     = "between"
	OpIn          = "in"
	OpNotIn       = "not in"
	OpContains    = "contains"
	OpNotContains = "not contains"
	OpStartsWith  = "starts with"
	OpEndsWith    = "ends with"
	OpAny         = "Any"
	OpExists      = "Exists"
)

// Family groups operators that share a canonical value shape.
type Family int

const (
	FamilyScalar Family = iota
	FamilyNone
	FamilyList
	FamilyRange
)

// String returns the family name used in log lines.
func (f Family) String() string {
	switch f {
	case FamilyNone:
		return "none"
	case FamilyList:
		return "list"
	case FamilyRange:
		return "range"
	default:
		return "scalar"
	}
}

// FamilyOf classifies an operator token.
// Unknown and empty tokens are scalar.
func FamilyOf(op string) Family {
	switch normalizeToken(op) {
	case "any", "exists":
		return FamilyNone
	case "in", "not in":
		return FamilyList
	case "between":
		return FamilyRange
	default:
		return FamilyScalar
	}
}

// RequiresValue reports whether the backend evaluates an operand for op.
func RequiresValue(op string) bool {
	return FamilyOf(op) != FamilyNone
}

// SameOperator compares two tokens the way FamilyOf does.
func SameOperator(a, b string) bool {
	return normalizeToken(a) == normalizeToken(b)
}

var knownOperators = []string{
	OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn, OpNotIn,
	OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpAny, OpExists,
}

// Canonical returns the constant spelling of a known token ("NOT  IN" -> OpNotIn).
// Unknown tokens come back normalized.
func Canonical(op string) string {
	n := normalizeToken(op)
	for _, known := range knownOperators {
		if normalizeToken(known) == n {
			return known
		}
	}
	return n
}

// normalizeToken lowercases and collapses inner whitespace ("not  in" -> "not in").
func normalizeToken(op string) string {
	return strings.Join(strings.Fields(strings.ToLower(op)), " ")
}
