// internal/rules/cost.go
package rules

import (
	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Cost model for condition evaluation.
 *
 * cost = lookup_cost + operator_cost * type_multiplier * 8^wildcards
 *
 * Siblings are evaluated cheapest first so a group short-circuits as early
 * as possible: an Exists check runs before a substring search on the same
 * record. A group costs the sum of its children.
 */

const (
	// Operator base costs
	CostNone    = 0
	CostExists  = 1
	CostEq      = 5
	CostOrdered = 7
	CostIn      = 8
	CostBetween = 9
	CostSubstr  = 10

	// Per dotted path segment
	CostLookupPerSegment = 128

	// Data type multipliers
	MultiplierBool   = 1
	MultiplierNumber = 4
	MultiplierTime   = 6
	MultiplierString = 48
)

// conditionCost computes the cost of one leaf.
func conditionCost(path []segment, op string, dt types.DataType) int {
	lookup := 0
	wildcards := 0
	for _, seg := range path {
		lookup += CostLookupPerSegment
		if seg.Wildcard {
			wildcards++
		}
	}

	exec := 1
	for i := 0; i < wildcards; i++ {
		exec *= 8
	}
	return lookup + operatorCost(op)*typeMultiplier(dt)*exec
}

func operatorCost(op string) int {
	switch op {
	case codec.OpAny:
		return CostNone
	case codec.OpExists:
		return CostExists
	case codec.OpEq, codec.OpNeq:
		return CostEq
	case codec.OpLt, codec.OpLte, codec.OpGt, codec.OpGte:
		return CostOrdered
	case codec.OpIn, codec.OpNotIn:
		return CostIn
	case codec.OpBetween:
		return CostBetween
	default:
		return CostSubstr
	}
}

func typeMultiplier(dt types.DataType) int {
	switch dt {
	case types.DataTypeBoolean:
		return MultiplierBool
	case types.DataTypeNumeric:
		return MultiplierNumber
	case types.DataTypeDate, types.DataTypeDateTime:
		return MultiplierTime
	default:
		return MultiplierString
	}
}
