// internal/catalog/defaults.go
package catalog

import (
	"sort"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Default Operator Table.
 *
 * Used whenever the remote operator service fails or answers with nothing:
 * an editor with zero operators for a selected property is a dead end, so
 * every data type always resolves to at least one operator.
 *
 * Order matters. The first entry is what a condition gets when its property
 * changes, and remote token maps (unordered JSON objects) are sorted by
 * their position in this table.
 */

var defaultOperators = map[types.DataType][]types.OperatorDescriptor{
	types.DataTypeString: {
		{Token: codec.OpEq, Label: "equals"},
		{Token: codec.OpNeq, Label: "does not equal"},
		{Token: codec.OpContains, Label: "contains"},
		{Token: codec.OpNotContains, Label: "does not contain"},
		{Token: codec.OpStartsWith, Label: "starts with"},
		{Token: codec.OpEndsWith, Label: "ends with"},
		{Token: codec.OpIn, Label: "is one of"},
		{Token: codec.OpNotIn, Label: "is not one of"},
		{Token: codec.OpAny, Label: "any value"},
		{Token: codec.OpExists, Label: "exists"},
	},
	types.DataTypeNumeric: {
		{Token: codec.OpEq, Label: "equals"},
		{Token: codec.OpNeq, Label: "does not equal"},
		{Token: codec.OpGt, Label: "greater than"},
		{Token: codec.OpGte, Label: "greater than or equal"},
		{Token: codec.OpLt, Label: "less than"},
		{Token: codec.OpLte, Label: "less than or equal"},
		{Token: codec.OpBetween, Label: "between"},
		{Token: codec.OpIn, Label: "is one of"},
		{Token: codec.OpNotIn, Label: "is not one of"},
		{Token: codec.OpAny, Label: "any value"},
		{Token: codec.OpExists, Label: "exists"},
	},
	types.DataTypeBoolean: {
		{Token: codec.OpEq, Label: "is"},
		{Token: codec.OpNeq, Label: "is not"},
		{Token: codec.OpAny, Label: "any value"},
		{Token: codec.OpExists, Label: "exists"},
	},
	types.DataTypeDate: {
		{Token: codec.OpEq, Label: "on"},
		{Token: codec.OpNeq, Label: "not on"},
		{Token: codec.OpGt, Label: "after"},
		{Token: codec.OpGte, Label: "on or after"},
		{Token: codec.OpLt, Label: "before"},
		{Token: codec.OpLte, Label: "on or before"},
		{Token: codec.OpBetween, Label: "between"},
		{Token: codec.OpAny, Label: "any value"},
		{Token: codec.OpExists, Label: "exists"},
	},
	types.DataTypeDateTime: {
		{Token: codec.OpEq, Label: "at"},
		{Token: codec.OpNeq, Label: "not at"},
		{Token: codec.OpGt, Label: "after"},
		{Token: codec.OpGte, Label: "at or after"},
		{Token: codec.OpLt, Label: "before"},
		{Token: codec.OpLte, Label: "at or before"},
		{Token: codec.OpBetween, Label: "between"},
		{Token: codec.OpAny, Label: "any value"},
		{Token: codec.OpExists, Label: "exists"},
	},
}

// DefaultOperators returns a copy of the fallback operators for dt.
// Unknown data types get the String table.
func DefaultOperators(dt types.DataType) []types.OperatorDescriptor {
	ops, ok := defaultOperators[dt]
	if !ok {
		ops = defaultOperators[types.DataTypeString]
	}
	out := make([]types.OperatorDescriptor, len(ops))
	copy(out, ops)
	return out
}

// orderOperators turns a remote {token: label} map into a list: tokens known
// to the default table first in table order, then the rest alphabetically.
func orderOperators(dt types.DataType, remote map[string]string) []types.OperatorDescriptor {
	rank := make(map[string]int)
	for i, op := range DefaultOperators(dt) {
		rank[op.Token] = i
	}

	out := make([]types.OperatorDescriptor, 0, len(remote))
	for token, label := range remote {
		if token == "" {
			continue
		}
		if label == "" {
			label = token
		}
		out = append(out, types.OperatorDescriptor{Token: token, Label: label})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, iKnown := rank[out[i].Token]
		rj, jKnown := rank[out[j].Token]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i].Token < out[j].Token
		}
	})
	return out
}
