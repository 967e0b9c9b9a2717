package tree

import (
	"reflect"

	"github.com/solatis/rulebuilder/internal/types"
)

// Visitor is called for each node in pre-order. Returning false skips a group's children.
type Visitor func(path types.Path, node types.Node) bool

// Walk visits root and every descendant depth-first.
func Walk(root *types.Group, fn Visitor) {
	if root == nil {
		return
	}
	walk(types.Path{}, root, fn)
}

func walk(path types.Path, node types.Node, fn Visitor) {
	if !fn(path, node) {
		return
	}
	g, ok := node.(*types.Group)
	if !ok {
		return
	}
	for i, child := range g.Children {
		walk(path.Child(i), child, fn)
	}
}

// ConditionRef pairs a leaf with its location.
type ConditionRef struct {
	Path      types.Path
	Condition types.Condition
}

// Conditions lists every leaf in document order.
func Conditions(root *types.Group) []ConditionRef {
	var out []ConditionRef
	Walk(root, func(path types.Path, node types.Node) bool {
		if c, ok := node.(types.Condition); ok {
			out = append(out, ConditionRef{Path: path, Condition: c})
		}
		return true
	})
	return out
}

// Equal reports structural equality. Numeric values compare by value so
// int and float64 operands from different decoders are equal.
func Equal(a, b *types.Group) bool {
	if a == nil || b == nil {
		return a == b
	}
	return nodesEqual(a, b)
}

func nodesEqual(a, b types.Node) bool {
	switch x := a.(type) {
	case *types.Group:
		y, ok := b.(*types.Group)
		if !ok || x.Combinator != y.Combinator || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !nodesEqual(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	case types.Condition:
		y, ok := b.(types.Condition)
		if !ok {
			return false
		}
		return x.Property == y.Property &&
			x.Operator == y.Operator &&
			x.DataType == y.DataType &&
			x.SourceType == y.SourceType &&
			valuesEqual(x.Value, y.Value)
	default:
		return false
	}
}

func valuesEqual(a, b types.Value) bool {
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}
	la, oka := a.([]any)
	lb, okb := b.([]any)
	if oka || okb {
		if !oka || !okb || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// toFloat64 converts value to float64 if it's a numeric type.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Stats summarizes a tree's shape.
type Stats struct {
	Groups     int
	Conditions int
	Depth      int
}

// Measure counts groups and leaves and the deepest nesting level (root = 1).
func Measure(root *types.Group) Stats {
	var s Stats
	Walk(root, func(path types.Path, node types.Node) bool {
		switch node.(type) {
		case *types.Group:
			s.Groups++
			if d := len(path) + 1; d > s.Depth {
				s.Depth = d
			}
		case types.Condition:
			s.Conditions++
		}
		return true
	})
	return s
}
