// Package rules evaluates condition trees against sample records so a rule
// can be previewed locally before it is sent to the rule service.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Rule compilation.
 *
 * Compiles a condition tree into a CompiledRule with parsed property paths,
 * operands coerced once, and siblings ordered by ascending cost.
 *
 * Compilation workflow:
 *   1. tree.Validate; an incomplete tree is not compiled
 *   2. Canonicalize operator tokens and parse property paths
 *   3. Coerce operands to the condition's data type
 *   4. Order each group's children by cost (stable sort)
 *
 * The stable sort keeps equal-cost siblings in document order so the
 * reported matches are deterministic for identical input.
 */

// CompiledCondition is a leaf ready for evaluation.
type CompiledCondition struct {
	At       types.Path
	Property string
	path     []segment
	Operator string
	DataType types.DataType
	// Operand is a scalar, []any for in/not in, or [2]any for between.
	Operand any
	Cost    int
}

// CompiledGroup is an AND/OR node with cost-ordered children.
type CompiledGroup struct {
	At       types.Path
	Any      bool
	Children []compiledNode
	Cost     int
}

// compiledNode is *CompiledGroup or *CompiledCondition.
type compiledNode interface {
	cost() int
}

func (g *CompiledGroup) cost() int     { return g.Cost }
func (c *CompiledCondition) cost() int { return c.Cost }

// CompiledRule is a validated tree ready for Evaluate.
type CompiledRule struct {
	Root       *CompiledGroup
	Conditions int
}

// Compile validates root and pre-processes it for evaluation.
func Compile(root *types.Group) (*CompiledRule, error) {
	if messages := tree.Validate(root); len(messages) > 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidTree, strings.Join(messages, "; "))
	}

	compiled := &CompiledRule{}
	g, err := compiled.compileGroup(root, types.Path{})
	if err != nil {
		return nil, err
	}
	compiled.Root = g
	return compiled, nil
}

func (r *CompiledRule) compileGroup(g *types.Group, at types.Path) (*CompiledGroup, error) {
	out := &CompiledGroup{
		At:       at,
		Any:      g.Combinator == types.CombinatorOr,
		Children: make([]compiledNode, 0, len(g.Children)),
	}

	for i, child := range g.Children {
		childAt := at.Child(i)
		var node compiledNode
		switch n := child.(type) {
		case *types.Group:
			cg, err := r.compileGroup(n, childAt)
			if err != nil {
				return nil, err
			}
			node = cg
		case types.Condition:
			cc, err := compileCondition(n, childAt)
			if err != nil {
				return nil, err
			}
			r.Conditions++
			node = cc
		}
		out.Children = append(out.Children, node)
		out.Cost += node.cost()
	}

	sort.SliceStable(out.Children, func(i, j int) bool {
		return out.Children[i].cost() < out.Children[j].cost()
	})
	return out, nil
}

func compileCondition(c types.Condition, at types.Path) (*CompiledCondition, error) {
	path, err := parsePath(c.Property)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", tree.Label(at), err)
	}

	op := codec.Canonical(c.Operator)
	operand, err := compileOperand(c.DataType, op, c.Value)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", tree.Label(at), err)
	}

	return &CompiledCondition{
		At:       at,
		Property: c.Property,
		path:     path,
		Operator: op,
		DataType: c.DataType,
		Operand:  operand,
		Cost:     conditionCost(path, op, c.DataType),
	}, nil
}

// compileOperand coerces the committed value into the shape Compare expects.
func compileOperand(dt types.DataType, op string, value types.Value) (any, error) {
	switch codec.FamilyOf(op) {
	case codec.FamilyNone:
		return nil, nil
	case codec.FamilyList:
		items, _ := value.([]any)
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := coerceOperand(dt, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case codec.FamilyRange:
		items, _ := value.([]any)
		if len(items) != 2 {
			return nil, types.ErrCoercionFailed
		}
		lo, err := coerceOperand(dt, items[0])
		if err != nil {
			return nil, err
		}
		hi, err := coerceOperand(dt, items[1])
		if err != nil {
			return nil, err
		}
		return [2]any{lo, hi}, nil
	default:
		return coerceOperand(dt, value)
	}
}

func coerceOperand(dt types.DataType, value any) (any, error) {
	res, err := Coerce(value, dt)
	if err != nil {
		return nil, err
	}
	if res.IsNull {
		return nil, types.ErrCoercionFailed
	}
	return res.Value, nil
}
