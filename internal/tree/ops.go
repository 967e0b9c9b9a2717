// Package tree implements the immutable condition-tree algebra.
//
// Every operation takes a root and returns a new root. Ancestors on the path
// to the edit point are copied; siblings off the path are shared, which is
// safe because no operation ever writes through an existing node.
package tree

import (
	"fmt"

	"github.com/solatis/rulebuilder/internal/types"
)

// AddCondition appends a blank condition to the group at path.
func AddCondition(root *types.Group, path types.Path) (*types.Group, error) {
	return editGroup(root, path, func(g *types.Group) error {
		g.Children = appendChild(g.Children, types.BlankCondition())
		return nil
	})
}

// AddGroup appends a new AND group holding one blank condition.
// A group is never created empty so there is always a leaf to fill in.
func AddGroup(root *types.Group, path types.Path) (*types.Group, error) {
	return editGroup(root, path, func(g *types.Group) error {
		child := &types.Group{
			Combinator: types.CombinatorAnd,
			Children:   []types.Node{types.BlankCondition()},
		}
		g.Children = appendChild(g.Children, child)
		return nil
	})
}

// RemoveChild removes children[index] of the group at path.
// Empty groups are left in place; pruning is the editor's decision.
func RemoveChild(root *types.Group, path types.Path, index int) (*types.Group, error) {
	return editGroup(root, path, func(g *types.Group) error {
		if index < 0 || index >= len(g.Children) {
			return fmt.Errorf("remove child %d of %d: %w", index, len(g.Children), types.ErrIndexOutOfRange)
		}
		children := make([]types.Node, 0, len(g.Children)-1)
		children = append(children, g.Children[:index]...)
		children = append(children, g.Children[index+1:]...)
		g.Children = children
		return nil
	})
}

// SetCombinator sets the group's combinator. Children are untouched.
func SetCombinator(root *types.Group, path types.Path, c types.Combinator) (*types.Group, error) {
	if !c.Valid() {
		return root, fmt.Errorf("%q: %w", c, types.ErrInvalidCombinator)
	}
	return editGroup(root, path, func(g *types.Group) error {
		g.Combinator = c
		return nil
	})
}

// ReplaceCondition swaps the leaf at path for cond wholesale.
func ReplaceCondition(root *types.Group, path types.Path, cond types.Condition) (*types.Group, error) {
	if len(path) == 0 {
		return root, fmt.Errorf("root is a group: %w", types.ErrInvalidPath)
	}
	parent, last := path[:len(path)-1], path[len(path)-1]
	return editGroup(root, parent, func(g *types.Group) error {
		if last < 0 || last >= len(g.Children) {
			return fmt.Errorf("condition %v: %w", path, types.ErrInvalidPath)
		}
		if _, ok := g.Children[last].(types.Condition); !ok {
			return fmt.Errorf("node %v is a group: %w", path, types.ErrInvalidPath)
		}
		children := make([]types.Node, len(g.Children))
		copy(children, g.Children)
		children[last] = cloneCondition(cond)
		g.Children = children
		return nil
	})
}

// Get returns the node at path.
func Get(root *types.Group, path types.Path) (types.Node, error) {
	if root == nil {
		return nil, types.ErrInvalidPath
	}
	var node types.Node = root
	for depth, idx := range path {
		g, ok := node.(*types.Group)
		if !ok || idx < 0 || idx >= len(g.Children) {
			return nil, fmt.Errorf("path %v at depth %d: %w", path, depth, types.ErrInvalidPath)
		}
		node = g.Children[idx]
	}
	return node, nil
}

// GetCondition returns the leaf at path.
func GetCondition(root *types.Group, path types.Path) (types.Condition, error) {
	node, err := Get(root, path)
	if err != nil {
		return types.Condition{}, err
	}
	c, ok := node.(types.Condition)
	if !ok {
		return types.Condition{}, fmt.Errorf("node %v is a group: %w", path, types.ErrInvalidPath)
	}
	return c, nil
}

// editGroup copies every group from root to path, applies fn to the copy of
// the target group and returns the new root. On error the input is returned
// untouched alongside the error.
func editGroup(root *types.Group, path types.Path, fn func(*types.Group) error) (*types.Group, error) {
	if root == nil {
		return nil, types.ErrInvalidPath
	}
	newRoot := shallowCopy(root)
	current := newRoot
	for depth, idx := range path {
		if idx < 0 || idx >= len(current.Children) {
			return root, fmt.Errorf("path %v at depth %d: %w", path, depth, types.ErrInvalidPath)
		}
		child, ok := current.Children[idx].(*types.Group)
		if !ok {
			return root, fmt.Errorf("path %v at depth %d is a condition: %w", path, depth, types.ErrInvalidPath)
		}
		childCopy := shallowCopy(child)
		children := make([]types.Node, len(current.Children))
		copy(children, current.Children)
		children[idx] = childCopy
		current.Children = children
		current = childCopy
	}
	if err := fn(current); err != nil {
		return root, err
	}
	return newRoot, nil
}

// shallowCopy copies a group header; the children slice is shared until reassigned.
func shallowCopy(g *types.Group) *types.Group {
	return &types.Group{Combinator: g.Combinator, Children: g.Children}
}

// appendChild never appends into a shared backing array.
func appendChild(children []types.Node, n types.Node) []types.Node {
	out := make([]types.Node, len(children), len(children)+1)
	copy(out, children)
	return append(out, n)
}

// cloneCondition detaches list values so later edits cannot alias the caller's slice.
func cloneCondition(c types.Condition) types.Condition {
	if items, ok := c.Value.([]any); ok {
		dup := make([]any, len(items))
		copy(dup, items)
		c.Value = dup
	}
	return c
}

// Clone deep-copies a tree.
func Clone(root *types.Group) *types.Group {
	if root == nil {
		return nil
	}
	out := &types.Group{Combinator: root.Combinator, Children: make([]types.Node, len(root.Children))}
	for i, child := range root.Children {
		switch n := child.(type) {
		case *types.Group:
			out.Children[i] = Clone(n)
		case types.Condition:
			out.Children[i] = cloneCondition(n)
		}
	}
	return out
}
