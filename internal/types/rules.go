// internal/types/rules.go
package types

/*
 * Condition-tree model.
 *
 * Provides Group, Condition and Node used by internal/tree for structural
 * editing and serialization. These types are wire-format agnostic - the
 * {operator, rules} JSON shape is produced by internal/tree/codec.go.
 *
 * Key types:
 *   - Node: either *Group or Condition
 *   - Group: AND/OR combinator over ordered children
 *   - Condition: leaf comparison (property, operator, value, data type, scope)
 *   - Path: child-index route from the root group to a node
 *
 * Ownership: trees are replace-on-write. A Group's Children slice is never
 * appended to or assigned through after construction; edits copy every
 * ancestor on the path and build a fresh slice.
 */

// Combinator joins the children of a Group.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Valid reports whether c is AND or OR.
func (c Combinator) Valid() bool {
	return c == CombinatorAnd || c == CombinatorOr
}

// Value is the dynamic condition operand: string, float64, bool, nil or []any.
type Value = any

// Node is a tree element: *Group or Condition.
type Node interface {
	isNode()
}

// Condition is a leaf comparison.
// Empty strings mean "not chosen yet"; incomplete conditions are normal while editing.
type Condition struct {
	Property   string
	Operator   string
	Value      Value
	DataType   DataType
	SourceType Scope
}

func (Condition) isNode() {}

// Group is an internal node. Children may be transiently empty during editing.
type Group struct {
	Combinator Combinator
	Children   []Node
}

func (*Group) isNode() {}

// Path addresses a node by child indices from the root. The empty path is the root.
type Path []int

// Child returns a new path extended by index i.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// BlankCondition returns a condition with every field unset.
func BlankCondition() Condition {
	return Condition{Value: ""}
}

// NewRoot returns an empty AND root group.
func NewRoot() *Group {
	return &Group{Combinator: CombinatorAnd, Children: []Node{}}
}
