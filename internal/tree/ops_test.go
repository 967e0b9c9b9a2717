package tree

import (
	"errors"
	"testing"

	"github.com/solatis/rulebuilder/internal/types"
)

func cond(property, op string, value any, dt types.DataType) types.Condition {
	return types.Condition{Property: property, Operator: op, Value: value, DataType: dt, SourceType: types.ScopeGlobal}
}

// nestedTree builds AND(c1, OR(c2, c3)).
func nestedTree() *types.Group {
	return &types.Group{
		Combinator: types.CombinatorAnd,
		Children: []types.Node{
			cond("Age", ">", 18.0, types.DataTypeNumeric),
			&types.Group{
				Combinator: types.CombinatorOr,
				Children: []types.Node{
					cond("Country", "in", []any{"NL", "BE"}, types.DataTypeString),
					cond("Vip", "=", true, types.DataTypeBoolean),
				},
			},
		},
	}
}

func TestAddCondition(t *testing.T) {
	root := types.NewRoot()

	got, err := AddCondition(root, types.Path{})
	if err != nil {
		t.Fatalf("AddCondition() error = %v", err)
	}
	if len(got.Children) != 1 {
		t.Fatalf("len(Children) = %d, want 1", len(got.Children))
	}
	c, ok := got.Children[0].(types.Condition)
	if !ok {
		t.Fatalf("child is %T, want Condition", got.Children[0])
	}
	if c != types.BlankCondition() {
		t.Errorf("child = %#v, want blank condition", c)
	}
	if len(root.Children) != 0 {
		t.Errorf("input root mutated: %d children", len(root.Children))
	}
}

func TestAddGroup_NeverEmpty(t *testing.T) {
	root := nestedTree()

	for _, path := range []types.Path{{}, {1}} {
		got, err := AddGroup(root, path)
		if err != nil {
			t.Fatalf("AddGroup(%v) error = %v", path, err)
		}
		parent, _ := Get(got, path)
		g := parent.(*types.Group)
		added, ok := g.Children[len(g.Children)-1].(*types.Group)
		if !ok {
			t.Fatalf("last child is %T, want *Group", g.Children[len(g.Children)-1])
		}
		if added.Combinator != types.CombinatorAnd {
			t.Errorf("Combinator = %v, want AND", added.Combinator)
		}
		if len(added.Children) != 1 {
			t.Errorf("new group has %d children, want 1", len(added.Children))
		}
	}
}

func TestRemoveChild(t *testing.T) {
	root := nestedTree()

	got, err := RemoveChild(root, types.Path{1}, 0)
	if err != nil {
		t.Fatalf("RemoveChild() error = %v", err)
	}
	inner := got.Children[1].(*types.Group)
	if len(inner.Children) != 1 {
		t.Fatalf("inner children = %d, want 1", len(inner.Children))
	}
	if inner.Children[0].(types.Condition).Property != "Vip" {
		t.Errorf("wrong child removed: %#v", inner.Children[0])
	}

	// Removing the last child leaves an empty group in place.
	got, err = RemoveChild(got, types.Path{1}, 0)
	if err != nil {
		t.Fatalf("RemoveChild() error = %v", err)
	}
	if len(got.Children) != 2 {
		t.Fatalf("root children = %d, want 2 (empty group kept)", len(got.Children))
	}
	if n := len(got.Children[1].(*types.Group).Children); n != 0 {
		t.Errorf("inner group children = %d, want 0", n)
	}

	if orig := root.Children[1].(*types.Group); len(orig.Children) != 2 {
		t.Errorf("input tree mutated: inner has %d children", len(orig.Children))
	}
}

func TestRemoveChild_OutOfRange(t *testing.T) {
	root := nestedTree()
	got, err := RemoveChild(root, types.Path{}, 5)
	if !errors.Is(err, types.ErrIndexOutOfRange) {
		t.Fatalf("error = %v, want ErrIndexOutOfRange", err)
	}
	if got != root {
		t.Errorf("failed edit must return the input root")
	}
}

func TestSetCombinator(t *testing.T) {
	root := nestedTree()

	got, err := SetCombinator(root, types.Path{1}, types.CombinatorAnd)
	if err != nil {
		t.Fatalf("SetCombinator() error = %v", err)
	}
	inner := got.Children[1].(*types.Group)
	if inner.Combinator != types.CombinatorAnd {
		t.Errorf("Combinator = %v, want AND", inner.Combinator)
	}
	if len(inner.Children) != 2 {
		t.Errorf("children changed: %d", len(inner.Children))
	}
	if root.Children[1].(*types.Group).Combinator != types.CombinatorOr {
		t.Errorf("input tree mutated")
	}

	if _, err := SetCombinator(root, types.Path{}, "XOR"); !errors.Is(err, types.ErrInvalidCombinator) {
		t.Errorf("error = %v, want ErrInvalidCombinator", err)
	}
}

func TestReplaceCondition(t *testing.T) {
	root := nestedTree()
	next := cond("Country", "not in", []any{"DE"}, types.DataTypeString)

	got, err := ReplaceCondition(root, types.Path{1, 0}, next)
	if err != nil {
		t.Fatalf("ReplaceCondition() error = %v", err)
	}
	c, err := GetCondition(got, types.Path{1, 0})
	if err != nil {
		t.Fatalf("GetCondition() error = %v", err)
	}
	if c.Operator != "not in" {
		t.Errorf("Operator = %q, want %q", c.Operator, "not in")
	}

	// Off-path sibling is shared, on-path ancestors are copied.
	if got.Children[0] != root.Children[0] {
		t.Errorf("off-path sibling should be shared")
	}
	if got.Children[1] == root.Children[1] {
		t.Errorf("on-path ancestor should be copied")
	}
	orig, _ := GetCondition(root, types.Path{1, 0})
	if orig.Operator != "in" {
		t.Errorf("input tree mutated: %q", orig.Operator)
	}

	// Caller's slice is detached from the stored value.
	next.Value.([]any)[0] = "FR"
	c, _ = GetCondition(got, types.Path{1, 0})
	if c.Value.([]any)[0] != "DE" {
		t.Errorf("stored value aliases caller slice")
	}
}

func TestReplaceCondition_InvalidPaths(t *testing.T) {
	root := nestedTree()
	blank := types.BlankCondition()

	tests := []struct {
		name string
		path types.Path
	}{
		{"root", types.Path{}},
		{"group target", types.Path{1}},
		{"out of range", types.Path{4}},
		{"through condition", types.Path{0, 0}},
		{"negative", types.Path{-1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReplaceCondition(root, tt.path, blank); !errors.Is(err, types.ErrInvalidPath) {
				t.Errorf("error = %v, want ErrInvalidPath", err)
			}
		})
	}
}

func TestConditionsAndMeasure(t *testing.T) {
	root := nestedTree()

	refs := Conditions(root)
	if len(refs) != 3 {
		t.Fatalf("len(Conditions) = %d, want 3", len(refs))
	}
	if Label(refs[2].Path) != "2.2" {
		t.Errorf("third leaf path = %s, want 2.2", Label(refs[2].Path))
	}

	stats := Measure(root)
	if stats != (Stats{Groups: 2, Conditions: 3, Depth: 2}) {
		t.Errorf("Measure() = %+v", stats)
	}
}

func TestEqual(t *testing.T) {
	a := nestedTree()
	b := Clone(a)
	if !Equal(a, b) {
		t.Fatalf("clone not equal")
	}

	intValued, _ := ReplaceCondition(b, types.Path{0}, cond("Age", ">", 18, types.DataTypeNumeric))
	if !Equal(a, intValued) {
		t.Errorf("int and float64 operands should compare equal")
	}

	changed, _ := SetCombinator(b, types.Path{}, types.CombinatorOr)
	if Equal(a, changed) {
		t.Errorf("combinator change not detected")
	}
	shorter, _ := RemoveChild(b, types.Path{1}, 1)
	if Equal(a, shorter) {
		t.Errorf("removed child not detected")
	}
	if Equal(a, nil) || !Equal(nil, nil) {
		t.Errorf("nil handling wrong")
	}
}
