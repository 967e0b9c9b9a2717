package tree

import (
	"strings"
	"testing"

	"github.com/solatis/rulebuilder/internal/types"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		root *types.Group
		want []string
	}{
		{
			name: "valid nested tree",
			root: nestedTree(),
			want: nil,
		},
		{
			name: "empty root",
			root: types.NewRoot(),
			want: []string{"rule has no conditions"},
		},
		{
			name: "blank condition",
			root: &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{types.BlankCondition()}},
			want: []string{"condition 1: property is required"},
		},
		{
			name: "missing operator",
			root: &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{
				cond("Age", "", "", types.DataTypeNumeric),
			}},
			want: []string{`condition 1: operator is required for "Age"`},
		},
		{
			name: "empty nested group and bad between",
			root: &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{
				&types.Group{Combinator: types.CombinatorOr, Children: []types.Node{}},
				cond("Age", "between", []any{"", 40.0}, types.DataTypeNumeric),
			}},
			want: []string{
				"group 1 is empty",
				"condition 2: low value: value is required",
			},
		},
		{
			name: "exists needs no value",
			root: &types.Group{Combinator: types.CombinatorAnd, Children: []types.Node{
				cond("Email", "Exists", "", types.DataTypeString),
			}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.root)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if Label(types.Path{}) != "root" {
		t.Errorf("Label(root) = %q", Label(types.Path{}))
	}
	if Label(types.Path{0, 2, 1}) != "1.3.2" {
		t.Errorf("Label() = %q", Label(types.Path{0, 2, 1}))
	}
}
