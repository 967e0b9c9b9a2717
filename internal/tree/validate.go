package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
)

// Validate checks a tree before it is handed to save/test.
//
// The tree itself always accepts incomplete conditions; this is the single
// place where completeness is enforced. Returns human-readable messages in
// document order, nil when the tree is sendable.
func Validate(root *types.Group) []string {
	if root == nil {
		return []string{"rule has no conditions"}
	}

	var problems []string
	Walk(root, func(path types.Path, node types.Node) bool {
		switch n := node.(type) {
		case *types.Group:
			if len(n.Children) == 0 {
				if len(path) == 0 {
					problems = append(problems, "rule has no conditions")
				} else {
					problems = append(problems, fmt.Sprintf("group %s is empty", Label(path)))
				}
			}
		case types.Condition:
			for _, msg := range validateCondition(n) {
				problems = append(problems, fmt.Sprintf("condition %s: %s", Label(path), msg))
			}
		}
		return true
	})
	return problems
}

func validateCondition(c types.Condition) []string {
	if c.Property == "" {
		return []string{"property is required"}
	}
	if !c.DataType.Valid() {
		return []string{fmt.Sprintf("property %q has unknown data type %q", c.Property, c.DataType)}
	}
	if c.Operator == "" {
		return []string{fmt.Sprintf("operator is required for %q", c.Property)}
	}
	return codec.ValidateValue(c.DataType, c.Operator, c.Value)
}

// Label renders a path as 1-based dotted positions ("2.1") for messages.
func Label(path types.Path) string {
	if len(path) == 0 {
		return "root"
	}
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return strings.Join(parts, ".")
}
