// internal/tree/codec.go
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Wire format for condition trees.
 *
 * Group:     {"operator": "all"|"any", "rules": [...]}
 * Condition: {"property", "operator", "value", "data_type", "source_type"}
 *
 * The same shape is accepted by the remote save/test endpoints, so field
 * names and order are fixed. An element is a group when it has a "rules" key,
 * or when its operator is a group token and it has no condition fields.
 *
 * Decoding repairs instead of rejecting: a missing or null "rules" becomes an
 * empty group, an unknown group operator becomes "all", non-object elements
 * are dropped. Every repair is reported so callers can log it. Only bytes
 * that are not JSON at all produce an error.
 */

// Group-level operator tokens.
const (
	WireAll = "all"
	WireAny = "any"
)

type wireGroup struct {
	Operator string `json:"operator"`
	Rules    []any  `json:"rules"`
}

type wireCondition struct {
	Property   string      `json:"property"`
	Operator   string      `json:"operator"`
	Value      types.Value `json:"value"`
	DataType   string      `json:"data_type"`
	SourceType string      `json:"source_type"`
}

// Marshal encodes a tree in the wire format.
func Marshal(root *types.Group) ([]byte, error) {
	if root == nil {
		root = types.NewRoot()
	}
	return EncodeJSON(toWire(root))
}

// EncodeJSON encodes v without HTML escaping, so operators such as ">" and
// "<=" stay literal on the wire.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes a wire tree, discarding repair notes.
func Unmarshal(data []byte) (*types.Group, error) {
	root, _, err := Decode(data)
	return root, err
}

// Decode decodes a wire tree and reports every repair it made.
func Decode(data []byte) (*types.Group, []string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return types.NewRoot(), []string{"empty document replaced by empty group"}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode rule tree: %w", err)
	}

	d := &decoder{}
	var root *types.Group
	switch v := raw.(type) {
	case map[string]any:
		root = d.group("$", v)
	case []any:
		d.note("$", "bare rules array wrapped in an \"all\" group")
		root = &types.Group{Combinator: types.CombinatorAnd, Children: d.children("$", v)}
	default:
		d.note("$", "root is not an object, replaced by empty group")
		root = types.NewRoot()
	}
	return root, d.repairs, nil
}

func toWire(node types.Node) any {
	switch n := node.(type) {
	case *types.Group:
		rules := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			rules = append(rules, toWire(child))
		}
		return wireGroup{Operator: combinatorToWire(n.Combinator), Rules: rules}
	case types.Condition:
		return wireCondition{
			Property:   n.Property,
			Operator:   n.Operator,
			Value:      n.Value,
			DataType:   string(n.DataType),
			SourceType: string(n.SourceType),
		}
	default:
		return nil
	}
}

func combinatorToWire(c types.Combinator) string {
	if c == types.CombinatorOr {
		return WireAny
	}
	return WireAll
}

type decoder struct {
	repairs []string
}

func (d *decoder) note(at, msg string) {
	d.repairs = append(d.repairs, at+": "+msg)
}

func (d *decoder) group(at string, obj map[string]any) *types.Group {
	g := &types.Group{Combinator: d.combinator(at, obj["operator"])}
	rules, ok := obj["rules"].([]any)
	if !ok {
		d.note(at, "missing rules, group emptied")
		g.Children = []types.Node{}
		return g
	}
	g.Children = d.children(at, rules)
	return g
}

func (d *decoder) children(at string, rules []any) []types.Node {
	out := make([]types.Node, 0, len(rules))
	for i, rule := range rules {
		path := fmt.Sprintf("%s.rules[%d]", at, i)
		obj, ok := rule.(map[string]any)
		if !ok {
			d.note(path, "not an object, dropped")
			continue
		}
		if isGroup(obj) {
			out = append(out, d.group(path, obj))
			continue
		}
		out = append(out, d.condition(obj))
	}
	return out
}

// isGroup reports whether a wire element is a group: it carries "rules", or
// it has a group operator and none of the condition-only fields.
func isGroup(obj map[string]any) bool {
	if _, ok := obj["rules"]; ok {
		return true
	}
	for _, key := range []string{"property", "data_type", "source_type", "value"} {
		if _, ok := obj[key]; ok {
			return false
		}
	}
	op, _ := obj["operator"].(string)
	switch strings.ToLower(strings.TrimSpace(op)) {
	case WireAll, WireAny, "and", "or":
		return true
	}
	return false
}

func (d *decoder) combinator(at string, v any) types.Combinator {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case WireAll, "and":
		return types.CombinatorAnd
	case WireAny, "or":
		return types.CombinatorOr
	}
	d.note(at, fmt.Sprintf("group operator %q replaced by %q", s, WireAll))
	return types.CombinatorAnd
}

func (d *decoder) condition(obj map[string]any) types.Condition {
	c := types.Condition{
		Property:   stringField(obj, "property"),
		Operator:   stringField(obj, "operator"),
		DataType:   types.DataType(stringField(obj, "data_type")),
		SourceType: types.Scope(stringField(obj, "source_type")),
		Value:      "",
	}
	if v, ok := obj["value"]; ok {
		c.Value = v
	}
	return c
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
