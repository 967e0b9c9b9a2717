package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/solatis/rulebuilder/internal/editor"
	"github.com/solatis/rulebuilder/internal/rules"
	"github.com/solatis/rulebuilder/internal/tree"
	"github.com/solatis/rulebuilder/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Request/response conversion.
 *
 * Messages are google.protobuf.Struct. Trees travel in the same
 * {"operator": "all"|"any", "rules": [...]} shape the rule service
 * accepts, so a client can post a tree it received unchanged.
 *
 * Struct numbers are float64, so path and index fields must be whole
 * non-negative numbers; anything else is INVALID_ARGUMENT.
 */

func treeToValue(root *types.Group) (*structpb.Value, error) {
	data, err := tree.Marshal(root)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewValue(m)
}

// treeFromValue decodes a request tree; structure problems are repaired
// and reported like any saved tree.
func treeFromValue(v *structpb.Value) ([]byte, error) {
	data, err := json.Marshal(v.AsInterface())
	if err != nil {
		return nil, invalid("tree: %v", err)
	}
	return data, nil
}

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func intField(m map[string]any, key string) (int, bool, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	n, err := toIndex(raw)
	if err != nil {
		return 0, true, invalid("%s: %v", key, err)
	}
	return n, true, nil
}

func toIndex(raw any) (int, error) {
	f, ok := raw.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%v is not a non-negative integer", raw)
	}
	return int(f), nil
}

func parsePath(raw any) (types.Path, error) {
	if raw == nil {
		return types.Path{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, invalid("path must be a list of child indices")
	}
	path := make(types.Path, 0, len(items))
	for i, item := range items {
		n, err := toIndex(item)
		if err != nil {
			return nil, invalid("path[%d]: %v", i, err)
		}
		path = append(path, n)
	}
	return path, nil
}

// parseCombinator accepts AND/OR and the wire tokens all/any.
func parseCombinator(s string) types.Combinator {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and", tree.WireAll:
		return types.CombinatorAnd
	case "or", tree.WireAny:
		return types.CombinatorOr
	}
	return types.Combinator(s)
}

func parseCondition(raw any) (types.Condition, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return types.Condition{}, invalid("condition must be an object")
	}
	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	c := types.Condition{
		Property:   str("property"),
		Operator:   str("operator"),
		DataType:   types.DataType(str("data_type")),
		SourceType: types.Scope(str("source_type")),
		Value:      "",
	}
	if v, ok := obj["value"]; ok {
		c.Value = v
	}
	return c, nil
}

// parseEdit converts {kind, path, index, combinator, property, operator, value, condition}.
func parseEdit(v *structpb.Value) (editor.Edit, error) {
	m, ok := v.AsInterface().(map[string]any)
	if !ok {
		return editor.Edit{}, invalid("edit must be an object")
	}

	kindStr, _ := m["kind"].(string)
	kind, err := editor.ParseEditKind(kindStr)
	if err != nil {
		return editor.Edit{}, invalid("%v", err)
	}

	path, err := parsePath(m["path"])
	if err != nil {
		return editor.Edit{}, err
	}

	e := editor.Edit{Kind: kind, Path: path}

	switch kind {
	case editor.EditRemoveChild:
		idx, present, err := intField(m, "index")
		if err != nil {
			return editor.Edit{}, err
		}
		if !present {
			return editor.Edit{}, invalid("remove_child requires index")
		}
		e.Index = idx
	case editor.EditSetCombinator:
		s, _ := m["combinator"].(string)
		e.Combinator = parseCombinator(s)
	case editor.EditSetProperty:
		e.Property, _ = m["property"].(string)
	case editor.EditSetOperator:
		e.Operator, _ = m["operator"].(string)
	case editor.EditSetValue, editor.EditCommitValue:
		e.Value = m["value"]
	case editor.EditReplaceCondition:
		c, err := parseCondition(m["condition"])
		if err != nil {
			return editor.Edit{}, err
		}
		e.Condition = c
	}
	return e, nil
}

func attributesToValue(attrs []types.Attribute) *structpb.Value {
	list := make([]*structpb.Value, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":        structpb.NewStringValue(a.Name),
			"data_type":   structpb.NewStringValue(string(a.DataType)),
			"source_type": structpb.NewStringValue(string(a.Scope)),
		}}))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func operatorsToValue(ops []types.OperatorDescriptor) *structpb.Value {
	list := make([]*structpb.Value, 0, len(ops))
	for _, op := range ops {
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"token": structpb.NewStringValue(op.Token),
			"label": structpb.NewStringValue(op.Label),
		}}))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func stringsToValue(items []string) *structpb.Value {
	list := make([]*structpb.Value, 0, len(items))
	for _, s := range items {
		list = append(list, structpb.NewStringValue(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

// rawToValue passes an arbitrary JSON document through as a Struct value.
func rawToValue(raw json.RawMessage) (*structpb.Value, error) {
	if len(raw) == 0 {
		return structpb.NewNullValue(), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode test result: %w", err)
	}
	return structpb.NewValue(v)
}

func evaluationToStruct(res rules.Result) (*structpb.Struct, error) {
	matches := make([]any, 0, len(res.Matches))
	for _, m := range res.Matches {
		path := make([]any, 0, len(m.At))
		for _, i := range m.At {
			path = append(path, float64(i))
		}
		matches = append(matches, map[string]any{
			"path":     path,
			"property": m.Property,
			"resolved": m.Resolved,
			"value":    m.Value,
		})
	}
	missing := make([]any, 0, len(res.Missing))
	for _, p := range res.Missing {
		missing = append(missing, p)
	}

	out, err := structpb.NewStruct(map[string]any{
		"matched":   res.Matched,
		"evaluated": float64(res.Evaluated),
		"matches":   matches,
		"missing":   missing,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
