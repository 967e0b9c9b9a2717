// Package codec converts condition values between the edit buffer and the
// canonical shape the rule service accepts.
//
// The shape of Condition.Value depends on (data type, operator family), not
// on the data type alone. Stage is the keystroke path and never coerces, so
// a user can type "-", "1." or a trailing comma. Commit runs when the edit
// buffer loses focus and produces the canonical shape.
package codec

import (
	"strings"

	"github.com/solatis/rulebuilder/internal/types"
)

// EmptyValue returns the canonical empty shape for (dt, op).
func EmptyValue(dt types.DataType, op string) types.Value {
	switch FamilyOf(op) {
	case FamilyList:
		return []any{}
	case FamilyRange:
		return []any{"", ""}
	default:
		return ""
	}
}

// Stage stores an edit-buffer value without coercion.
//
// List operators keep the raw comma-separated text, range operators keep
// two raw strings, numeric scalars keep numeric-as-string. Boolean scalars
// come from a tri-state selector and are stored canonically right away.
func Stage(dt types.DataType, op string, buffer any) types.Value {
	switch FamilyOf(op) {
	case FamilyNone:
		return ""
	case FamilyList:
		switch v := buffer.(type) {
		case []any:
			return cloneList(v)
		case []string:
			return stringsToList(v)
		}
		return coerceText(buffer)
	case FamilyRange:
		return stageRange(buffer)
	}

	if dt == types.DataTypeBoolean {
		return commitBoolean(buffer)
	}
	switch v := buffer.(type) {
	case float64, string:
		return v
	default:
		return coerceText(v)
	}
}

// Commit converts a staged value to its canonical shape.
func Commit(dt types.DataType, op string, value types.Value) types.Value {
	switch FamilyOf(op) {
	case FamilyNone:
		return ""
	case FamilyList:
		return commitList(dt, value)
	case FamilyRange:
		return commitRange(dt, value)
	}

	if dt == types.DataTypeBoolean {
		return commitBoolean(value)
	}
	return commitScalar(dt, value)
}

// DisplayText renders a none, list or scalar value as edit-buffer text.
// Range values render their low side; use DisplayRange for both.
func DisplayText(dt types.DataType, op string, value types.Value) string {
	switch FamilyOf(op) {
	case FamilyNone:
		return ""
	case FamilyList:
		items, ok := value.([]any)
		if !ok {
			return coerceText(value)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, coerceText(item))
		}
		return strings.Join(parts, ", ")
	case FamilyRange:
		return DisplayRange(dt, op, value)[0]
	default:
		return coerceText(value)
	}
}

// DisplayRange renders a between value as its two edit-buffer strings.
func DisplayRange(dt types.DataType, op string, value types.Value) [2]string {
	var out [2]string
	items, _ := stageRange(value).([]any)
	for i := range out {
		out[i] = coerceText(items[i])
	}
	return out
}

// OnOperatorChange sets op and resets the value to op's empty shape.
// The old value is never reinterpreted.
func OnOperatorChange(c types.Condition, op string) types.Condition {
	c.Operator = op
	c.Value = EmptyValue(c.DataType, op)
	return c
}

// OnPropertyChange points c at attr, picks the first operator offered for
// attr's data type and resets the value to that operator's empty shape.
func OnPropertyChange(c types.Condition, attr types.Attribute, ops []types.OperatorDescriptor) types.Condition {
	c.Property = attr.Name
	c.DataType = attr.DataType
	c.SourceType = attr.Scope
	c.Operator = ""
	if len(ops) > 0 {
		c.Operator = ops[0].Token
	}
	c.Value = EmptyValue(c.DataType, c.Operator)
	return c
}

// stageRange pads or trims to exactly two raw strings.
func stageRange(value any) types.Value {
	out := []any{"", ""}
	switch v := value.(type) {
	case []any:
		for i := 0; i < len(v) && i < 2; i++ {
			out[i] = coerceText(v[i])
		}
	case []string:
		for i := 0; i < len(v) && i < 2; i++ {
			out[i] = v[i]
		}
	case [2]string:
		out[0], out[1] = v[0], v[1]
	case string:
		out[0] = v
	}
	return out
}

// commitRange pads to two elements and converts non-empty numeric sides.
func commitRange(dt types.DataType, value any) types.Value {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	default:
		items, _ = stageRange(value).([]any)
	}

	out := []any{"", ""}
	for i := 0; i < len(items) && i < 2; i++ {
		out[i] = commitScalar(dt, items[i])
	}
	return out
}

// commitList splits comma-separated text into trimmed, non-empty items.
// Empty input commits to an empty list, never [""].
func commitList(dt types.DataType, value any) types.Value {
	var raw []any
	switch v := value.(type) {
	case []any:
		raw = v
	case []string:
		raw = stringsToList(v)
	case nil:
	default:
		for _, part := range strings.Split(coerceText(v), ",") {
			raw = append(raw, part)
		}
	}

	out := make([]any, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			item = s
		}
		if item == nil {
			continue
		}
		out = append(out, commitScalar(dt, item))
	}
	return out
}

// commitBoolean maps the tri-state selector to true, false or nil (unset).
func commitBoolean(value any) types.Value {
	b, err := coerceBoolean(value)
	if err != nil {
		return nil
	}
	return b
}

func stringsToList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func cloneList(items []any) []any {
	out := make([]any, len(items))
	copy(out, items)
	return out
}
