// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/rulebuilder/internal/codec"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Record value coercion.
 *
 * Sample records come from users and upstream systems, so record values are
 * coerced to the condition's data type before comparison. Operands were
 * committed by the editor and go through the same functions at compile time.
 *
 * Type modes:
 *   - Numeric:  float64, ints and numeric strings; booleans rejected
 *   - String:   lenient, every scalar formats to text
 *   - Boolean:  bool or "true"/"false"
 *   - Date:     YYYY-MM-DD or RFC 3339, truncated to the day (UTC)
 *   - DateTime: editor layouts or RFC 3339
 *
 * A nil value is reported separately from a failure: nil behaves like a
 * missing property, a failure makes the condition false.
 */

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any
	IsNull bool
}

// Coerce converts value to the Go type compared for dt:
// float64, string, bool or time.Time.
func Coerce(value any, dt types.DataType) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}

	switch dt {
	case types.DataTypeNumeric:
		return coerceNumeric(value)
	case types.DataTypeBoolean:
		return coerceBoolean(value)
	case types.DataTypeDate, types.DataTypeDateTime:
		return coerceTime(value, dt)
	default:
		return coerceText(value)
	}
}

func coerceNumeric(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case float64:
		return CoercionResult{Value: v}, nil
	case int:
		return CoercionResult{Value: float64(v)}, nil
	case int64:
		return CoercionResult{Value: float64(v)}, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

func coerceText(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case string:
		return CoercionResult{Value: v}, nil
	case float64:
		return CoercionResult{Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case int:
		return CoercionResult{Value: strconv.Itoa(v)}, nil
	case bool:
		return CoercionResult{Value: strconv.FormatBool(v)}, nil
	case map[string]any, []any:
		return CoercionResult{}, types.ErrCoercionFailed
	default:
		return CoercionResult{Value: fmt.Sprintf("%v", v)}, nil
	}
}

func coerceBoolean(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case bool:
		return CoercionResult{Value: v}, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return CoercionResult{Value: true}, nil
		case "false":
			return CoercionResult{Value: false}, nil
		}
	}
	return CoercionResult{}, types.ErrCoercionFailed
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	codec.DateTimeSecondsLayout,
	codec.DateTimeLayout,
	codec.DateLayout,
}

func coerceTime(value any, dt types.DataType) (CoercionResult, error) {
	s, ok := value.(string)
	if !ok {
		return CoercionResult{}, types.ErrCoercionFailed
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.UTC()
		if dt == types.DataTypeDate {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return CoercionResult{Value: t}, nil
	}
	return CoercionResult{}, types.ErrCoercionFailed
}
