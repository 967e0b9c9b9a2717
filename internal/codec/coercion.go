// internal/codec/coercion.go
package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Scalar coercion for committed values.
 *
 * Strict helpers return types.ErrCoercionFailed when an input cannot become the
 * target type. Callers in codec.go decide what to do with the failure: on
 * commit the raw text is kept so partially-typed input is never lost, and
 * validation reports it before the tree leaves the editor.
 *
 * Type modes:
 *   - Numeric:  strings trimmed and parsed as float64, booleans rejected
 *   - Boolean:  bool, or "true"/"false" from the tri-state selector
 *   - Date:     YYYY-MM-DD
 *   - DateTime: YYYY-MM-DDTHH:MM (seconds accepted)
 *   - String:   lenient, everything formats to text
 */

// Input widget layouts for date values.
const (
	DateLayout            = "2006-01-02"
	DateTimeLayout        = "2006-01-02T15:04"
	DateTimeSecondsLayout = "2006-01-02T15:04:05"
)

// coerceNumeric converts value to float64.
// Accepts float64, int, int64 and numeric strings. Rejects booleans.
func coerceNumeric(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			// NaN and Inf have no JSON encoding
			return 0, types.ErrCoercionFailed
		}
		return f, nil
	default:
		return 0, types.ErrCoercionFailed
	}
}

// coerceBoolean accepts bool and the selector strings "true"/"false".
func coerceBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, types.ErrCoercionFailed
}

// coerceText converts all scalar types to their edit-buffer text.
func coerceText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseDate validates a date or datetime string against the widget layouts.
func parseDate(dt types.DataType, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if dt == types.DataTypeDate {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, types.ErrCoercionFailed
		}
		return t, nil
	}
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateTimeSecondsLayout, s)
	if err != nil {
		return time.Time{}, types.ErrCoercionFailed
	}
	return t, nil
}

// commitScalar converts one element to the canonical type for dt.
// Empty text stays "" and unparseable text is returned unchanged.
func commitScalar(dt types.DataType, value any) any {
	switch dt {
	case types.DataTypeNumeric:
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return ""
		}
		f, err := coerceNumeric(value)
		if err != nil {
			return value
		}
		return f
	case types.DataTypeDate, types.DataTypeDateTime:
		return strings.TrimSpace(coerceText(value))
	default:
		return coerceText(value)
	}
}
