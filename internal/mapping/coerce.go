package mapping

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CoercionType names a type-normalization rule for a source field.
type CoercionType string

const (
	CoerceDate   CoercionType = "date"
	CoerceInt    CoercionType = "int"
	CoerceFloat  CoercionType = "float"
	CoerceString CoercionType = "string"
)

// DateLayout is the canonical calendar-date form stored in profiles.
const DateLayout = "2006-01-02"

// Bounds of the float64 range that converts to int64 without overflow.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

func (c CoercionType) valid() bool {
	switch c {
	case CoerceDate, CoerceInt, CoerceFloat, CoerceString:
		return true
	}
	return false
}

// apply converts v according to c. Values that cannot be converted are
// returned unchanged; non-finite numbers are dropped later by Apply.
func (c CoercionType) apply(v any) any {
	switch c {
	case CoerceDate:
		if s, ok := NormalizeDate(v); ok {
			return s
		}
		zap.L().Debug("mapping: unparseable date kept verbatim", zap.Any("value", v))
		return v
	case CoerceInt:
		if f, ok := toFloat(v); ok && f >= minInt64Float && f < maxInt64Float {
			return int64(math.Round(f))
		}
		zap.L().Debug("mapping: unconvertible int kept verbatim", zap.Any("value", v))
		return v
	case CoerceFloat:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	case CoerceString:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(toText(v))
	}
	return v
}

// NormalizeDate renders a date or timestamp as YYYY-MM-DD. The calendar date
// is taken in the value's own zone; no conversion happens. Extended-JSON
// wrappers of the form {"$date": ...} are unwrapped.
func NormalizeDate(v any) (string, bool) {
	if d, ok := dateValue(v); ok {
		return d, true
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.Format(DateLayout), true
			}
		}
	case map[string]any:
		if inner, ok := t["$date"]; ok {
			return NormalizeDate(inner)
		}
	}
	return "", false
}

func dateValue(v any) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(DateLayout), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return t.Format(DateLayout), true
	}
	return "", false
}

// timestampValue recognizes values that are unambiguously timestamps whatever
// the field name: time values, strict RFC 3339 strings and {"$date": ...}
// wrappers.
func timestampValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return "", false
		}
		return parsed.Format(DateLayout), true
	case map[string]any:
		if _, ok := t["$date"]; ok && len(t) == 1 {
			return NormalizeDate(t)
		}
		return "", false
	}
	return dateValue(v)
}

// finite reports whether v is not a NaN or infinite float.
func finite(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	}
	return true
}

func toFloat(v any) (float64, bool) {
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toText(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
