package config

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"dario.cat/mergo"
)

// Merge overlays stored values on top of defaults. Stored values win field
// by field, fields missing from stored fall back to the default and stored
// keys unknown to the defaults are kept. Null stored values count as
// missing. Stored numbers are converted to the default's numeric type when
// that is lossless.
func Merge(defaults, stored map[string]any) (map[string]any, error) {
	merged := Clone(defaults)
	if merged == nil {
		merged = make(map[string]any)
	}

	overlay := make(map[string]any, len(stored))
	for k, v := range stored {
		if v == nil {
			continue
		}
		overlay[k] = matchNumeric(defaults[k], cloneValue(v))
	}

	if err := mergo.Merge(&merged, overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	// mergo keeps a non-empty destination slice; stored lists win here too.
	for k, v := range overlay {
		if reflect.ValueOf(v).Kind() == reflect.Slice {
			merged[k] = v
		}
	}

	return merged, nil
}

// Clone returns a deep copy of m.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}

	if m, ok := AsMap(v); ok {
		return Clone(m)
	}
	return v
}

// AsMap converts any map keyed by strings into a map[string]any.
func AsMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// ToFloat reports the numeric value of v. Numeric strings count.
func ToFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func isNumber(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := ToFloat(v)
	return ok
}

// ValuesEqual compares two configuration values, treating numbers of
// different Go types as equal when their values match.
func ValuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		return fa == fb
	}
	return reflect.DeepEqual(normalizeForCompare(a), normalizeForCompare(b))
}

func normalizeForCompare(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeForCompare(item)
		}
		return out
	}
	if isNumber(v) {
		f, _ := ToFloat(v)
		return f
	}
	return v
}

// matchNumeric converts a decoded JSON number to the type used by the
// default value, so an int default stays an int after a round trip.
func matchNumeric(def, v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch def.(type) {
	case int:
		if f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
			return int(f)
		}
	case int64:
		if f == math.Trunc(f) {
			return int64(f)
		}
	}
	return v
}
