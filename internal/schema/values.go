package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IsEmpty reports whether v counts as “not answered”: nil, a blank string,
// an empty collection, or a map/list whose every member is itself empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		for _, s := range t {
			if !IsEmpty(s) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range t {
			if !IsEmpty(e) {
				return false
			}
		}
		return true
	case []map[string]any:
		for _, e := range t {
			if !IsEmpty(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range t {
			if !IsEmpty(e) {
				return false
			}
		}
		return true
	case map[string]string:
		for _, e := range t {
			if !IsEmpty(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AsMap normalises the map shapes that arrive from JSON, YAML, and form
// decoding into map[string]any.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// AsList normalises slice shapes into []any.
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []map[string]string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// AsString converts scalars to their trimmed string form.  Composite values
// report false.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// AsStrings returns every string held by v, which may be a single value or a
// list.  Used for checkbox answers and for matching conditions.
func AsStrings(v any) []string {
	if s, ok := AsString(v); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	list, ok := AsList(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := AsString(e); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseAmount reads a money or plain number.  It tolerates a leading pound
// sign, thousands separators, and surrounding spaces, so “£1,250.50” and
// 1250.5 both parse.
func ParseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "£")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsInt reads an integer-valued scalar.
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}
