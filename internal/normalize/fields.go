package normalize

import (
	"fmt"
	"strconv"
)

// fieldText reads one displayable value out of a loosely-typed payload
// field: a non-empty list yields its first element; a record exposing
// the canonical "word" property yields that property; anything else is
// stringified.
func fieldText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		if len(t) == 0 {
			return ""
		}
		return fieldText(t[0])
	case map[string]interface{}:
		if w, ok := t["word"]; ok {
			return stringify(w)
		}
		return stringify(t)
	default:
		return stringify(v)
	}
}

// fieldList returns the text of every element of a list-valued field,
// used for per-line-item commodity columns; scalar values degrade to a
// single-element list.
func fieldList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fieldText(item))
		}
		return out
	default:
		if s := fieldText(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; keep integers clean
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
