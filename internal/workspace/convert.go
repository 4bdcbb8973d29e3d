package workspace

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %T", item[0])
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case *starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}

// stringValue extracts a string from a Starlark value, or "" when the
// value is not a string.
func stringValue(v starlark.Value) string {
	if s, ok := v.(starlark.String); ok {
		return string(s)
	}
	return ""
}

// stringList extracts a list of strings, skipping non-string elements.
func stringList(v starlark.Value) []string {
	list, ok := v.(*starlark.List)
	if !ok {
		return nil
	}
	var out []string
	for i := 0; i < list.Len(); i++ {
		if s, ok := list.Index(i).(starlark.String); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// renderKwargs renders keyword arguments for invocation records.
func renderKwargs(kwargs []starlark.Tuple) map[string]string {
	if len(kwargs) == 0 {
		return nil
	}
	args := make(map[string]string, len(kwargs))
	for _, kv := range kwargs {
		key, ok := kv[0].(starlark.String)
		if !ok {
			continue
		}
		args[string(key)] = renderValue(kv[1])
	}
	return args
}

// renderValue renders a Starlark value as a display string.
func renderValue(v starlark.Value) string {
	gv, err := ToGo(v)
	if err != nil || gv == nil {
		return v.String()
	}
	switch t := gv.(type) {
	case string:
		return t
	case map[string]any:
		// Deterministic rendering for maps
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "{"
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %v", k, t[k])
		}
		return s + "}"
	default:
		return fmt.Sprint(gv)
	}
}
