package validation

import (
	"encoding/json"
	"reflect"
	"strings"
)

// normalize turns "true"/"false" strings into booleans and every numeric
// type into float64, so values decoded from YAML task files compare equal to
// values decoded from model JSON.
func normalize(v any) any {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "true":
			return true
		case "false":
			return false
		}
		return s
	}
	return canonical(v)
}

func canonical(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonical(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonical(e)
		}
		return out
	}
	return v
}

func equalValues(actual, want any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(want))
}

// containsValue reports whether actual satisfies a containment check. Strings
// match by case-insensitive substring; lists require every wanted item to be
// present in any order. For a failed list check it returns the missing items.
func containsValue(actual, want any) ([]any, bool) {
	if ws, ok := want.(string); ok {
		if as, ok := actual.(string); ok {
			return nil, strings.Contains(strings.ToLower(as), strings.ToLower(ws))
		}
		return nil, equalValues(actual, want)
	}
	wantList, wok := canonical(want).([]any)
	actualList, aok := canonical(actual).([]any)
	if wok && aok {
		var missing []any
		for _, item := range wantList {
			if !listHas(actualList, item) {
				missing = append(missing, item)
			}
		}
		return missing, len(missing) == 0
	}
	return nil, equalValues(actual, want)
}

// stepContains is the sequence-step containment rule: substring for strings,
// equality for everything else.
func stepContains(actual, want any) bool {
	ws, wok := want.(string)
	as, aok := actual.(string)
	if wok && aok {
		return strings.Contains(strings.ToLower(as), strings.ToLower(ws))
	}
	return equalValues(actual, want)
}

func listHas(list []any, item any) bool {
	if s, ok := item.(string); ok {
		for _, e := range list {
			if es, ok := e.(string); ok && strings.EqualFold(es, s) {
				return true
			}
		}
		return false
	}
	for _, e := range list {
		if equalValues(e, item) {
			return true
		}
	}
	return false
}

func presentNonEmpty(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

func updateMaskPaths(args map[string]any) []string {
	mask, ok := args["update_mask"].(map[string]any)
	if !ok {
		return nil
	}
	raw, _ := mask["paths"].([]any)
	paths := make([]string, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			paths = append(paths, s)
		}
	}
	return paths
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
