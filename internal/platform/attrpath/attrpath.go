// Package attrpath reads and writes dotted attribute paths over nested
// attribute maps, distinguishing absent values from zero values.
package attrpath

import (
	"encoding/json"
	"strings"
)

// Lookup resolves a dotted path (e.g. "attributes.hp.value") within data.
// The second result reports whether every segment resolved; an absent path
// is not the same as a path holding zero.
func Lookup(data map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || data == nil {
		return nil, false
	}

	var current any = data
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// Number resolves a dotted path to a numeric value.
func Number(data map[string]any, path string) (float64, bool) {
	value, ok := Lookup(data, path)
	if !ok {
		return 0, false
	}
	return coerce(value)
}

// NumberOr resolves a dotted path to a numeric value, returning fallback when
// the path is absent or non-numeric.
func NumberOr(data map[string]any, path string, fallback float64) float64 {
	if value, ok := Number(data, path); ok {
		return value
	}
	return fallback
}

// Set writes value at a dotted path within patch, creating intermediate maps
// as needed. It is used to build partial updates, never to mutate snapshots.
func Set(patch map[string]any, path string, value any) {
	path = strings.TrimSpace(path)
	if path == "" || patch == nil {
		return
	}

	segments := strings.Split(path, ".")
	node := patch
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

func coerce(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
