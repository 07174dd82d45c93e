// Package resolve looks up values in request data by dotted path and converts
// screen-space boxes into the coordinate system of a drawing backend.
package resolve

import "strings"

// Lookup walks data along a dot-delimited path such as "customer.name".
// It reports false when the path is empty, when an intermediate node is
// missing or not a mapping, or when the value found is nil.
func Lookup(data map[string]any, path string) (any, bool) {
	if path == "" || data == nil {
		return nil, false
	}
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Items resolves path to a JSON array.
func Items(data map[string]any, path string) ([]any, bool) {
	v, ok := Lookup(data, path)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	return items, ok
}

// Field returns item[key] when item is a mapping holding a non-nil value.
func Field(item any, key string) (any, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
