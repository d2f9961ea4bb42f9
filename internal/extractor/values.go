package extractor

import (
	"fmt"
	"strings"
)

// Text returns the first non-empty string found under keys. Non-string scalars are formatted.
func Text(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case nil:
		case float64, bool:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// List returns m[key] as a slice. A single non-list value becomes a one-element slice.
func List(m map[string]any, key string) []any {
	switch v := m[key].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
