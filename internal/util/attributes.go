package util

import (
	"fmt"
	"sort"
	"strings"
)

// ParseAttributes turns key=value pairs into a map.
// Keys are trimmed; values are kept verbatim and may contain '='.
func ParseAttributes(pairs []string) (map[string]string, error) {
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAttribute, pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

// SortedKeys returns the keys of m in sorted order
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
