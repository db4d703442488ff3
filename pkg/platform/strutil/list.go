// Package strutil holds small string helpers shared by configuration parsing.
package strutil

import "strings"

// SplitList splits a separated list such as "a:9092, b:9092," into its
// trimmed, deduplicated, non-empty elements. Order is preserved.
func SplitList(s, sep string) []string {
	return DedupeAndTrim(strings.Split(s, sep))
}

// DedupeAndTrim trims each value and drops empties and repeats. The result
// is never nil, so callers can range over it or compare with len.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
