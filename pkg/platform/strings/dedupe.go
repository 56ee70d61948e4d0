// Package strings holds small slice helpers for comma-separated settings.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops blanks and repeats, keeping
// first-seen order. Broker lists and CORS origins pass through here.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

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
