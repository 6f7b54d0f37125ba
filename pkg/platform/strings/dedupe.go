// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// DedupeAndTrim drops blank entries and repeats, trimming each element. Order is
// preserved.
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

// SplitList splits a comma separated value such as a broker list. Blank input
// yields nil.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(s, ","))
}
