package core

import (
	"sort"
	"strings"
)

// NormalizeScopes trims, lowercases, dedupes, and sorts. Scopes compare as a
// set: idempotent and order-insensitive.
func NormalizeScopes(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

// ScopesFromString splits the space-separated wire form.
func ScopesFromString(value string) []string {
	return NormalizeScopes(strings.Fields(value))
}

func JoinScopes(scopes []string) string {
	return strings.Join(NormalizeScopes(scopes), " ")
}

func EqualScopes(left, right []string) bool {
	normalizedLeft := NormalizeScopes(left)
	normalizedRight := NormalizeScopes(right)
	if len(normalizedLeft) != len(normalizedRight) {
		return false
	}
	for i := range normalizedLeft {
		if normalizedLeft[i] != normalizedRight[i] {
			return false
		}
	}
	return true
}
