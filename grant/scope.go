package grant

import "strings"

// ParseScopes parses a space-separated scope string into a slice.
func ParseScopes(scopeStr string) []string {
	if scopeStr == "" {
		return nil
	}
	return strings.Fields(scopeStr)
}

// FormatScopes formats a slice of scopes into a space-separated string.
func FormatScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// HasScope reports whether scope appears in the space-separated scope
// string.
func HasScope(scopeStr, scope string) bool {
	for _, s := range ParseScopes(scopeStr) {
		if s == scope {
			return true
		}
	}
	return false
}
