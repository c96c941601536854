package identity

import "strings"

// NormalizeUsername trims and lower-cases a username. The normalized
// form is what the unique username_norm column stores and what login
// identifier lookups compare against.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail trims and lower-cases an email address for the same
// uniqueness and lookup purposes as NormalizeUsername.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
