package core

import "strings"

// CleanString trims surrounding whitespace in s; pass lower=true to also
// lowercase it (emails, invite codes).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
