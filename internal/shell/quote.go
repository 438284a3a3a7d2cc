package shell

import (
	"regexp"
	"strings"
)

var safeArg = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// Quote escapes a string for safe use as a single sh word. Strings made
// of safe characters pass through unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeArg.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
