package gate

import (
	"path/filepath"
	"strings"

	"github.com/lucasnoah/gatewright/internal/schema"
)

// Parser converts one gate's raw command output into normalized findings.
// Unparseable output yields no findings; the engine then falls back to a
// synthetic exit-code finding so a failed gate is never silent.
type Parser interface {
	Parse(trace *schema.CommandTrace, cwd string) []schema.Finding
}

// relativize rewrites path relative to cwd when it sits under cwd, and
// leaves it untouched otherwise.
func relativize(path string, cwd string) string {
	if path == "" || cwd == "" {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return path
	}
	return rel
}
