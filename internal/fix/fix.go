// Package fix runs the deterministic remediation prefix: safe ruff
// autofixes followed by formatting, scoped to the files implicated by
// the current findings.
package fix

import (
	"regexp"
	"strings"

	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
)

const (
	strategyName = "deterministic_prefix"
	maxFiles     = 20
)

var excludedDirs = regexp.MustCompile(`(^|/)(\.(gatewright|git|venv|tox|nox)|__pycache__|dist|build|node_modules)(/|$)`)

// eligible accepts repo-relative Python paths outside excluded
// directories. Absolute paths and traversal are rejected outright.
func eligible(path string) bool {
	if !strings.HasSuffix(path, ".py") {
		return false
	}
	if excludedDirs.MatchString(path) {
		return false
	}
	return !strings.HasPrefix(path, "/") && !strings.Contains(path, "..")
}

// scopedFiles orders changed files ahead of finding files, first seen
// wins, capped at maxFiles.
func scopedFiles(failures *schema.FailuresPayload) []string {
	seen := map[string]bool{}
	var files []string

	add := func(path string) {
		if seen[path] || !eligible(path) {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, f := range failures.ChangedFiles {
		add(f)
	}
	for _, finding := range failures.Findings {
		for _, f := range finding.Files {
			add(f)
		}
	}

	if len(files) > maxFiles {
		files = files[:maxFiles]
	}
	return files
}

// Engine applies the deterministic fix prefix.
type Engine struct {
	cmd shell.Runner
}

func NewEngine(cmd shell.Runner) *Engine {
	return &Engine{cmd: cmd}
}

// Apply runs the fix prefix against cwd and reports every command
// attempted, accepted or not. Without a lint finding there is nothing
// ruff can fix, so no commands run at all.
func (e *Engine) Apply(cwd string, failures *schema.FailuresPayload) []schema.FixAction {
	actions := []schema.FixAction{}

	hasLintFailure := false
	for _, finding := range failures.Findings {
		if finding.Gate == schema.GateLint {
			hasLintFailure = true
			break
		}
	}
	if !hasLintFailure {
		return actions
	}

	scoped := scopedFiles(failures)
	if len(scoped) == 0 {
		return actions
	}

	quoted := make([]string, len(scoped))
	for i, f := range scoped {
		quoted[i] = shell.Quote(f)
	}
	fileArgs := strings.Join(quoted, " ")

	// Ruff exits 1 when unfixable issues remain, which still counts as
	// a successful application of the safe fixes.
	fixTrace := e.cmd.Run(shell.Opts{Command: "ruff check --fix " + fileArgs, Dir: cwd})
	actions = append(actions, schema.FixAction{
		RuleID:    "RUFF_AUTOFIX",
		Strategy:  strategyName,
		Accepted:  fixTrace.ExitCode == 0 || fixTrace.ExitCode == 1,
		Command:   fixTrace.Command,
		ExitCode:  fixTrace.ExitCode,
		Files:     scoped,
		Rationale: "Apply safe ruff fixes on scoped files to clear auto-fixable lint issues.",
	})

	fmtTrace := e.cmd.Run(shell.Opts{Command: "ruff format " + fileArgs, Dir: cwd})
	actions = append(actions, schema.FixAction{
		RuleID:    "RUFF_FORMAT",
		Strategy:  strategyName,
		Accepted:  fmtTrace.ExitCode == 0,
		Command:   fmtTrace.Command,
		ExitCode:  fmtTrace.ExitCode,
		Files:     scoped,
		Rationale: "Apply ruff formatting on scoped files.",
	})

	return actions
}
