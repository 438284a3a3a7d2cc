// Package gitio shells out to git for the two things the tool needs:
// best-effort repo identity and patch-size measurement. A missing or
// failing git never blocks a run.
package gitio

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner provides git commands. Interface for testing.
type Runner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements Runner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RemoteURL returns origin's URL, or "" when unset or git fails.
func RemoteURL(git Runner, dir string) string {
	out, err := git.Run(dir, "config", "--get", "remote.origin.url")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Branch returns the abbreviated HEAD ref, or "" when git fails.
func Branch(git Runner, dir string) string {
	out, err := git.Run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// numstatExcludes keeps state and environment churn out of patch-size
// accounting.
var numstatExcludes = []string{
	":(exclude).gatewright",
	":(exclude)__pycache__",
	":(exclude).venv",
}

// DiffNumstat returns added+removed line counts per touched file from
// git diff --numstat. Binary files report "-" and count as zero. Any
// git failure yields an empty map.
func DiffNumstat(git Runner, dir string) map[string]int {
	args := append([]string{"diff", "--numstat", "--", "."}, numstatExcludes...)
	out, err := git.Run(dir, args...)
	if err != nil {
		return map[string]int{}
	}

	result := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		result[parts[2]] = numstatCount(parts[0]) + numstatCount(parts[1])
	}
	return result
}

func numstatCount(field string) int {
	if field == "-" {
		return 0
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0
	}
	return n
}
