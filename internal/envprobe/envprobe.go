// Package envprobe inspects the host toolchain and fingerprints the
// Python environment for run metadata. Probes degrade instead of
// failing: a missing tool produces a warning or an empty field, never
// an aborted run.
package envprobe

import (
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
)

const (
	versionTimeout     = 10 * time.Second
	packageListTimeout = 30 * time.Second
)

// Probe answers questions about the host toolchain and the Python
// environment the gates will run against.
type Probe struct {
	cmd      shell.Runner
	lookPath func(file string) (string, error)
}

// NewProbe returns a Probe backed by PATH lookup and real command
// execution.
func NewProbe(cmd shell.Runner) *Probe {
	return &Probe{cmd: cmd, lookPath: exec.LookPath}
}

// CommandExists reports whether name resolves on PATH.
func (p *Probe) CommandExists(name string) bool {
	_, err := p.lookPath(name)
	return err == nil
}

// CheckEnvironment returns tool-presence warnings for the given
// subcommand. Git is wanted everywhere for repo metadata; the run
// phase additionally needs ruff and pyright.
func (p *Probe) CheckEnvironment(command string) []string {
	var warnings []string
	if !p.CommandExists("git") {
		warnings = append(warnings, "git not found: repo metadata will be unavailable")
	}
	if command == "run" {
		if !p.CommandExists("ruff") {
			warnings = append(warnings, "ruff not found: lint gate will fail")
		}
		if !p.CommandExists("pyright") {
			warnings = append(warnings, "pyright not found: typecheck gate will fail")
		}
	}
	return warnings
}

// Capture fingerprints the Python environment for run metadata.
func (p *Probe) Capture(cwd string) schema.EnvironmentInfo {
	return schema.EnvironmentInfo{
		PythonVersion:     p.pythonVersion(cwd),
		Platform:          runtime.GOOS,
		Virtualenv:        schema.StringPtr(os.Getenv("VIRTUAL_ENV")),
		Resolver:          p.resolver(),
		InstalledPackages: p.installedPackages(cwd),
	}
}

// pythonVersion asks the interpreter itself. Older interpreters print
// the version banner on stderr, so both streams are checked.
func (p *Probe) pythonVersion(cwd string) string {
	for _, exe := range []string{"python3", "python"} {
		if !p.CommandExists(exe) {
			continue
		}
		trace := p.cmd.Run(shell.Opts{Command: exe + " --version", Dir: cwd, Timeout: versionTimeout})
		if trace.ExitCode != 0 {
			continue
		}
		out := strings.TrimSpace(trace.Stdout)
		if out == "" {
			out = strings.TrimSpace(trace.Stderr)
		}
		if out != "" {
			return strings.TrimPrefix(out, "Python ")
		}
	}
	return "unknown"
}

func (p *Probe) resolver() *string {
	for _, name := range []string{"uv", "poetry", "pip"} {
		if p.CommandExists(name) {
			return schema.StringPtr(name)
		}
	}
	return nil
}

func (p *Probe) installedPackages(cwd string) map[string]string {
	for _, command := range []string{"uv pip list --format json", "pip list --format json"} {
		exe := strings.Fields(command)[0]
		if !p.CommandExists(exe) {
			continue
		}
		trace := p.cmd.Run(shell.Opts{Command: command, Dir: cwd, Timeout: packageListTimeout})
		if trace.ExitCode != 0 || strings.TrimSpace(trace.Stdout) == "" {
			continue
		}
		var rows []struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal([]byte(trace.Stdout), &rows); err != nil {
			continue
		}
		packages := make(map[string]string, len(rows))
		for _, row := range rows {
			if row.Name == "" {
				continue
			}
			packages[row.Name] = row.Version
		}
		return packages
	}
	return map[string]string{}
}
