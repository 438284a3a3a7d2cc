package envprobe

import (
	"errors"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
)

type mockCmd struct {
	calls   []shell.Opts
	results []*schema.CommandTrace
	callIdx int
}

func (m *mockCmd) Run(opts shell.Opts) *schema.CommandTrace {
	m.calls = append(m.calls, opts)
	if m.callIdx >= len(m.results) {
		return &schema.CommandTrace{Command: opts.Command, Cwd: opts.Dir}
	}
	trace := m.results[m.callIdx]
	m.callIdx++
	trace.Command = opts.Command
	trace.Cwd = opts.Dir
	return trace
}

func havePath(names ...string) func(string) (string, error) {
	onPath := map[string]bool{}
	for _, name := range names {
		onPath[name] = true
	}
	return func(name string) (string, error) {
		if onPath[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func newTestProbe(cmd shell.Runner, tools ...string) *Probe {
	return &Probe{cmd: cmd, lookPath: havePath(tools...)}
}

func TestProbe_CheckEnvironment_AllToolsPresent(t *testing.T) {
	probe := newTestProbe(&mockCmd{}, "git", "ruff", "pyright")

	if warnings := probe.CheckEnvironment("run"); len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
}

func TestProbe_CheckEnvironment_MissingGit(t *testing.T) {
	probe := newTestProbe(&mockCmd{}, "ruff", "pyright")

	warnings := probe.CheckEnvironment("summarize")
	want := []string{"git not found: repo metadata will be unavailable"}
	if !reflect.DeepEqual(warnings, want) {
		t.Fatalf("warnings = %v, want %v", warnings, want)
	}
}

func TestProbe_CheckEnvironment_RunChecksGateTools(t *testing.T) {
	probe := newTestProbe(&mockCmd{}, "git")

	warnings := probe.CheckEnvironment("run")
	want := []string{
		"ruff not found: lint gate will fail",
		"pyright not found: typecheck gate will fail",
	}
	if !reflect.DeepEqual(warnings, want) {
		t.Fatalf("warnings = %v, want %v", warnings, want)
	}
}

func TestProbe_CheckEnvironment_NonRunSkipsGateTools(t *testing.T) {
	probe := newTestProbe(&mockCmd{}, "git")

	if warnings := probe.CheckEnvironment("repair"); len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
}

func TestProbe_Capture_FullEnvironment(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "/repo/.venv")
	cmd := &mockCmd{results: []*schema.CommandTrace{
		{ExitCode: 0, Stdout: "Python 3.12.1\n"},
		{ExitCode: 0, Stdout: `[{"name": "ruff", "version": "0.8.4"}, {"name": "pytest", "version": "8.3.2"}]`},
	}}
	probe := newTestProbe(cmd, "python3", "uv")

	info := probe.Capture("/repo")

	if info.PythonVersion != "3.12.1" {
		t.Fatalf("python version = %q", info.PythonVersion)
	}
	if info.Platform != runtime.GOOS {
		t.Fatalf("platform = %q", info.Platform)
	}
	if info.Virtualenv == nil || *info.Virtualenv != "/repo/.venv" {
		t.Fatalf("virtualenv = %v", info.Virtualenv)
	}
	if info.Resolver == nil || *info.Resolver != "uv" {
		t.Fatalf("resolver = %v", info.Resolver)
	}
	wantPackages := map[string]string{"ruff": "0.8.4", "pytest": "8.3.2"}
	if !reflect.DeepEqual(info.InstalledPackages, wantPackages) {
		t.Fatalf("packages = %v, want %v", info.InstalledPackages, wantPackages)
	}

	if cmd.calls[0].Command != "python3 --version" {
		t.Fatalf("first command = %q", cmd.calls[0].Command)
	}
	if cmd.calls[1].Command != "uv pip list --format json" {
		t.Fatalf("second command = %q", cmd.calls[1].Command)
	}
	if cmd.calls[1].Timeout != 30*time.Second {
		t.Fatalf("package list timeout = %v", cmd.calls[1].Timeout)
	}
}

func TestProbe_Capture_FallsBackToPython(t *testing.T) {
	cmd := &mockCmd{results: []*schema.CommandTrace{
		{ExitCode: 0, Stderr: "Python 2.7.18\n"},
	}}
	probe := newTestProbe(cmd, "python")

	info := probe.Capture("/repo")

	if info.PythonVersion != "2.7.18" {
		t.Fatalf("python version = %q", info.PythonVersion)
	}
	if cmd.calls[0].Command != "python --version" {
		t.Fatalf("command = %q", cmd.calls[0].Command)
	}
}

func TestProbe_Capture_PipFallbackAfterBadUvOutput(t *testing.T) {
	cmd := &mockCmd{results: []*schema.CommandTrace{
		{ExitCode: 0, Stdout: "Python 3.11.9"},
		{ExitCode: 0, Stdout: "not json"},
		{ExitCode: 0, Stdout: `[{"name": "requests", "version": "2.32.0"}]`},
	}}
	probe := newTestProbe(cmd, "python3", "uv", "pip")

	info := probe.Capture("/repo")

	wantPackages := map[string]string{"requests": "2.32.0"}
	if !reflect.DeepEqual(info.InstalledPackages, wantPackages) {
		t.Fatalf("packages = %v, want %v", info.InstalledPackages, wantPackages)
	}
	if cmd.calls[2].Command != "pip list --format json" {
		t.Fatalf("third command = %q", cmd.calls[2].Command)
	}
}

func TestProbe_Capture_NoTools(t *testing.T) {
	t.Setenv("VIRTUAL_ENV", "")
	probe := newTestProbe(&mockCmd{})

	info := probe.Capture("/repo")

	if info.PythonVersion != "unknown" {
		t.Fatalf("python version = %q", info.PythonVersion)
	}
	if info.Virtualenv != nil {
		t.Fatalf("virtualenv = %v, want nil", info.Virtualenv)
	}
	if info.Resolver != nil {
		t.Fatalf("resolver = %v, want nil", info.Resolver)
	}
	if len(info.InstalledPackages) != 0 {
		t.Fatalf("packages = %v, want empty", info.InstalledPackages)
	}
}
