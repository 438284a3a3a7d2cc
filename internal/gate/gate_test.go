package gate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
)

// mockCmd records calls and returns configured traces.
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
	r := m.results[m.callIdx]
	m.callIdx++
	r.Command = opts.Command
	r.Cwd = opts.Dir
	return r
}

func trace(exitCode int, stdout string, stderr string) *schema.CommandTrace {
	return &schema.CommandTrace{
		StartedAt:  "2025-01-01T12:00:00+00:00",
		DurationMs: 120,
		ExitCode:   exitCode,
		Stdout:     stdout,
		Stderr:     stderr,
	}
}

func TestPlan_ReducedSkipsTest(t *testing.T) {
	plan := Plan(schema.ModeReduced, config.Gates{})
	if len(plan) != 3 {
		t.Fatalf("len(plan) = %d, want 3", len(plan))
	}
	if plan[0].Name != schema.GateLint || !plan[0].Enabled {
		t.Errorf("plan[0] = %+v, want enabled lint", plan[0])
	}
	if plan[1].Name != schema.GateTypecheck || !plan[1].Enabled {
		t.Errorf("plan[1] = %+v, want enabled typecheck", plan[1])
	}
	if plan[2].Name != schema.GateTest || plan[2].Enabled {
		t.Errorf("plan[2] = %+v, want disabled test", plan[2])
	}
}

func TestPlan_FullRunsTest(t *testing.T) {
	plan := Plan(schema.ModeFull, config.Gates{})
	if !plan[2].Enabled {
		t.Error("test gate should be enabled in full mode")
	}
}

func TestPlan_TestInReducedOptIn(t *testing.T) {
	plan := Plan(schema.ModeReduced, config.Gates{TestInReduced: true})
	if !plan[2].Enabled {
		t.Error("test gate should be enabled when test_in_reduced is set")
	}
}

func TestResolveCommand_Defaults(t *testing.T) {
	if got := ResolveCommand(schema.GateLint, nil, "/repo"); got != "ruff check --output-format json --exclude .gatewright ." {
		t.Errorf("lint command = %q", got)
	}
	if got := ResolveCommand(schema.GateTypecheck, nil, "/repo"); got != "pyright --outputjson ." {
		t.Errorf("typecheck command = %q", got)
	}
	got := ResolveCommand(schema.GateTest, nil, "/repo")
	want := "pytest --json-report --json-report-file=/repo/.gatewright/pytest-report.json -q"
	if got != want {
		t.Errorf("test command = %q, want %q", got, want)
	}
}

func TestResolveCommand_QuotesReportPath(t *testing.T) {
	got := ResolveCommand(schema.GateTest, nil, "/my repo")
	if !strings.Contains(got, "'/my repo/.gatewright/pytest-report.json'") {
		t.Errorf("report path with spaces should be quoted, got %q", got)
	}
}

func TestResolveCommand_ConfigOverride(t *testing.T) {
	commands := map[string]string{"lint": "ruff check src"}
	if got := ResolveCommand(schema.GateLint, commands, "/repo"); got != "ruff check src" {
		t.Errorf("override = %q", got)
	}
	// Other gates keep their defaults.
	if got := ResolveCommand(schema.GateTypecheck, commands, "/repo"); got != "pyright --outputjson ." {
		t.Errorf("typecheck = %q", got)
	}
}

func TestEngine_RunAll_AllPass(t *testing.T) {
	mock := &mockCmd{
		results: []*schema.CommandTrace{
			trace(0, "", ""),
			trace(0, "", ""),
			trace(0, "", ""),
		},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeFull, config.Default())

	if len(out.Gates) != 3 {
		t.Fatalf("len(Gates) = %d, want 3", len(out.Gates))
	}
	for _, g := range out.Gates {
		if g.Status != schema.GatePass {
			t.Errorf("gate %s status = %q, want pass", g.Name, g.Status)
		}
	}
	if len(out.Findings) != 0 {
		t.Errorf("Findings = %v, want none", out.Findings)
	}
	if len(out.Traces) != 3 {
		t.Errorf("len(Traces) = %d, want 3", len(out.Traces))
	}
	if len(mock.calls) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(mock.calls))
	}
	if mock.calls[0].Dir != "/repo" {
		t.Errorf("dir = %q, want /repo", mock.calls[0].Dir)
	}
}

func TestEngine_RunAll_SkippedGateHasNoTrace(t *testing.T) {
	mock := &mockCmd{
		results: []*schema.CommandTrace{
			trace(0, "", ""),
			trace(0, "", ""),
		},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeReduced, config.Default())

	if len(out.Gates) != 3 {
		t.Fatalf("len(Gates) = %d, want 3", len(out.Gates))
	}
	testGate := out.Gates[2]
	if testGate.Name != schema.GateTest || testGate.Status != schema.GateSkipped {
		t.Errorf("test gate = %+v, want skipped", testGate)
	}
	if testGate.DurationMs != 0 {
		t.Errorf("skipped gate duration = %d, want 0", testGate.DurationMs)
	}
	if len(out.Traces) != 2 {
		t.Errorf("len(Traces) = %d, want 2 (no trace for skipped gate)", len(out.Traces))
	}
	if len(mock.calls) != 2 {
		t.Errorf("expected 2 commands, got %d", len(mock.calls))
	}
}

func TestEngine_RunAll_FallbackFindingOnUnparseableFailure(t *testing.T) {
	mock := &mockCmd{
		results: []*schema.CommandTrace{
			trace(2, "ruff exploded", "Traceback (most recent call last):\n  boom"),
			trace(0, "", ""),
		},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeReduced, config.Default())

	if len(out.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1 fallback finding", len(out.Findings))
	}
	f := out.Findings[0]
	if f.ID != "lint_exit_2" {
		t.Errorf("ID = %q, want lint_exit_2", f.ID)
	}
	if f.Gate != schema.GateLint {
		t.Errorf("Gate = %q", f.Gate)
	}
	if f.Severity != schema.SeverityHigh {
		t.Errorf("Severity = %q, want high", f.Severity)
	}
	if f.Summary != "lint command failed with exit code 2" {
		t.Errorf("Summary = %q", f.Summary)
	}
	if f.Actual != 2 || f.Threshold != 0 {
		t.Errorf("Actual/Threshold = %v/%v", f.Actual, f.Threshold)
	}
	if f.Raw["command"] != "ruff check --output-format json --exclude .gatewright ." {
		t.Errorf("raw command = %v", f.Raw["command"])
	}
	if f.Raw["stdout_excerpt"] != "ruff exploded" {
		t.Errorf("raw stdout_excerpt = %v", f.Raw["stdout_excerpt"])
	}
	if !strings.Contains(f.Raw["stderr_excerpt"].(string), "Traceback") {
		t.Errorf("raw stderr_excerpt = %v", f.Raw["stderr_excerpt"])
	}

	if out.Gates[0].Status != schema.GateFail {
		t.Errorf("lint gate status = %q, want fail", out.Gates[0].Status)
	}
}

func TestEngine_RunAll_ParsedFindingsBeatFallback(t *testing.T) {
	ruffJSON := `[{"code": "F401", "filename": "/repo/src/app.py", "location": {"row": 3, "column": 1}, "message": "unused import", "fix": null, "url": null}]`
	mock := &mockCmd{
		results: []*schema.CommandTrace{
			trace(1, ruffJSON, ""),
			trace(0, "", ""),
		},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeReduced, config.Default())

	if len(out.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1", len(out.Findings))
	}
	if out.Findings[0].ID != "ruff_F401_src/app.py_3_0" {
		t.Errorf("ID = %q, want parsed ruff finding, not fallback", out.Findings[0].ID)
	}
}

func TestEngine_RunAll_FailedGateDurationFromTrace(t *testing.T) {
	tr := trace(1, "garbage", "")
	tr.DurationMs = 432
	mock := &mockCmd{
		results: []*schema.CommandTrace{tr, trace(0, "", "")},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeReduced, config.Default())
	if out.Gates[0].DurationMs != 432 {
		t.Errorf("DurationMs = %d, want 432", out.Gates[0].DurationMs)
	}
}

func TestEngine_RunAll_ExcerptCapped(t *testing.T) {
	var lines []string
	for i := 0; i < 45; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	mock := &mockCmd{
		results: []*schema.CommandTrace{
			trace(2, "", strings.Join(lines, "\n")),
			trace(0, "", ""),
		},
	}
	engine := NewEngine(mock)

	out := engine.RunAll("/repo", schema.ModeReduced, config.Default())

	stderrExcerpt := out.Findings[0].Raw["stderr_excerpt"].(string)
	got := strings.Split(stderrExcerpt, "\n")
	if len(got) != 30 {
		t.Errorf("excerpt has %d lines, want 30", len(got))
	}
	if got[0] != "line 0" || got[29] != "line 29" {
		t.Errorf("excerpt boundaries wrong: first=%q last=%q", got[0], got[29])
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("", 30); got != "" {
		t.Errorf("excerpt(empty) = %q", got)
	}
	if got := excerpt("one\ntwo\n", 30); got != "one\ntwo" {
		t.Errorf("excerpt(short) = %q", got)
	}
	if got := excerpt("a\nb\nc", 2); got != "a\nb" {
		t.Errorf("excerpt(capped) = %q", got)
	}
}
