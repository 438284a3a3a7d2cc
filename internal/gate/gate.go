// Package gate runs the deterministic quality gates (ruff lint, pyright
// typecheck, pytest) and normalizes their output into findings. The
// findings list, not raw exit codes, is what downstream phases consume.
package gate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/lucasnoah/gatewright/internal/store"
)

// exitExcerptLines caps the stdout/stderr carried by a fallback finding.
const exitExcerptLines = 30

// PlannedGate pairs a gate with whether this run executes it.
type PlannedGate struct {
	Name    schema.GateName
	Enabled bool
}

// Plan returns the gate order for a run. Lint and typecheck always run;
// the test gate runs in full mode or when the config opts reduced runs in.
func Plan(mode schema.RunMode, gates config.Gates) []PlannedGate {
	return []PlannedGate{
		{Name: schema.GateLint, Enabled: true},
		{Name: schema.GateTypecheck, Enabled: true},
		{Name: schema.GateTest, Enabled: mode == schema.ModeFull || gates.TestInReduced},
	}
}

// ResolveCommand returns the command for a gate: the config override if
// present, otherwise the built-in default.
func ResolveCommand(gateName schema.GateName, commands map[string]string, cwd string) string {
	if cmd, ok := commands[string(gateName)]; ok {
		return cmd
	}
	switch gateName {
	case schema.GateLint:
		return "ruff check --output-format json --exclude " + store.Dir + " ."
	case schema.GateTypecheck:
		return "pyright --outputjson ."
	case schema.GateTest:
		report := filepath.Join(cwd, store.Dir, store.PytestReportFile)
		return fmt.Sprintf("pytest --json-report --json-report-file=%s -q", shell.Quote(report))
	}
	return ""
}

// Outcome carries everything one pass over the gates produced.
type Outcome struct {
	Gates    []schema.GateResult
	Findings []schema.Finding
	Traces   []schema.CommandTrace
}

// Engine executes planned gates and parses their output.
type Engine struct {
	cmd     shell.Runner
	parsers map[schema.GateName]Parser
}

// NewEngine creates an Engine backed by the given command runner.
func NewEngine(cmd shell.Runner) *Engine {
	return &Engine{
		cmd: cmd,
		parsers: map[schema.GateName]Parser{
			schema.GateLint:      &RuffParser{},
			schema.GateTypecheck: &PyrightParser{},
			schema.GateTest:      &PytestParser{},
		},
	}
}

// RunAll executes the gate plan in order. Disabled gates are recorded as
// skipped without a trace. A failing gate that parses to zero findings
// still contributes a synthetic exit-code finding.
func (e *Engine) RunAll(cwd string, mode schema.RunMode, cfg *config.Config) *Outcome {
	out := &Outcome{
		Gates:    []schema.GateResult{},
		Findings: []schema.Finding{},
		Traces:   []schema.CommandTrace{},
	}

	for _, pg := range Plan(mode, cfg.Gates) {
		if !pg.Enabled {
			out.Gates = append(out.Gates, schema.GateResult{
				Name:   pg.Name,
				Status: schema.GateSkipped,
			})
			continue
		}

		cmd := ResolveCommand(pg.Name, cfg.Commands, cwd)
		trace := e.cmd.Run(shell.Opts{Command: cmd, Dir: cwd})
		out.Traces = append(out.Traces, *trace)

		if trace.ExitCode != 0 {
			findings := e.parsers[pg.Name].Parse(trace, cwd)
			if len(findings) == 0 {
				findings = []schema.Finding{exitCodeFinding(pg.Name, trace)}
			}
			out.Findings = append(out.Findings, findings...)
			out.Gates = append(out.Gates, schema.GateResult{
				Name:       pg.Name,
				Status:     schema.GateFail,
				DurationMs: trace.DurationMs,
			})
		} else {
			out.Gates = append(out.Gates, schema.GateResult{
				Name:       pg.Name,
				Status:     schema.GatePass,
				DurationMs: trace.DurationMs,
			})
		}
	}
	return out
}

// exitCodeFinding preserves evidence when a gate fails without parseable
// output (tool crash, misconfiguration, missing binary).
func exitCodeFinding(gateName schema.GateName, trace *schema.CommandTrace) schema.Finding {
	return schema.Finding{
		ID:        fmt.Sprintf("%s_exit_%d", gateName, trace.ExitCode),
		Gate:      gateName,
		Severity:  schema.SeverityHigh,
		Summary:   fmt.Sprintf("%s command failed with exit code %d", gateName, trace.ExitCode),
		Files:     []string{},
		Actual:    trace.ExitCode,
		Threshold: 0,
		Status:    "fail",
		Raw: map[string]interface{}{
			"command":        trace.Command,
			"stderr_excerpt": excerpt(trace.Stderr, exitExcerptLines),
			"stdout_excerpt": excerpt(trace.Stdout, exitExcerptLines),
		},
	}
}

// excerpt keeps the first maxLines lines of s.
func excerpt(s string, maxLines int) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}
