// Package repair drives the bounded repair loop: checkpoint the
// workspace, apply the deterministic fix prefix, re-measure, and either
// converge on a passing run or escalate with evidence. Every budget
// comes from the active policy.
package repair

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/fix"
	"github.com/lucasnoah/gatewright/internal/gitio"
	"github.com/lucasnoah/gatewright/internal/orchestrator"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/lucasnoah/gatewright/internal/store"
)

// Measurer re-executes the run and summarize phases after a fix pass.
// *orchestrator.Orchestrator satisfies it.
type Measurer interface {
	Run(cwd string, mode schema.RunMode, changedFiles []string) (*orchestrator.RunOutcome, error)
	Summarize(cwd, inputPath string) (*orchestrator.SummarizeOutcome, error)
}

type fixer interface {
	Apply(cwd string, failures *schema.FailuresPayload) []schema.FixAction
}

type differ interface {
	Snapshot(cwd string) map[string]int
}

type checkpointer interface {
	Backup(root, backupDir string) error
	Restore(root, backupDir string) error
}

// Engine runs repair sessions.
type Engine struct {
	phases      Measurer
	fixes       fixer
	diffs       differ
	checkpoints checkpointer
	progress    io.Writer // live progress output; nil = silent
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (e *Engine) SetProgress(w io.Writer) {
	e.progress = w
}

// logf prints a progress line if a progress writer is configured.
func (e *Engine) logf(format string, args ...any) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, "  → "+format+"\n", args...)
	}
}

// New creates an Engine that measures through the given phases and
// fixes through the given command runner.
func New(phases Measurer, cmd shell.Runner) *Engine {
	return &Engine{
		phases:      phases,
		fixes:       fix.NewEngine(cmd),
		diffs:       &gitDiff{git: &gitio.ExecGit{}},
		checkpoints: treeCheckpoint{},
	}
}

// Opts parameterizes one repair session.
type Opts struct {
	Cwd       string
	InputPath string
	// MaxAttempts overrides the policy's attempt budget when set.
	MaxAttempts *int
}

// Outcome is the terminal result of a repair session: a convergence
// report or an escalation, never both. RunID names the snapshot the
// session set out to repair, and Attempts carries the audit trail in
// either case.
type Outcome struct {
	RunID      string
	Attempts   []schema.RepairAttempt
	Report     *schema.RepairReport
	Escalation *schema.Escalation
}

// Converged reports whether the session cleared every finding.
func (o *Outcome) Converged() bool { return o.Report != nil }

// Artifact returns whichever terminal record was produced, for
// rendering.
func (o *Outcome) Artifact() any {
	if o.Report != nil {
		return o.Report
	}
	return o.Escalation
}

// Repair runs the loop against the findings snapshot at opts.InputPath.
// Each attempt checkpoints the workspace, applies deterministic fixes,
// re-measures, and rolls back any attempt that made things worse. The
// loop stops on a passing run, an exceeded budget, or stagnation.
func (e *Engine) Repair(opts Opts) (*Outcome, error) {
	st := store.New(opts.Cwd)
	if err := st.EnsureStateDir(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadValidated(opts.Cwd)
	if err != nil {
		return nil, err
	}
	maxAttempts := cfg.Policy.MaxAttempts
	if opts.MaxAttempts != nil {
		maxAttempts = *opts.MaxAttempts
	}

	failures, err := store.ReadFailures(opts.InputPath)
	if err != nil {
		return nil, err
	}

	runID := failures.RunID
	previousCount := len(failures.Findings)
	noImprovement := 0
	attempts := []schema.RepairAttempt{}
	started := time.Now()
	mode := failures.Mode

	e.logf("repair session for %s: %d finding(s), budget %d attempt(s)", runID, previousCount, maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		elapsed := time.Since(started)
		if elapsed.Seconds() > float64(cfg.Policy.TimeCapSeconds) {
			e.logf("time cap reached after %ds, escalating", int(elapsed.Seconds()))
			return escalate(st, runID, attempts, schema.CodeUnknownBlocker,
				fmt.Sprintf("Time cap reached (%ds).", cfg.Policy.TimeCapSeconds),
				map[string]any{"elapsed_seconds": int(elapsed.Seconds())})
		}

		backupDir := st.BackupDir(attempt)
		if err := e.checkpoints.Backup(opts.Cwd, backupDir); err != nil {
			return nil, fmt.Errorf("checkpointing attempt %d: %w", attempt, err)
		}

		before := e.diffs.Snapshot(opts.Cwd)

		actions := e.fixes.Apply(opts.Cwd, failures)
		e.logf("attempt %d/%d: applied %d fix action(s)", attempt, maxAttempts, len(actions))

		// A first attempt with no applicable fixes still re-measures;
		// later ones escalate instead of burning the budget.
		if len(actions) == 0 && attempt > 1 {
			e.logf("no applicable fixes remain, escalating")
			return escalate(st, runID, attempts, schema.CodeNoImprovement,
				fmt.Sprintf("No applicable fix strategies for remaining %d finding(s).", previousCount),
				map[string]any{
					"attempts":             attempts,
					"latest_failures_path": st.FailuresPath(),
					"remaining_gates":      remainingGates(failures),
				})
		}

		after := e.diffs.Snapshot(opts.Cwd)
		patchLines := ComputePatchLines(before, after)

		if patchLines > cfg.Policy.MaxPatchLines {
			e.logf("patch budget exceeded (%d > %d), rolling back and escalating", patchLines, cfg.Policy.MaxPatchLines)
			if err := e.checkpoints.Restore(opts.Cwd, backupDir); err != nil {
				return nil, fmt.Errorf("rolling back attempt %d: %w", attempt, err)
			}
			return escalate(st, runID, attempts, schema.CodePatchBudgetExceeded,
				fmt.Sprintf("Patch exceeded budget: %d lines > %d max.", patchLines, cfg.Policy.MaxPatchLines),
				map[string]any{
					"attempt":         attempt,
					"patch_lines":     patchLines,
					"max_patch_lines": cfg.Policy.MaxPatchLines,
				})
		}

		rerun, err := e.phases.Run(opts.Cwd, mode, failures.ChangedFiles)
		if err != nil {
			return nil, fmt.Errorf("re-running gates: %w", err)
		}
		if _, err := e.phases.Summarize(opts.Cwd, rerun.FailuresPath); err != nil {
			return nil, fmt.Errorf("regenerating brief: %w", err)
		}
		rerunFailures, err := store.ReadFailures(rerun.FailuresPath)
		if err != nil {
			return nil, err
		}
		currentCount := len(rerunFailures.Findings)
		e.logf("re-measured: %d -> %d finding(s), %d patch line(s)", previousCount, currentCount, patchLines)

		improved := currentCount < previousCount
		worsened := currentCount > previousCount

		attempts = append(attempts, schema.RepairAttempt{
			Attempt:        attempt,
			PatchLines:     patchLines,
			BeforeFindings: previousCount,
			AfterFindings:  currentCount,
			Improved:       improved,
			Worsened:       worsened,
			Status:         string(rerun.Status),
			Actions:        actions,
		})

		if rerun.Status == schema.RunPass {
			e.logf("converged: gates pass after %d attempt(s)", attempt)
			report := &schema.RepairReport{Status: "pass", Attempts: attempts}
			if err := store.WriteJSON(st.RepairReportPath(), report); err != nil {
				return nil, err
			}
			return &Outcome{RunID: runID, Attempts: attempts, Report: report}, nil
		}

		if worsened {
			// Roll back and keep measuring against the pre-attempt
			// findings; the rolled-back state is what the next attempt
			// starts from.
			e.logf("attempt %d worsened the tree, rolling back", attempt)
			if err := e.checkpoints.Restore(opts.Cwd, backupDir); err != nil {
				return nil, fmt.Errorf("rolling back attempt %d: %w", attempt, err)
			}
		} else {
			previousCount = currentCount
			failures = rerunFailures
		}

		if improved {
			noImprovement = 0
		} else {
			noImprovement++
		}

		if noImprovement >= cfg.Policy.AbortOnNoImprovement {
			e.logf("no improvement for %d consecutive attempt(s), escalating", noImprovement)
			return escalate(st, runID, attempts, schema.CodeNoImprovement,
				fmt.Sprintf("No measurable improvement for %d consecutive attempt(s).", noImprovement),
				map[string]any{
					"attempts":             attempts,
					"latest_failures_path": st.FailuresPath(),
				})
		}
	}

	e.logf("attempt budget exhausted, escalating")
	return escalate(st, runID, attempts, schema.CodeUnknownBlocker,
		fmt.Sprintf("Attempts exhausted (%d).", maxAttempts),
		map[string]any{"latest_failures_path": st.FailuresPath()})
}

// escalate writes the terminal escalation artifact and wraps it in an
// Outcome.
func escalate(st *store.Store, runID string, attempts []schema.RepairAttempt, code, message string, evidence map[string]any) (*Outcome, error) {
	esc := schema.NewEscalation(code, message, evidence)
	if err := store.WriteJSON(st.EscalationPath(), esc); err != nil {
		return nil, err
	}
	return &Outcome{RunID: runID, Attempts: attempts, Escalation: esc}, nil
}

// remainingGates lists the distinct gates still failing, sorted for
// stable evidence output.
func remainingGates(failures *schema.FailuresPayload) []string {
	seen := map[string]bool{}
	gates := []string{}
	for _, f := range failures.Findings {
		g := string(f.Gate)
		if !seen[g] {
			seen[g] = true
			gates = append(gates, g)
		}
	}
	sort.Strings(gates)
	return gates
}
