// Package orchestrator wires the gate engine, environment probe, git
// identity, and artifact store into the run and summarize phases.
package orchestrator

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/envprobe"
	"github.com/lucasnoah/gatewright/internal/gate"
	"github.com/lucasnoah/gatewright/internal/gitio"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
)

// gateRunner abstracts the gate engine for tests.
type gateRunner interface {
	RunAll(cwd string, mode schema.RunMode, cfg *config.Config) *gate.Outcome
}

// environment abstracts the host probe for tests.
type environment interface {
	CommandExists(name string) bool
	Capture(cwd string) schema.EnvironmentInfo
}

// Recorder persists run history. Recording is best effort: a broken
// database never fails a phase.
type Recorder interface {
	RecordRun(meta *schema.RunMetadata, failures *schema.FailuresPayload) error
}

// Orchestrator composes the run and summarize phases.
type Orchestrator struct {
	gates    gateRunner
	env      environment
	git      gitio.Runner
	recorder Recorder
	progress io.Writer // live progress output; nil = silent
}

// New creates an Orchestrator backed by real command execution. A nil
// recorder disables history recording.
func New(cmd shell.Runner, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		gates:    gate.NewEngine(cmd),
		env:      envprobe.NewProbe(cmd),
		git:      &gitio.ExecGit{},
		recorder: recorder,
	}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.progress = w
}

// logf prints a progress line if a progress writer is configured.
func (o *Orchestrator) logf(format string, args ...any) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, "  → "+format+"\n", args...)
	}
}

// gitInfo returns the remote URL and branch, or nils when git is
// unavailable or the repo has neither.
func (o *Orchestrator) gitInfo(cwd string) (*string, *string) {
	if !o.env.CommandExists("git") {
		return nil, nil
	}
	repo := schema.StringPtr(gitio.RemoteURL(o.git, cwd))
	branch := schema.StringPtr(gitio.Branch(o.git, cwd))
	return repo, branch
}

// newRunID returns run_{UTC seconds}_{4 random bytes hex}. The clock
// component keeps ids sortable; the suffix keeps same-second runs
// distinct.
func newRunID() string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("run_%s_%x", time.Now().UTC().Format("20060102150405"), suffix)
}
