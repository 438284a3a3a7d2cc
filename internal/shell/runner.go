// Package shell executes external commands and captures their outcome
// as immutable CommandTrace records. Non-zero exit is data, not an
// error: callers own any retry policy.
package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasnoah/gatewright/internal/schema"
)

// Opts configures a single command invocation.
type Opts struct {
	Command string
	Dir     string            // working directory; empty means the process cwd
	Timeout time.Duration     // zero means no timeout
	Env     map[string]string // merged over the inherited environment
}

// Runner abstracts command execution for testability.
type Runner interface {
	Run(opts Opts) *schema.CommandTrace
}

// ExecRunner implements Runner by shelling out via sh -c.
type ExecRunner struct{}

// Run executes the command and always returns a trace. On timeout the
// trace carries exit code 1, timed_out, and whatever partial output was
// captured. Spawn-level failures degrade to exit code 1 with the error
// text in stderr.
func (e *ExecRunner) Run(opts Opts) *schema.CommandTrace {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	dir := opts.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", opts.Command)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	startedAt := time.Now().UTC().Format(time.RFC3339)
	start := time.Now()
	err := cmd.Run()
	durationMs := int(time.Since(start).Milliseconds())

	trace := &schema.CommandTrace{
		Command:    opts.Command,
		Cwd:        dir,
		StartedAt:  startedAt,
		DurationMs: durationMs,
		Stdout:     stdoutBuf.String(),
		Stderr:     stderrBuf.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		trace.ExitCode = 1
		trace.TimedOut = true
		return trace
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			trace.ExitCode = exitErr.ExitCode()
		} else {
			trace.ExitCode = 1
			if trace.Stderr == "" {
				trace.Stderr = err.Error()
			}
		}
	}
	return trace
}
