// Package cli defines the gatewright command surface. Commands print
// their outcome as JSON on stdout and reserve stderr for warnings and
// progress; gate and repair verdicts travel through sentinel errors so
// Execute can map them to distinct exit codes.
package cli

import (
	"errors"
	"fmt"

	"github.com/lucasnoah/gatewright/internal/envprobe"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// Sentinel outcomes. Gates failing or a repair session escalating are
// expected terminal states, not runtime errors; Execute translates
// them to exit codes 1 and 2.
var (
	errGatesFailed = errors.New("quality gates failed")
	errEscalated   = errors.New("repair session escalated")
)

var rootCmd = &cobra.Command{
	Use:   "gatewright",
	Short: "gatewright — deterministic quality gates for Python repos",
	Long: `gatewright runs a project's quality gates (ruff lint, pyright typecheck,
pytest) as one deterministic pipeline, normalizes every failure into a
single findings schema, and renders an agent-ready brief. A bounded
repair loop applies deterministic fixes and escalates with evidence
when it cannot converge.

All state lives under .gatewright/ in the project root (JSON artifacts
plus a SQLite run history).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		probe := envprobe.NewProbe(&shell.ExecRunner{})
		for _, warning := range probe.CheckEnvironment(cmd.Name()) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[gatewright warn] %s\n", warning)
		}
	},
}

// Execute runs the CLI and returns the process exit code: 0 on
// success, 2 when a repair session escalates, 1 otherwise.
func Execute() int {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errEscalated):
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(dbCmd)
}
