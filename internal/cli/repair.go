package cli

import (
	"fmt"
	"os"

	"github.com/lucasnoah/gatewright/internal/orchestrator"
	"github.com/lucasnoah/gatewright/internal/repair"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Run the bounded repair loop against a findings snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")

		// 0 is a meaningful budget (escalate immediately), so only an
		// explicitly set flag overrides the policy.
		var maxAttempts *int
		if cmd.Flags().Changed("max-attempts") {
			v, _ := cmd.Flags().GetInt("max-attempts")
			maxAttempts = &v
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}

		engine := repair.New(orchestrator.New(&shell.ExecRunner{}, nil), &shell.ExecRunner{})
		engine.SetProgress(cmd.ErrOrStderr())
		out, err := engine.Repair(repair.Opts{
			Cwd:         cwd,
			InputPath:   resolvePath(cwd, input),
			MaxAttempts: maxAttempts,
		})
		if err != nil {
			return err
		}

		logRepairSession(cmd, cwd, out)
		printJSON(cmd, out.Artifact())

		if !out.Converged() {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return errEscalated
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().String("input", "", "Path to the failures snapshot to repair")
	repairCmd.Flags().Int("max-attempts", 0, "Override the policy attempt budget")
	repairCmd.Flags().Bool("deterministic-only", false, "Apply deterministic fix strategies only (currently the only strategies)")
	_ = repairCmd.MarkFlagRequired("input")
}

// logRepairSession records the session in the history database. Best
// effort: history never blocks the repair verdict.
func logRepairSession(cmd *cobra.Command, cwd string, out *repair.Outcome) {
	d, cleanup, err := openDB(cwd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[gatewright warn] run history unavailable: %v\n", err)
		return
	}
	defer cleanup()

	outcome, reason := "pass", ""
	if out.Escalation != nil {
		outcome, reason = "escalated", out.Escalation.ReasonCode
	}
	_ = d.LogRepairSession(out.RunID, outcome, reason, out.Attempts)
}
