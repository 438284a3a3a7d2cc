package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasnoah/gatewright/internal/orchestrator"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/lucasnoah/gatewright/internal/store"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality gates and write the findings snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		modeStr, _ := cmd.Flags().GetString("mode")
		changedPath, _ := cmd.Flags().GetString("changed-files")

		mode, err := schema.ParseRunMode(modeStr)
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}

		changed, err := store.LoadChangedFiles(resolvePath(cwd, changedPath))
		if err != nil {
			return err
		}

		// Recording is best effort; a broken history database warns
		// and the run proceeds unrecorded.
		var recorder orchestrator.Recorder
		cleanup := func() {}
		if d, dbCleanup, err := openDB(cwd); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[gatewright warn] run history unavailable: %v\n", err)
		} else {
			recorder, cleanup = d, dbCleanup
		}
		defer cleanup()

		orch := orchestrator.New(&shell.ExecRunner{}, recorder)
		orch.SetProgress(cmd.ErrOrStderr())
		out, err := orch.Run(cwd, mode, changed)
		if err != nil {
			return err
		}
		printJSON(cmd, out)

		if out.Status == schema.RunFail {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return errGatesFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("mode", "", "Gate selection: reduced or full (canary aliases reduced)")
	runCmd.Flags().String("changed-files", "", "Path to the changed-file list (JSON array or newline-delimited)")
	_ = runCmd.MarkFlagRequired("mode")
	_ = runCmd.MarkFlagRequired("changed-files")
}

// resolvePath anchors a relative flag path at the working directory.
func resolvePath(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// printJSON renders a command outcome on stdout.
func printJSON(cmd *cobra.Command, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
