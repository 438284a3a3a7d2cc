package cli

import (
	"fmt"
	"os"

	"github.com/lucasnoah/gatewright/internal/orchestrator"
	"github.com/lucasnoah/gatewright/internal/shell"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Render the agent brief from a findings snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}

		orch := orchestrator.New(&shell.ExecRunner{}, nil)
		orch.SetProgress(cmd.ErrOrStderr())
		out, err := orch.Summarize(cwd, resolvePath(cwd, input))
		if err != nil {
			return err
		}
		printJSON(cmd, out)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("input", "", "Path to the failures snapshot to summarize")
	_ = summarizeCmd.MarkFlagRequired("input")
}
