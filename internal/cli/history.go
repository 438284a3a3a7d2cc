package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lucasnoah/gatewright/internal/analytics"
	"github.com/lucasnoah/gatewright/internal/db"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs and aggregate stats from the history database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		stats, _ := cmd.Flags().GetBool("stats")
		since, _ := cmd.Flags().GetString("since")
		format, _ := cmd.Flags().GetString("format")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}

		d, cleanup, err := openDB(cwd)
		if err != nil {
			return err
		}
		defer cleanup()

		if stats {
			return printStats(cmd, d, since, format)
		}
		return printRuns(cmd, d, limit, format)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of recent runs to show")
	historyCmd.Flags().Bool("stats", false, "Show aggregate stats instead of the run list")
	historyCmd.Flags().String("since", "", "Only include history at or after this timestamp (e.g. 2025-08-01)")
	historyCmd.Flags().String("format", "text", "Output format: text or json")
}

func printRuns(cmd *cobra.Command, d *db.DB, limit int, format string) error {
	runs, err := d.RecentRuns(limit)
	if err != nil {
		return fmt.Errorf("list recent runs: %w", err)
	}

	if format == "json" {
		printJSON(cmd, runs)
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-28s %-8s %-7s %-9s %-9s %s\n",
		"RUN", "MODE", "STATUS", "DURATION", "FINDINGS", "TIMESTAMP")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 84))
	for _, r := range runs {
		fmt.Fprintf(w, "%-28s %-8s %-7s %-9s %-9d %s\n",
			r.RunID, r.Mode, strings.ToUpper(r.Status),
			fmt.Sprintf("%dms", r.DurationMs), r.FindingCount, r.Timestamp)
	}
	return nil
}

type historyStats struct {
	GateDurations []analytics.GateDuration     `json:"gate_durations"`
	GateFailures  []analytics.GateFailureRate  `json:"gate_failure_rates"`
	Throughput    []analytics.RunThroughput    `json:"weekly_throughput"`
	Repair        *analytics.RepairConvergence `json:"repair"`
}

func printStats(cmd *cobra.Command, d *db.DB, since, format string) error {
	durations, err := analytics.QueryGateDurations(d, since)
	if err != nil {
		return fmt.Errorf("query gate durations: %w", err)
	}
	failures, err := analytics.QueryGateFailureRates(d, since)
	if err != nil {
		return fmt.Errorf("query gate failure rates: %w", err)
	}
	throughput, err := analytics.QueryRunThroughput(d, since)
	if err != nil {
		return fmt.Errorf("query run throughput: %w", err)
	}
	convergence, err := analytics.QueryRepairConvergence(d, since)
	if err != nil {
		return fmt.Errorf("query repair convergence: %w", err)
	}

	if format == "json" {
		printJSON(cmd, historyStats{
			GateDurations: durations,
			GateFailures:  failures,
			Throughput:    throughput,
			Repair:        convergence,
		})
		return nil
	}

	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "%-12s %-6s %-10s %-10s %s\n", "GATE", "RUNS", "AVG_MS", "P50_MS", "P95_MS")
	for _, g := range durations {
		fmt.Fprintf(w, "%-12s %-6d %-10.1f %-10.1f %.1f\n", g.Gate, g.Count, g.Avg, g.P50, g.P95)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", "GATE", "EXECUTED", "FAIL_PCT", "AVG_FINDINGS")
	for _, g := range failures {
		fmt.Fprintf(w, "%-12s %-10d %-10.1f %.1f\n", g.Gate, g.Executed, g.FailPct, g.AvgFindings)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s %-6s %-8s %-8s %-9s %s\n", "WEEK", "RUNS", "PASSED", "FAILED", "REDUCED", "AVG_MS")
	for _, t := range throughput {
		fmt.Fprintf(w, "%-10s %-6d %-8d %-8d %-9d %.1f\n",
			t.Period, t.Runs, t.Passed, t.Failed, t.Reduced, t.AvgDurationMs)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Repair sessions: %d (%.1f%% converged, %.1f avg attempts, %.1f avg patch lines, %.1f%% rolled back)\n",
		convergence.Sessions, convergence.ConvergedPct, convergence.AvgAttempts,
		convergence.AvgPatchLines, convergence.RollbackPct)
	codes := make([]string, 0, len(convergence.Escalations))
	for code := range convergence.Escalations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, convergence.Escalations[code])
	}
	return nil
}
