package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/store"
)

// longreprMax caps the failure traceback carried in a finding's raw blob.
const longreprMax = 500

// PytestParser reads the pytest-json-report artifact. Stdout is ignored:
// the JSON report is the only machine-readable source. A missing report
// yields no findings and the engine falls back to an exit-code finding.
type PytestParser struct{}

type pytestReport struct {
	Tests []pytestTest `json:"tests"`
}

type pytestTest struct {
	NodeID  string     `json:"nodeid"`
	Outcome string     `json:"outcome"`
	Call    pytestCall `json:"call"`
}

type pytestCall struct {
	Longrepr string  `json:"longrepr"`
	Duration float64 `json:"duration"`
}

func (p *PytestParser) Parse(trace *schema.CommandTrace, cwd string) []schema.Finding {
	reportPath := filepath.Join(cwd, store.Dir, store.PytestReportFile)
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil
	}

	var report pytestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil
	}

	findings := []schema.Finding{}
	for _, test := range report.Tests {
		if test.Outcome != "failed" && test.Outcome != "error" {
			continue
		}

		nodeID := test.NodeID
		longrepr := test.Call.Longrepr

		filePart := nodeID
		if idx := strings.Index(nodeID, "::"); idx >= 0 {
			filePart = nodeID[:idx]
		}

		safeID := strings.NewReplacer("::", "_", "/", "_", ".", "_").Replace(nodeID)

		truncated := longrepr
		if len(longrepr) > longreprMax {
			truncated = longrepr[:longreprMax] + "..."
		}

		summary := fmt.Sprintf("%s failed", nodeID)
		if longrepr != "" {
			firstLine := strings.SplitN(longrepr, "\n", 2)[0]
			if len(firstLine) > 200 {
				firstLine = firstLine[:200]
			}
			if firstLine != "" {
				summary = fmt.Sprintf("%s: %s", nodeID, firstLine)
			}
		}

		files := []string{}
		if filePart != "" {
			files = []string{filePart}
		}

		findings = append(findings, schema.Finding{
			ID:        fmt.Sprintf("pytest_%s", safeID),
			Gate:      schema.GateTest,
			Severity:  schema.SeverityHigh,
			Summary:   summary,
			Files:     files,
			Actual:    "failed",
			Threshold: "passed",
			Status:    "fail",
			Raw: map[string]interface{}{
				"longrepr": truncated,
				"duration": test.Call.Duration,
				"outcome":  test.Outcome,
			},
		})
	}
	return findings
}
