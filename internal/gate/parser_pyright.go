package gate

import (
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/gatewright/internal/schema"
)

// PyrightParser parses pyright's --outputjson diagnostics into typecheck
// findings. Informational diagnostics are dropped.
type PyrightParser struct{}

type pyrightOutput struct {
	GeneralDiagnostics []pyrightDiagnostic `json:"generalDiagnostics"`
}

type pyrightDiagnostic struct {
	File     string                 `json:"file"`
	Severity string                 `json:"severity"`
	Message  string                 `json:"message"`
	Rule     string                 `json:"rule"`
	Range    map[string]interface{} `json:"range"`
}

func mapPyrightSeverity(s string) schema.Severity {
	switch s {
	case "error":
		return schema.SeverityHigh
	case "warning":
		return schema.SeverityMedium
	case "information":
		return schema.SeverityLow
	}
	return schema.SeverityMedium
}

// rangeStart pulls the 0-indexed start position out of a diagnostic range.
func rangeStart(r map[string]interface{}) (line int, character int) {
	start, _ := r["start"].(map[string]interface{})
	if l, ok := start["line"].(float64); ok {
		line = int(l)
	}
	if c, ok := start["character"].(float64); ok {
		character = int(c)
	}
	return line, character
}

func (p *PyrightParser) Parse(trace *schema.CommandTrace, cwd string) []schema.Finding {
	var out pyrightOutput
	if err := json.Unmarshal([]byte(trace.Stdout), &out); err != nil {
		return nil
	}

	findings := []schema.Finding{}
	for _, d := range out.GeneralDiagnostics {
		sev := d.Severity
		if sev == "" {
			sev = "error"
		}
		if sev == "information" {
			continue
		}

		relPath := relativize(d.File, cwd)
		// Pyright positions are 0-indexed.
		startLine, startChar := rangeStart(d.Range)
		line := startLine + 1
		col := startChar + 1

		id := fmt.Sprintf("pyright_%s_%d", relPath, line)
		summary := d.Message
		if d.Rule != "" {
			id = fmt.Sprintf("pyright_%s_%s_%d", d.Rule, relPath, line)
			summary = fmt.Sprintf("%s: %s", d.Rule, d.Message)
		}

		rangeRaw := d.Range
		if rangeRaw == nil {
			rangeRaw = map[string]interface{}{}
		}

		findings = append(findings, schema.Finding{
			ID:        id,
			Gate:      schema.GateTypecheck,
			Severity:  mapPyrightSeverity(sev),
			Summary:   summary,
			Files:     []string{relPath},
			Rule:      schema.StringPtr(d.Rule),
			Line:      schema.IntPtr(line),
			Column:    schema.IntPtr(col),
			Actual:    1,
			Threshold: 0,
			Status:    "fail",
			Raw: map[string]interface{}{
				"pyright_severity": sev,
				"range":            rangeRaw,
			},
		})
	}
	return findings
}
