package gate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasnoah/gatewright/internal/schema"
)

// RuffParser parses ruff's JSON diagnostics into lint findings.
type RuffParser struct{}

type ruffViolation struct {
	Code     string       `json:"code"`
	Filename string       `json:"filename"`
	Location ruffLocation `json:"location"`
	Message  string       `json:"message"`
	Fix      *ruffFix     `json:"fix"`
	URL      *string      `json:"url"`
}

type ruffLocation struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

type ruffFix struct {
	Applicability *string `json:"applicability"`
}

// severityForCode maps ruff rule prefixes: errors and pyflakes codes are
// high, warnings and everything else medium.
func severityForCode(code string) schema.Severity {
	if code == "" {
		return schema.SeverityMedium
	}
	switch strings.ToUpper(code[:1]) {
	case "E", "F":
		return schema.SeverityHigh
	case "W":
		return schema.SeverityMedium
	}
	return schema.SeverityMedium
}

func (p *RuffParser) Parse(trace *schema.CommandTrace, cwd string) []schema.Finding {
	var violations []ruffViolation
	if err := json.Unmarshal([]byte(trace.Stdout), &violations); err != nil {
		return nil
	}

	findings := []schema.Finding{}
	for _, v := range violations {
		relPath := relativize(v.Filename, cwd)

		var applicability interface{}
		if v.Fix != nil && v.Fix.Applicability != nil {
			applicability = *v.Fix.Applicability
		}
		var url interface{}
		if v.URL != nil {
			url = *v.URL
		}

		code := v.Code
		findings = append(findings, schema.Finding{
			// The ordinal keeps ids unique when one line trips a rule twice.
			ID:        fmt.Sprintf("ruff_%s_%s_%d_%d", code, relPath, v.Location.Row, len(findings)),
			Gate:      schema.GateLint,
			Severity:  severityForCode(code),
			Summary:   fmt.Sprintf("%s: %s", code, v.Message),
			Files:     []string{relPath},
			Rule:      &code,
			Line:      schema.IntPtr(v.Location.Row),
			Column:    schema.IntPtr(v.Location.Column),
			Actual:    trace.ExitCode,
			Threshold: 0,
			Status:    "fail",
			Raw: map[string]interface{}{
				"fix_applicability": applicability,
				"url":               url,
			},
		})
	}
	return findings
}
