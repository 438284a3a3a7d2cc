// Package brief turns a findings snapshot into the agent-facing
// summary: a ranked action list as JSON and an equivalent markdown
// document. Building a brief is pure; callers own all I/O.
package brief

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/schema"
)

//go:embed templates/agent-brief.md
var briefTemplate string

// gateActions maps each gate to its fixed next-step instruction.
var gateActions = map[schema.GateName]string{
	schema.GateLint:      "Apply targeted ruff fixes and re-run lint deterministically.",
	schema.GateTypecheck: "Resolve Pyright type errors for impacted files and re-run typecheck.",
	schema.GateTest:      "Fix failing tests and ensure pytest passes.",
}

const escalationMessage = "Escalate with evidence packet if bounded repair loop cannot clear deterministic failures."

// scopeForFiles derives an action's blast radius from its file count.
func scopeForFiles(files []string) schema.ActionScope {
	switch {
	case len(files) == 1:
		return schema.ScopeSingleFile
	case len(files) <= 3:
		return schema.ScopeMultiFile
	default:
		return schema.ScopeCrossModule
	}
}

// Summarize builds an AgentBrief from a failures payload and the active
// retry policy.
func Summarize(failures *schema.FailuresPayload, policy config.Policy) *schema.AgentBrief {
	actions := []schema.PriorityAction{}
	for _, f := range failures.Findings {
		actionText, ok := gateActions[f.Gate]
		if !ok {
			actionText = fmt.Sprintf("Address %s failure.", f.Gate)
		}
		actions = append(actions, schema.PriorityAction{
			FindingID:   f.ID,
			Action:      actionText,
			Scope:       scopeForFiles(f.Files),
			TargetFiles: f.Files,
			Rationale:   fmt.Sprintf("%s failed deterministically. Address this before any inferred optimizations.", f.Gate),
		})
	}

	summary := "All deterministic gates passed."
	escalation := &schema.EscalationInfo{Required: false}
	if failures.Status != schema.RunPass {
		summary = fmt.Sprintf("%d deterministic finding(s) require repair.", len(failures.Findings))
		escalation = &schema.EscalationInfo{
			Required:   true,
			ReasonCode: schema.StringPtr(schema.CodeUnresolvedDeterministic),
			Message:    schema.StringPtr(escalationMessage),
		}
	}

	return &schema.AgentBrief{
		RunID:           failures.RunID,
		Mode:            failures.Mode,
		Status:          failures.Status,
		Summary:         summary,
		PriorityActions: actions,
		RetryPolicy: schema.RetryPolicy{
			MaxAttempts:          policy.MaxAttempts,
			MaxPatchLines:        policy.MaxPatchLines,
			AbortOnNoImprovement: policy.AbortOnNoImprovement,
		},
		Escalation: escalation,
	}
}

// RenderMarkdown renders the human-readable twin of a brief.
func RenderMarkdown(b *schema.AgentBrief) (string, error) {
	vars := Vars{
		"run_id":                  b.RunID,
		"mode":                    string(b.Mode),
		"status":                  string(b.Status),
		"summary":                 b.Summary,
		"findings_section":        findingsSection(b.PriorityActions),
		"max_attempts":            strconv.Itoa(b.RetryPolicy.MaxAttempts),
		"max_patch_lines":         strconv.Itoa(b.RetryPolicy.MaxPatchLines),
		"abort_on_no_improvement": strconv.Itoa(b.RetryPolicy.AbortOnNoImprovement),
		"escalation_section":      escalationSection(b.Escalation),
	}
	return Render(briefTemplate, vars)
}

// findingsSection pre-formats the Findings & Actions block, one entry
// per priority action. Empty when the run passed.
func findingsSection(actions []schema.PriorityAction) string {
	if len(actions) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Findings & Actions\n\n")
	for _, a := range actions {
		sb.WriteString(fmt.Sprintf("### `%s`\n", a.FindingID))
		sb.WriteString(fmt.Sprintf("- **Action:** %s\n", a.Action))
		sb.WriteString(fmt.Sprintf("- **Scope:** %s\n", a.Scope))
		if len(a.TargetFiles) > 0 {
			sb.WriteString(fmt.Sprintf("- **Files:** %s\n", strings.Join(a.TargetFiles, ", ")))
		}
		sb.WriteString(fmt.Sprintf("- **Rationale:** %s\n", a.Rationale))
		sb.WriteString("\n")
	}
	return sb.String()
}

// escalationSection pre-formats the Escalation block.
func escalationSection(e *schema.EscalationInfo) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Escalation\n\n")
	sb.WriteString(fmt.Sprintf("- Required: %t\n", e.Required))
	if e.ReasonCode != nil {
		sb.WriteString(fmt.Sprintf("- Reason: %s\n", *e.ReasonCode))
	}
	if e.Message != nil {
		sb.WriteString(fmt.Sprintf("- Message: %s\n", *e.Message))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
