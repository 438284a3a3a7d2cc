package orchestrator

import (
	"github.com/lucasnoah/gatewright/internal/brief"
	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/store"
)

// SummarizeOutcome is the summarize phase result the CLI prints.
type SummarizeOutcome struct {
	BriefJSONPath string           `json:"brief_json_path"`
	BriefMDPath   string           `json:"brief_md_path"`
	Status        schema.RunStatus `json:"status"`
}

// Summarize reads a failures snapshot and writes the agent brief pair
// (agent-brief.json and agent-brief.md) under the state directory.
func (o *Orchestrator) Summarize(cwd, inputPath string) (*SummarizeOutcome, error) {
	st := store.New(cwd)
	if err := st.EnsureStateDir(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadValidated(cwd)
	if err != nil {
		return nil, err
	}

	failures, err := store.ReadFailures(inputPath)
	if err != nil {
		return nil, err
	}

	o.logf("summarizing run %s: %d finding(s)", failures.RunID, len(failures.Findings))
	agentBrief := brief.Summarize(failures, cfg.Policy)
	markdown, err := brief.RenderMarkdown(agentBrief)
	if err != nil {
		return nil, err
	}

	if err := store.WriteJSON(st.BriefJSONPath(), agentBrief); err != nil {
		return nil, err
	}
	if err := store.WriteText(st.BriefMDPath(), markdown); err != nil {
		return nil, err
	}
	o.logf("brief written: %s", st.BriefMDPath())

	return &SummarizeOutcome{
		BriefJSONPath: st.BriefJSONPath(),
		BriefMDPath:   st.BriefMDPath(),
		Status:        agentBrief.Status,
	}, nil
}
