package orchestrator

import (
	"fmt"
	"time"

	"github.com/lucasnoah/gatewright/internal/config"
	"github.com/lucasnoah/gatewright/internal/schema"
	"github.com/lucasnoah/gatewright/internal/store"
)

// RunOutcome is the run phase result the CLI prints.
type RunOutcome struct {
	Status       schema.RunStatus `json:"status"`
	FailuresPath string           `json:"failures_path"`
	MetadataPath string           `json:"metadata_path"`
	RunID        string           `json:"run_id"`
}

// Run executes the deterministic gates against cwd and persists
// failures.json and run-metadata.json under the state directory. The
// run fails (status fail) exactly when the gates produced findings.
func (o *Orchestrator) Run(cwd string, mode schema.RunMode, changedFiles []string) (*RunOutcome, error) {
	st := store.New(cwd)
	if err := st.EnsureStateDir(); err != nil {
		return nil, err
	}

	runID := newRunID()
	startedAt := time.Now().UTC().Format(time.RFC3339)
	start := time.Now()

	cfg, err := config.LoadValidated(cwd)
	if err != nil {
		return nil, err
	}
	environment := o.env.Capture(cwd)

	o.logf("run %s: %s mode, %d changed file(s)", runID, mode, len(changedFiles))
	outcome := o.gates.RunAll(cwd, mode, cfg)

	status := schema.RunPass
	if len(outcome.Findings) > 0 {
		status = schema.RunFail
	}
	o.logf("gates complete: %s, %d finding(s)", status, len(outcome.Findings))
	repo, branch := o.gitInfo(cwd)

	hints := make([]schema.InferredHint, 0, len(outcome.Findings))
	for _, f := range outcome.Findings {
		hints = append(hints, schema.InferredHint{
			FindingID:  f.ID,
			Hint:       fmt.Sprintf("Start with the deterministic gate failure in %s. Inspect command output in run-metadata traces.", f.Gate),
			Confidence: schema.ConfidenceLow,
		})
	}

	if changedFiles == nil {
		changedFiles = []string{}
	}

	failures := &schema.FailuresPayload{
		Version:       schema.PayloadVersion,
		RunID:         runID,
		Mode:          mode,
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Repo:          repo,
		Branch:        branch,
		ChangedFiles:  changedFiles,
		Gates:         outcome.Gates,
		Findings:      outcome.Findings,
		InferredHints: hints,
	}

	metadata := &schema.RunMetadata{
		RunID:         runID,
		Mode:          mode,
		StartedAt:     startedAt,
		CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		DurationMs:    int(time.Since(start).Milliseconds()),
		ConfigSource:  cfg.Source,
		Environment:   environment,
		CommandTraces: outcome.Traces,
	}

	if err := store.WriteJSON(st.FailuresPath(), failures); err != nil {
		return nil, err
	}
	if err := store.WriteJSON(st.RunMetadataPath(), metadata); err != nil {
		return nil, err
	}

	if o.recorder != nil {
		_ = o.recorder.RecordRun(metadata, failures)
	}

	return &RunOutcome{
		Status:       status,
		FailuresPath: st.FailuresPath(),
		MetadataPath: st.RunMetadataPath(),
		RunID:        runID,
	}, nil
}
