// Package store manages the project-local .gatewright state directory:
// artifact paths, JSON payload round-trips, and changed-file manifests.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/gatewright/internal/schema"
)

const (
	// Dir is the state directory created inside the target project.
	Dir = ".gatewright"

	FailuresFile     = "failures.json"
	RunMetadataFile  = "run-metadata.json"
	AgentBriefJSON   = "agent-brief.json"
	AgentBriefMD     = "agent-brief.md"
	RepairReportFile = "repair-report.json"
	EscalationFile   = "escalation.json"
	PytestReportFile = "pytest-report.json"
	HistoryDBFile    = "history.db"
)

// Store resolves artifact paths under one project root.
type Store struct {
	root string
}

// New creates a Store for the project rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the project root directory.
func (s *Store) Root() string {
	return s.root
}

// StateDir returns the .gatewright directory for this project.
func (s *Store) StateDir() string {
	return filepath.Join(s.root, Dir)
}

// EnsureStateDir creates the state directory if it does not exist.
func (s *Store) EnsureStateDir() error {
	dir := s.StateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

func (s *Store) FailuresPath() string     { return filepath.Join(s.StateDir(), FailuresFile) }
func (s *Store) RunMetadataPath() string  { return filepath.Join(s.StateDir(), RunMetadataFile) }
func (s *Store) BriefJSONPath() string    { return filepath.Join(s.StateDir(), AgentBriefJSON) }
func (s *Store) BriefMDPath() string      { return filepath.Join(s.StateDir(), AgentBriefMD) }
func (s *Store) RepairReportPath() string { return filepath.Join(s.StateDir(), RepairReportFile) }
func (s *Store) EscalationPath() string   { return filepath.Join(s.StateDir(), EscalationFile) }
func (s *Store) PytestReportPath() string { return filepath.Join(s.StateDir(), PytestReportFile) }
func (s *Store) HistoryDBPath() string    { return filepath.Join(s.StateDir(), HistoryDBFile) }

// BackupDir returns the checkpoint directory for one repair attempt.
func (s *Store) BackupDir(attempt int) string {
	return filepath.Join(s.StateDir(), fmt.Sprintf("backup-attempt-%d", attempt))
}

// ReadFailures loads a failures payload, normalizes legacy mode aliases,
// and validates it. All violations are reported, not just the first.
func ReadFailures(path string) (*schema.FailuresPayload, error) {
	var p schema.FailuresPayload
	if err := ReadJSON(path, &p); err != nil {
		return nil, fmt.Errorf("reading failures payload: %w", err)
	}
	p.Mode = schema.NormalizeMode(p.Mode)
	if errs := p.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid failures payload %s: %s", path, strings.Join(msgs, "; "))
	}
	return &p, nil
}
