package db

import (
	"database/sql"
	"fmt"

	"github.com/lucasnoah/gatewright/internal/schema"
)

// RunRecord represents a row in the runs table.
type RunRecord struct {
	ID               int     `json:"id"`
	RunID            string  `json:"run_id"`
	Mode             string  `json:"mode"`
	Status           string  `json:"status"`
	StartedAt        string  `json:"started_at"`
	CompletedAt      string  `json:"completed_at"`
	DurationMs       int     `json:"duration_ms"`
	Repo             *string `json:"repo"`
	Branch           *string `json:"branch"`
	ConfigSource     string  `json:"config_source"`
	PythonVersion    string  `json:"python_version"`
	FindingCount     int     `json:"finding_count"`
	ChangedFileCount int     `json:"changed_file_count"`
	Timestamp        string  `json:"timestamp"`
}

// GateRecord represents a row in the gate_results table.
type GateRecord struct {
	RunID        string `json:"run_id"`
	Gate         string `json:"gate"`
	Status       string `json:"status"`
	DurationMs   int    `json:"duration_ms"`
	FindingCount int    `json:"finding_count"`
}

// RepairSessionRecord represents a row in the repair_sessions table.
type RepairSessionRecord struct {
	ID           int     `json:"id"`
	RunID        string  `json:"run_id"`
	Outcome      string  `json:"outcome"`
	ReasonCode   *string `json:"reason_code"`
	AttemptCount int     `json:"attempt_count"`
	Timestamp    string  `json:"timestamp"`
}

// RepairAttemptRecord represents a row in the repair_attempts table.
type RepairAttemptRecord struct {
	SessionID      int    `json:"session_id"`
	Attempt        int    `json:"attempt"`
	PatchLines     int    `json:"patch_lines"`
	BeforeFindings int    `json:"before_findings"`
	AfterFindings  int    `json:"after_findings"`
	Improved       bool   `json:"improved"`
	Worsened       bool   `json:"worsened"`
	Status         string `json:"status"`
	ActionCount    int    `json:"action_count"`
}

// RecordRun persists a completed run and its per-gate results in one
// transaction.
func (d *DB) RecordRun(meta *schema.RunMetadata, failures *schema.FailuresPayload) error {
	perGate := map[schema.GateName]int{}
	for _, f := range failures.Findings {
		perGate[f.Gate]++
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, mode, status, started_at, completed_at, duration_ms,
		                   repo, branch, config_source, python_version, finding_count, changed_file_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.RunID, string(meta.Mode), string(failures.Status),
		meta.StartedAt, meta.CompletedAt, meta.DurationMs,
		failures.Repo, failures.Branch, meta.ConfigSource, meta.Environment.PythonVersion,
		len(failures.Findings), len(failures.ChangedFiles),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO gate_results (run_id, gate, status, duration_ms, finding_count)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare gate insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range failures.Gates {
		if _, err := stmt.Exec(meta.RunID, string(g.Name), string(g.Status), g.DurationMs, perGate[g.Name]); err != nil {
			return fmt.Errorf("insert gate result %s: %w", g.Name, err)
		}
	}

	return tx.Commit()
}

// LogRepairSession persists a repair session and its attempt trail. An
// empty reasonCode stores NULL.
func (d *DB) LogRepairSession(runID string, outcome string, reasonCode string, attempts []schema.RepairAttempt) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var reason any
	if reasonCode != "" {
		reason = reasonCode
	}
	res, err := tx.Exec(
		`INSERT INTO repair_sessions (run_id, outcome, reason_code, attempt_count) VALUES (?, ?, ?, ?)`,
		runID, outcome, reason, len(attempts),
	)
	if err != nil {
		return fmt.Errorf("insert repair session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get session id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO repair_attempts (session_id, attempt, patch_lines, before_findings,
		                              after_findings, improved, worsened, status, action_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare attempt insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range attempts {
		if _, err := stmt.Exec(sessionID, a.Attempt, a.PatchLines, a.BeforeFindings,
			a.AfterFindings, a.Improved, a.Worsened, a.Status, len(a.Actions)); err != nil {
			return fmt.Errorf("insert attempt %d: %w", a.Attempt, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, mode, status, started_at, completed_at, duration_ms,
		        repo, branch, config_source, python_version, finding_count, changed_file_count, timestamp
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var repo, branch, configSource, pythonVersion sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Mode, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.DurationMs, &repo, &branch, &configSource, &pythonVersion,
			&r.FindingCount, &r.ChangedFileCount, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if repo.Valid {
			r.Repo = &repo.String
		}
		if branch.Valid {
			r.Branch = &branch.String
		}
		if configSource.Valid {
			r.ConfigSource = configSource.String
		}
		if pythonVersion.Valid {
			r.PythonVersion = pythonVersion.String
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRun returns the run with the given run ID, or nil if not recorded.
func (d *DB) GetRun(runID string) (*RunRecord, error) {
	row := d.conn.QueryRow(
		`SELECT id, run_id, mode, status, started_at, completed_at, duration_ms,
		        repo, branch, config_source, python_version, finding_count, changed_file_count, timestamp
		 FROM runs WHERE run_id = ?`,
		runID,
	)
	var r RunRecord
	var repo, branch, configSource, pythonVersion sql.NullString
	err := row.Scan(&r.ID, &r.RunID, &r.Mode, &r.Status, &r.StartedAt, &r.CompletedAt,
		&r.DurationMs, &repo, &branch, &configSource, &pythonVersion,
		&r.FindingCount, &r.ChangedFileCount, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if repo.Valid {
		r.Repo = &repo.String
	}
	if branch.Valid {
		r.Branch = &branch.String
	}
	if configSource.Valid {
		r.ConfigSource = configSource.String
	}
	if pythonVersion.Valid {
		r.PythonVersion = pythonVersion.String
	}
	return &r, nil
}

// GateResults returns the per-gate results recorded for a run, in gate
// execution order.
func (d *DB) GateResults(runID string) ([]GateRecord, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, gate, status, duration_ms, finding_count
		 FROM gate_results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get gate results: %w", err)
	}
	defer rows.Close()

	var records []GateRecord
	for rows.Next() {
		var g GateRecord
		if err := rows.Scan(&g.RunID, &g.Gate, &g.Status, &g.DurationMs, &g.FindingCount); err != nil {
			return nil, fmt.Errorf("scan gate result: %w", err)
		}
		records = append(records, g)
	}
	return records, rows.Err()
}

// RecentRepairSessions returns the most recent repair sessions, newest
// first.
func (d *DB) RecentRepairSessions(limit int) ([]RepairSessionRecord, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, outcome, reason_code, attempt_count, timestamp
		 FROM repair_sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list repair sessions: %w", err)
	}
	defer rows.Close()

	var records []RepairSessionRecord
	for rows.Next() {
		var s RepairSessionRecord
		var reason sql.NullString
		if err := rows.Scan(&s.ID, &s.RunID, &s.Outcome, &reason, &s.AttemptCount, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan repair session: %w", err)
		}
		if reason.Valid {
			s.ReasonCode = &reason.String
		}
		records = append(records, s)
	}
	return records, rows.Err()
}

// RepairAttempts returns the ordered attempt trail for a session.
func (d *DB) RepairAttempts(sessionID int) ([]RepairAttemptRecord, error) {
	rows, err := d.conn.Query(
		`SELECT session_id, attempt, patch_lines, before_findings, after_findings,
		        improved, worsened, status, action_count
		 FROM repair_attempts WHERE session_id = ? ORDER BY attempt`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get repair attempts: %w", err)
	}
	defer rows.Close()

	var records []RepairAttemptRecord
	for rows.Next() {
		var a RepairAttemptRecord
		if err := rows.Scan(&a.SessionID, &a.Attempt, &a.PatchLines, &a.BeforeFindings,
			&a.AfterFindings, &a.Improved, &a.Worsened, &a.Status, &a.ActionCount); err != nil {
			return nil, fmt.Errorf("scan repair attempt: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
