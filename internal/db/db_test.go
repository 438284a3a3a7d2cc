package db

import (
	"testing"

	"github.com/lucasnoah/gatewright/internal/schema"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleMeta(runID string) *schema.RunMetadata {
	return &schema.RunMetadata{
		RunID:        runID,
		Mode:         schema.ModeFull,
		StartedAt:    "2025-01-01T12:00:00Z",
		CompletedAt:  "2025-01-01T12:00:08Z",
		DurationMs:   8000,
		ConfigSource: "defaults",
		Environment:  schema.EnvironmentInfo{PythonVersion: "3.12.1", Platform: "linux"},
	}
}

func samplePayload(runID string, status schema.RunStatus) *schema.FailuresPayload {
	p := &schema.FailuresPayload{
		Version:      schema.PayloadVersion,
		RunID:        runID,
		Mode:         schema.ModeFull,
		Status:       status,
		Timestamp:    "2025-01-01T12:00:08Z",
		Repo:         schema.StringPtr("github.com/acme/app"),
		Branch:       schema.StringPtr("main"),
		ChangedFiles: []string{"src/app.py"},
		Gates: []schema.GateResult{
			{Name: schema.GateLint, Status: schema.GateFail, DurationMs: 1200},
			{Name: schema.GateTypecheck, Status: schema.GatePass, DurationMs: 3400},
			{Name: schema.GateTest, Status: schema.GateSkipped, DurationMs: 0},
		},
	}
	if status == schema.RunFail {
		p.Findings = []schema.Finding{
			{ID: "ruff_F401_src/app.py_3_0", Gate: schema.GateLint},
			{ID: "ruff_E501_src/app.py_9_0", Gate: schema.GateLint},
		}
	} else {
		p.Gates[0].Status = schema.GatePass
	}
	return p
}

func TestMigrate(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Verify all tables exist
	tables := []string{"schema_version", "runs", "gate_results", "repair_sessions", "repair_attempts"}
	for _, table := range tables {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// Verify schema_version was recorded
	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}

	// Migrate again should be idempotent
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)

	runID := "run_20250101120000_deadbeef"
	if err := d.RecordRun(sampleMeta(runID), samplePayload(runID, schema.RunFail)); err != nil {
		t.Fatalf("record run: %v", err)
	}

	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Data should be gone
	rec, err := d.GetRun(runID)
	if err != nil {
		t.Fatalf("get run after reset: %v", err)
	}
	if rec != nil {
		t.Error("expected nil run after reset")
	}

	// Tables should still exist (re-migrated)
	var name string
	err = d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	if err != nil {
		t.Error("runs table missing after reset")
	}
}

func TestRecordRun_GetRun(t *testing.T) {
	d := testDB(t)

	runID := "run_20250101120000_deadbeef"
	if err := d.RecordRun(sampleMeta(runID), samplePayload(runID, schema.RunFail)); err != nil {
		t.Fatalf("record run: %v", err)
	}

	rec, err := d.GetRun(runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec == nil {
		t.Fatal("expected non-nil run")
	}
	if rec.RunID != runID {
		t.Errorf("run_id = %q, want %q", rec.RunID, runID)
	}
	if rec.Mode != "full" {
		t.Errorf("mode = %q, want full", rec.Mode)
	}
	if rec.Status != "fail" {
		t.Errorf("status = %q, want fail", rec.Status)
	}
	if rec.StartedAt != "2025-01-01T12:00:00Z" {
		t.Errorf("started_at = %q", rec.StartedAt)
	}
	if rec.DurationMs != 8000 {
		t.Errorf("duration_ms = %d, want 8000", rec.DurationMs)
	}
	if rec.Repo == nil || *rec.Repo != "github.com/acme/app" {
		t.Errorf("repo = %v, want github.com/acme/app", rec.Repo)
	}
	if rec.Branch == nil || *rec.Branch != "main" {
		t.Errorf("branch = %v, want main", rec.Branch)
	}
	if rec.ConfigSource != "defaults" {
		t.Errorf("config_source = %q, want defaults", rec.ConfigSource)
	}
	if rec.PythonVersion != "3.12.1" {
		t.Errorf("python_version = %q, want 3.12.1", rec.PythonVersion)
	}
	if rec.FindingCount != 2 {
		t.Errorf("finding_count = %d, want 2", rec.FindingCount)
	}
	if rec.ChangedFileCount != 1 {
		t.Errorf("changed_file_count = %d, want 1", rec.ChangedFileCount)
	}
	if rec.Timestamp == "" {
		t.Error("expected timestamp to be set")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	d := testDB(t)

	rec, err := d.GetRun("run_20990101000000_00000000")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec != nil {
		t.Error("expected nil for unrecorded run")
	}
}

func TestRecordRun_NilRepoBranch(t *testing.T) {
	d := testDB(t)

	runID := "run_20250101120000_cafebabe"
	payload := samplePayload(runID, schema.RunPass)
	payload.Repo = nil
	payload.Branch = nil
	if err := d.RecordRun(sampleMeta(runID), payload); err != nil {
		t.Fatalf("record run: %v", err)
	}

	rec, err := d.GetRun(runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rec.Repo != nil {
		t.Errorf("repo = %v, want nil", rec.Repo)
	}
	if rec.Branch != nil {
		t.Errorf("branch = %v, want nil", rec.Branch)
	}
	if rec.Status != "pass" {
		t.Errorf("status = %q, want pass", rec.Status)
	}
	if rec.FindingCount != 0 {
		t.Errorf("finding_count = %d, want 0", rec.FindingCount)
	}
}

func TestRecordRun_DuplicateRunID(t *testing.T) {
	d := testDB(t)

	runID := "run_20250101120000_deadbeef"
	if err := d.RecordRun(sampleMeta(runID), samplePayload(runID, schema.RunPass)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := d.RecordRun(sampleMeta(runID), samplePayload(runID, schema.RunPass)); err == nil {
		t.Fatal("expected error for duplicate run_id")
	}
}

func TestRecentRuns(t *testing.T) {
	d := testDB(t)

	ids := []string{
		"run_20250101120000_aaaaaaaa",
		"run_20250101130000_bbbbbbbb",
		"run_20250101140000_cccccccc",
	}
	for _, id := range ids {
		if err := d.RecordRun(sampleMeta(id), samplePayload(id, schema.RunPass)); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	runs, err := d.RecentRuns(2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first
	if runs[0].RunID != ids[2] {
		t.Errorf("runs[0] = %q, want %q", runs[0].RunID, ids[2])
	}
	if runs[1].RunID != ids[1] {
		t.Errorf("runs[1] = %q, want %q", runs[1].RunID, ids[1])
	}
}

func TestGateResults(t *testing.T) {
	d := testDB(t)

	runID := "run_20250101120000_deadbeef"
	if err := d.RecordRun(sampleMeta(runID), samplePayload(runID, schema.RunFail)); err != nil {
		t.Fatalf("record run: %v", err)
	}

	gates, err := d.GateResults(runID)
	if err != nil {
		t.Fatalf("gate results: %v", err)
	}
	if len(gates) != 3 {
		t.Fatalf("got %d gates, want 3", len(gates))
	}
	// Execution order preserved
	if gates[0].Gate != "lint" || gates[0].Status != "fail" {
		t.Errorf("gates[0] = %s/%s, want lint/fail", gates[0].Gate, gates[0].Status)
	}
	if gates[0].FindingCount != 2 {
		t.Errorf("lint finding_count = %d, want 2", gates[0].FindingCount)
	}
	if gates[0].DurationMs != 1200 {
		t.Errorf("lint duration_ms = %d, want 1200", gates[0].DurationMs)
	}
	if gates[1].Gate != "typecheck" || gates[1].Status != "pass" {
		t.Errorf("gates[1] = %s/%s, want typecheck/pass", gates[1].Gate, gates[1].Status)
	}
	if gates[1].FindingCount != 0 {
		t.Errorf("typecheck finding_count = %d, want 0", gates[1].FindingCount)
	}
	if gates[2].Gate != "test" || gates[2].Status != "skipped" {
		t.Errorf("gates[2] = %s/%s, want test/skipped", gates[2].Gate, gates[2].Status)
	}

	// Unrecorded run has no gate rows
	none, err := d.GateResults("run_20990101000000_00000000")
	if err != nil {
		t.Fatalf("gate results for unrecorded run: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d gates for unrecorded run, want 0", len(none))
	}
}

func TestLogRepairSession_RecentRepairSessions(t *testing.T) {
	d := testDB(t)

	attempts := []schema.RepairAttempt{
		{Attempt: 1, PatchLines: 6, BeforeFindings: 3, AfterFindings: 1, Improved: true, Status: "fail",
			Actions: []schema.FixAction{{RuleID: "F401", Strategy: "RUFF_AUTOFIX", Accepted: true}}},
		{Attempt: 2, PatchLines: 2, BeforeFindings: 1, AfterFindings: 0, Improved: true, Status: "pass",
			Actions: []schema.FixAction{{RuleID: "E501", Strategy: "RUFF_AUTOFIX", Accepted: true}}},
	}
	if err := d.LogRepairSession("run_20250101120000_deadbeef", "pass", "", attempts); err != nil {
		t.Fatalf("log pass session: %v", err)
	}
	if err := d.LogRepairSession("run_20250101130000_cafebabe", "escalated", "NO_IMPROVEMENT", attempts[:1]); err != nil {
		t.Fatalf("log escalated session: %v", err)
	}

	sessions, err := d.RecentRepairSessions(10)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	// Newest first
	if sessions[0].Outcome != "escalated" {
		t.Errorf("sessions[0].Outcome = %q, want escalated", sessions[0].Outcome)
	}
	if sessions[0].ReasonCode == nil || *sessions[0].ReasonCode != "NO_IMPROVEMENT" {
		t.Errorf("sessions[0].ReasonCode = %v, want NO_IMPROVEMENT", sessions[0].ReasonCode)
	}
	if sessions[0].AttemptCount != 1 {
		t.Errorf("sessions[0].AttemptCount = %d, want 1", sessions[0].AttemptCount)
	}
	if sessions[1].Outcome != "pass" {
		t.Errorf("sessions[1].Outcome = %q, want pass", sessions[1].Outcome)
	}
	if sessions[1].ReasonCode != nil {
		t.Errorf("sessions[1].ReasonCode = %v, want nil", sessions[1].ReasonCode)
	}
	if sessions[1].AttemptCount != 2 {
		t.Errorf("sessions[1].AttemptCount = %d, want 2", sessions[1].AttemptCount)
	}
}

func TestRepairAttempts(t *testing.T) {
	d := testDB(t)

	attempts := []schema.RepairAttempt{
		{Attempt: 1, PatchLines: 12, BeforeFindings: 5, AfterFindings: 6, Worsened: true, Status: "fail",
			Actions: []schema.FixAction{{RuleID: "F401"}, {RuleID: "E501"}}},
		{Attempt: 2, PatchLines: 4, BeforeFindings: 5, AfterFindings: 0, Improved: true, Status: "pass",
			Actions: []schema.FixAction{{RuleID: "F401"}}},
	}
	if err := d.LogRepairSession("run_20250101120000_deadbeef", "pass", "", attempts); err != nil {
		t.Fatalf("log session: %v", err)
	}

	sessions, err := d.RecentRepairSessions(1)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	trail, err := d.RepairAttempts(sessions[0].ID)
	if err != nil {
		t.Fatalf("repair attempts: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("got %d attempts, want 2", len(trail))
	}
	if trail[0].Attempt != 1 || !trail[0].Worsened || trail[0].Improved {
		t.Errorf("trail[0] = %+v, want attempt 1 worsened", trail[0])
	}
	if trail[0].ActionCount != 2 {
		t.Errorf("trail[0].ActionCount = %d, want 2", trail[0].ActionCount)
	}
	if trail[1].Attempt != 2 || !trail[1].Improved || trail[1].Status != "pass" {
		t.Errorf("trail[1] = %+v, want attempt 2 improved pass", trail[1])
	}
	if trail[1].PatchLines != 4 {
		t.Errorf("trail[1].PatchLines = %d, want 4", trail[1].PatchLines)
	}
}
