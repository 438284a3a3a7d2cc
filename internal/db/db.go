package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite history database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id             TEXT NOT NULL UNIQUE,
    mode               TEXT NOT NULL CHECK(mode IN ('reduced','full')),
    status             TEXT NOT NULL CHECK(status IN ('pass','fail')),
    started_at         TEXT NOT NULL,
    completed_at       TEXT NOT NULL,
    duration_ms        INTEGER NOT NULL,
    repo               TEXT,
    branch             TEXT,
    config_source      TEXT,
    python_version     TEXT,
    finding_count      INTEGER NOT NULL,
    changed_file_count INTEGER NOT NULL,
    timestamp          TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_runs_recent ON runs(timestamp DESC);

CREATE TABLE IF NOT EXISTS gate_results (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    gate          TEXT NOT NULL CHECK(gate IN ('lint','typecheck','test')),
    status        TEXT NOT NULL CHECK(status IN ('pass','fail','skipped')),
    duration_ms   INTEGER NOT NULL,
    finding_count INTEGER NOT NULL,
    timestamp     TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_gate_results_run ON gate_results(run_id);
CREATE INDEX IF NOT EXISTS idx_gate_results_gate ON gate_results(gate, status);

CREATE TABLE IF NOT EXISTS repair_sessions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    outcome       TEXT NOT NULL CHECK(outcome IN ('pass','escalated')),
    reason_code   TEXT,
    attempt_count INTEGER NOT NULL,
    timestamp     TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_repair_sessions_run ON repair_sessions(run_id);

CREATE TABLE IF NOT EXISTS repair_attempts (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      INTEGER NOT NULL REFERENCES repair_sessions(id) ON DELETE CASCADE,
    attempt         INTEGER NOT NULL,
    patch_lines     INTEGER NOT NULL,
    before_findings INTEGER NOT NULL,
    after_findings  INTEGER NOT NULL,
    improved        BOOLEAN NOT NULL,
    worsened        BOOLEAN NOT NULL,
    status          TEXT NOT NULL,
    action_count    INTEGER NOT NULL,
    timestamp       TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_repair_attempts_session ON repair_attempts(session_id, attempt);
`

// Migrate applies the database schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	tables := []string{"repair_attempts", "repair_sessions", "gate_results", "runs", "schema_version"}
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}
