// Package results persists validation runs: one row per run with its frozen
// configuration and final verdict, one row per evaluated case. The tables
// double as the audit trail, so a finished run can be inspected or
// re-aggregated without re-evaluating any model.
package results

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	config_json  TEXT NOT NULL,
	verdict_json TEXT
);

CREATE TABLE IF NOT EXISTS run_cases (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	obs_id          TEXT NOT NULL,
	candidate_z     REAL,
	reference_z     REAL,
	observed_z      REAL NOT NULL,
	delta           REAL,
	outcome         TEXT NOT NULL,
	degraded_reason TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_run_cases_run ON run_cases(run_id, obs_id);

CREATE TABLE IF NOT EXISTS run_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	state      TEXT NOT NULL,
	detail     TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region types
// RunRecord is one validation run.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	ConfigJSON string
	// VerdictJSON is empty until the run finishes.
	VerdictJSON string
}

// CaseRecord is one evaluated observation within a run.
type CaseRecord struct {
	ObsID          string
	CandidateZ     float64
	ReferenceZ     float64
	ObservedZ      float64
	Delta          float64
	Outcome        string
	DegradedReason string
}

// #endregion types

// #region store
// Store persists runs and their cases in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region begin-run
// BeginRun registers a new run with its frozen configuration and returns
// the run id.
func (s *Store) BeginRun(config any) (string, error) {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, started_at, config_json) VALUES (?, ?, ?)`,
		id, now, string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// #endregion begin-run

// #region record-cases
// RecordCases appends a batch of case rows to a run in one transaction.
func (s *Store) RecordCases(runID string, cases []CaseRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO run_cases (run_id, obs_id, candidate_z, reference_z, observed_z, delta, outcome, degraded_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range cases {
		if c.Outcome == "" {
			return fmt.Errorf("results: case %s has no outcome", c.ObsID)
		}
		_, err := stmt.Exec(runID, c.ObsID, c.CandidateZ, c.ReferenceZ, c.ObservedZ,
			c.Delta, c.Outcome, c.DegradedReason, now)
		if err != nil {
			return fmt.Errorf("insert case %s: %w", c.ObsID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion record-cases

// #region finish-run
// FinishRun stamps the run finished and stores the verdict.
func (s *Store) FinishRun(runID string, verdict any) error {
	vJSON, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, verdict_json = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), string(vJSON), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("results: run %s not found", runID)
	}
	return nil
}

// #endregion finish-run

// #region queries
// GetRun returns one run by id.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	var started string
	var finished, verdict sql.NullString
	err := s.db.QueryRow(
		`SELECT run_id, started_at, finished_at, config_json, verdict_json FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&rec.RunID, &started, &finished, &rec.ConfigJSON, &verdict)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("results: run %s not found", runID)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("query run: %w", err)
	}

	rec.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return RunRecord{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	rec.VerdictJSON = verdict.String
	return rec, nil
}

// ListCases returns a run's case rows ordered by observation id.
func (s *Store) ListCases(runID string) ([]CaseRecord, error) {
	rows, err := s.db.Query(
		`SELECT obs_id, candidate_z, reference_z, observed_z, delta, outcome, degraded_reason
		 FROM run_cases WHERE run_id = ? ORDER BY obs_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		var c CaseRecord
		var reason sql.NullString
		if err := rows.Scan(&c.ObsID, &c.CandidateZ, &c.ReferenceZ, &c.ObservedZ,
			&c.Delta, &c.Outcome, &reason); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.DegradedReason = reason.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetRun(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// #endregion queries
