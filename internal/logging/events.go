// Package logging writes the run event trail: one row per pipeline state
// transition, kept alongside the run it belongs to so a verdict can be
// audited after the fact.
package logging

// #region imports
import (
	"database/sql"
	"fmt"
	"time"
)

// #endregion

// #region types
// EventEntry is one pipeline transition within a run.
type EventEntry struct {
	RunID     string
	State     string
	Detail    string
	CreatedAt time.Time
}

// #endregion types

// #region log-event
// LogEvent appends an entry to the run_events table.
func LogEvent(db *sql.DB, entry EventEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO run_events (run_id, state, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		entry.RunID,
		entry.State,
		nullIfEmpty(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion log-event

// #region list-events
// ListEvents returns a run's transitions in insertion order.
func ListEvents(db *sql.DB, runID string) ([]EventEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, state, detail, created_at FROM run_events
		 WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventEntry
	for rows.Next() {
		var e EventEntry
		var detail sql.NullString
		var created string
		if err := rows.Scan(&e.RunID, &e.State, &detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Detail = detail.String
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
