package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-event
// LogEvent writes a run event to the run_events table.
func LogEvent(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO run_events (run_id, kind, at_seconds, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.RunID,
		string(entry.Kind),
		entry.At.Seconds(),
		nullIfEmpty(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion log-event

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
