// Package journal is an append-only SQLite log of scenario runs and their
// events. It is written during a run and read only by inspection tools;
// nothing is loaded back into a simulation.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/process-panel/internal/logging"
)

// MemoryPath opens a journal that lives only as long as the process.
const MemoryPath = ":memory:"

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	label       TEXT,
	config_json TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	summary     TEXT
);

CREATE TABLE IF NOT EXISTS run_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	at_seconds  REAL NOT NULL,
	detail      TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id, id);
`

// #endregion schema

// #region store-struct
// Store manages the run journal in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. An empty path or
// MemoryPath gives an in-memory journal.
func NewStore(dbPath string) (*Store, error) {
	memory := dbPath == "" || dbPath == MemoryPath
	if memory {
		dbPath = MemoryPath
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: pragmas are per connection, and each :memory:
	// connection is a separate database.
	db.SetMaxOpenConns(1)
	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region runs
// BeginRun opens a new run with a fresh ID.
func (s *Store) BeginRun(label, configJSON string) (RunRecord, error) {
	rec := RunRecord{
		RunID:      uuid.New().String(),
		Label:      label,
		ConfigJSON: configJSON,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, label, config_json, started_at) VALUES (?, ?, ?, ?)`,
		rec.RunID, nullIfEmpty(label), nullIfEmpty(configJSON), rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// FinishRun closes a run and stores its debrief.
func (s *Store) FinishRun(runID, summary string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, summary = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), nullIfEmpty(summary), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, label, config_json, started_at, finished_at, summary
		 FROM runs WHERE run_id = ?`, runID,
	)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, label, config_json, started_at, finished_at, summary
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var label, configJSON, finishedStr, summary sql.NullString
	var startedStr string
	if err := row.Scan(&rec.RunID, &label, &configJSON, &startedStr, &finishedStr, &summary); err != nil {
		return RunRecord{}, err
	}
	rec.Label = label.String
	rec.ConfigJSON = configJSON.String
	rec.Summary = summary.String
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if finishedStr.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
	}
	return rec, nil
}

// #endregion runs

// #region events
// Record appends one event to a run.
func (s *Store) Record(runID string, ev logging.Event) error {
	return logging.LogEvent(s.db, logging.Entry{
		RunID:  runID,
		Kind:   ev.Kind,
		At:     ev.At,
		Detail: ev.Detail,
	})
}

// sinkBuffer bounds the events waiting to be written for one run.
const sinkBuffer = 256

// EventWriter journals one run's events from a background goroutine, so
// Emit never waits on SQLite. When the buffer is full the event is dropped
// and counted. Write failures are logged and dropped too.
type EventWriter struct {
	store *Store
	runID string
	log   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan logging.Event
	done    chan struct{}
	dropped atomic.Int64
}

// Sink starts an EventWriter for runID. Close it before FinishRun so every
// buffered event is on disk.
func (s *Store) Sink(runID string, log *slog.Logger) *EventWriter {
	w := &EventWriter{
		store:  s,
		runID:  runID,
		log:    logging.OrDiscard(log),
		events: make(chan logging.Event, sinkBuffer),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *EventWriter) loop() {
	defer close(w.done)
	for ev := range w.events {
		if err := w.store.Record(w.runID, ev); err != nil {
			w.log.Warn("journal write failed", "run_id", w.runID, "kind", string(ev.Kind), "err", err)
		}
	}
}

// Emit implements logging.Sink. Events emitted after Close are dropped.
func (w *EventWriter) Emit(ev logging.Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}
	select {
	case w.events <- ev:
	default:
		w.dropped.Add(1)
		w.log.Warn("journal buffer full, event dropped", "run_id", w.runID, "kind", string(ev.Kind))
	}
}

// Close stops accepting events and waits for the buffered ones to be
// written. It returns how many events were dropped. Close is idempotent.
func (w *EventWriter) Close() int {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()
	<-w.done
	return int(w.dropped.Load())
}

// ListEvents returns a run's events in the order they were written.
func (s *Store) ListEvents(runID string) ([]EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, kind, at_seconds, detail, created_at
		 FROM run_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		var kind, createdStr string
		var atSeconds float64
		var detail sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &kind, &atSeconds, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ev.Kind = logging.EventKind(kind)
		ev.At = time.Duration(math.Round(atSeconds * float64(time.Second)))
		ev.Detail = detail.String
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// #endregion events

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
