package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/logging"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginAndGetRun(t *testing.T) {
	s := tempDB(t)

	rec, err := s.BeginRun("trial-1", `{"knob_step":0.1}`)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if rec.RunID == "" {
		t.Fatal("expected non-empty run ID")
	}

	got, err := s.GetRun(rec.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Label != "trial-1" || got.ConfigJSON != `{"knob_step":0.1}` {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.Finished() {
		t.Fatal("new run should not be finished")
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	s := tempDB(t)
	a, _ := s.BeginRun("", "")
	b, _ := s.BeginRun("", "")
	if a.RunID == b.RunID {
		t.Fatal("expected distinct run IDs")
	}
}

func TestFinishRun(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("", "")

	if err := s.FinishRun(rec.RunID, "=== Scenario Summary ==="); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := s.GetRun(rec.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.Finished() || got.Summary != "=== Scenario Summary ===" {
		t.Fatalf("expected finished run with summary, got %+v", got)
	}
}

func TestUnknownRun(t *testing.T) {
	s := tempDB(t)
	if err := s.FinishRun("missing", "x"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from FinishRun, got %v", err)
	}
	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from GetRun, got %v", err)
	}
}

func TestSinkRecordsEventsInOrder(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("", "")
	sink := s.Sink(rec.RunID, nil)

	sink.Emit(logging.Event{Kind: logging.EventScenarioStart})
	sink.Emit(logging.Event{Kind: logging.EventPressureDrift, At: 15 * time.Second, Detail: "from=22.2 target=45.0"})
	sink.Emit(logging.Event{Kind: logging.EventFreezeStart, At: 30 * time.Second})
	if dropped := sink.Close(); dropped != 0 {
		t.Fatalf("expected no dropped events, got %d", dropped)
	}

	events, err := s.ListEvents(rec.RunID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[1].Kind != logging.EventPressureDrift || events[1].At != 15*time.Second {
		t.Fatalf("unexpected event %+v", events[1])
	}
	if events[1].Detail != "from=22.2 target=45.0" {
		t.Fatalf("unexpected detail %q", events[1].Detail)
	}
	if events[2].Detail != "" {
		t.Fatalf("expected empty detail, got %q", events[2].Detail)
	}
}

func TestSinkDoesNotWaitForWrites(t *testing.T) {
	s := tempDB(t)
	rec, _ := s.BeginRun("", "")
	sink := s.Sink(rec.RunID, nil)

	// hold the only connection so every write has to wait
	tx, err := s.db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	start := time.Now()
	for i := 0; i < sinkBuffer+10; i++ {
		sink.Emit(logging.Event{Kind: logging.EventScenarioStart})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Emit blocked for %v", elapsed)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	dropped := sink.Close()
	if dropped == 0 {
		t.Fatal("expected overflow events to be dropped")
	}
	events, err := s.ListEvents(rec.RunID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events)+dropped != sinkBuffer+10 {
		t.Fatalf("written %d + dropped %d != emitted %d", len(events), dropped, sinkBuffer+10)
	}

	sink.Emit(logging.Event{Kind: logging.EventRecord})
	if sink.Close() != dropped+1 {
		t.Fatal("expected emit after close to be dropped")
	}
}

func TestEventsRequireKnownRun(t *testing.T) {
	s := tempDB(t)
	err := s.Record("no-such-run", logging.Event{Kind: logging.EventRecord})
	if err == nil {
		t.Fatal("expected foreign key failure for unknown run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := tempDB(t)
	first, _ := s.BeginRun("first", "")
	time.Sleep(2 * time.Millisecond)
	second, _ := s.BeginRun("second", "")

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != second.RunID || runs[1].RunID != first.RunID {
		t.Fatal("expected newest run first")
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	rec, err := s.BeginRun("mem", "")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := s.Record(rec.RunID, logging.Event{Kind: logging.EventRecord}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	events, err := s.ListEvents(rec.RunID)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 event in memory journal, got %d (%v)", len(events), err)
	}
}
