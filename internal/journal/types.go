package journal

import (
	"time"

	"github.com/danielpatrickdp/process-panel/internal/logging"
)

// #region run-record
// RunRecord is one scenario run in the journal.
type RunRecord struct {
	RunID      string
	Label      string
	ConfigJSON string
	StartedAt  time.Time
	FinishedAt time.Time // zero until FinishRun
	Summary    string
}

// Finished reports whether the run was closed with a summary.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// #endregion run-record

// #region event-record
// EventRecord is one stored run event.
type EventRecord struct {
	ID        int64
	RunID     string
	Kind      logging.EventKind
	At        time.Duration
	Detail    string
	CreatedAt time.Time
}

// #endregion event-record
