package scenario

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/eval"
	"github.com/danielpatrickdp/process-panel/internal/plant"
)

// #region state
// State is the scenario's position in its record cycle.
type State int

const (
	Idle State = iota
	CountingDown
	WaitingForRecord
	Complete
)

// String returns the human-readable name for a state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountingDown:
		return "counting down"
	case WaitingForRecord:
		return "waiting for record"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// #endregion state

// #region config
// Config holds the record cadence.
type Config struct {
	RecordInterval    time.Duration `json:"record_interval" yaml:"record_interval"`
	RecordsToComplete int           `json:"records_to_complete" yaml:"records_to_complete"`
	FreezeAfterRecord int           `json:"freeze_after_record" yaml:"freeze_after_record"` // 0 disables the panel freeze
	SummaryDelay      time.Duration `json:"summary_delay" yaml:"summary_delay"`             // lets the final log line be read first
}

// DefaultConfig returns the three-record scenario.
func DefaultConfig() Config {
	return Config{
		RecordInterval:    15 * time.Second,
		RecordsToComplete: 3,
		FreezeAfterRecord: 2,
		SummaryDelay:      2 * time.Second,
	}
}

// Validate fails on non-positive cadence values.
func (c Config) Validate() error {
	if c.RecordInterval <= 0 {
		return fmt.Errorf("record_interval must be positive, got %v", c.RecordInterval)
	}
	if c.RecordsToComplete <= 0 {
		return fmt.Errorf("records_to_complete must be positive, got %d", c.RecordsToComplete)
	}
	if c.FreezeAfterRecord < 0 {
		return fmt.Errorf("freeze_after_record must be non-negative, got %d", c.FreezeAfterRecord)
	}
	if c.SummaryDelay < 0 {
		return fmt.Errorf("summary_delay must be non-negative, got %v", c.SummaryDelay)
	}
	return nil
}

// #endregion config

// #region record
// Record is one operator recording.
type Record struct {
	Index    int
	At       time.Duration // scenario-relative
	AllGreen bool
	Gauges   []eval.Metric
	Reason   string
}

// GaugePass reports the gauge verdict for r, and whether a gauge for r was
// present in the record.
func (r Record) GaugePass(reading plant.Reading) (pass, ok bool) {
	for _, m := range r.Gauges {
		if m.Reading == reading {
			return m.Pass, true
		}
	}
	return false, false
}

// #endregion record

// #region collaborators
// Plant is the process surface the scenario reads and resets.
type Plant interface {
	eval.RangeChecker
	ResetToNormal()
	TemperatureInRange() bool
}

// Sequencer is the anomaly schedule restarted at every scenario start.
type Sequencer interface {
	Begin()
	Timeline() anomaly.Timeline
	Config() anomaly.Config
}

// Freeze is the panel-freeze anomaly as seen by the scenario.
type Freeze interface {
	Reset()
	Trigger(at time.Duration) bool
	Started() anomaly.Mark
	Cleared() anomaly.Mark
}

// Deps bundles the collaborators a Machine drives.
type Deps struct {
	Plant     Plant
	Anomalies Sequencer
	Freeze    Freeze
	Eval      *eval.Harness
}

// #endregion collaborators
