package anomaly

import (
	"fmt"
	"math"
	"time"
)

// #region phase

// Phase is the position of the scheduler in its two-drift sequence.
type Phase int

const (
	PhaseIdle Phase = iota // Begin not called yet
	PhaseAwaitingPressure
	PhaseDriftingPressure
	PhaseAwaitingFlow
	PhaseDriftingFlow
	PhaseDone
)

// String returns the human-readable name for a phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingPressure:
		return "awaiting pressure"
	case PhaseDriftingPressure:
		return "drifting pressure"
	case PhaseAwaitingFlow:
		return "awaiting flow"
	case PhaseDriftingFlow:
		return "drifting flow"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// #endregion phase

// #region config

// Config holds anomaly timing, offsets relative to scenario start.
type Config struct {
	PressureAt     time.Duration `json:"pressure_at" yaml:"pressure_at"`
	FlowAt         time.Duration `json:"flow_at" yaml:"flow_at"`
	PressureTarget float64       `json:"pressure_target" yaml:"pressure_target"` // high
	FlowTarget     float64       `json:"flow_target" yaml:"flow_target"`         // low
	DriftDuration  time.Duration `json:"drift_duration" yaml:"drift_duration"`
}

// DefaultConfig returns the scenario's anomaly schedule.
func DefaultConfig() Config {
	return Config{
		PressureAt:     15 * time.Second,
		FlowAt:         30 * time.Second,
		PressureTarget: 45,
		FlowTarget:     5,
		DriftDuration:  5 * time.Second,
	}
}

// Validate rejects negative offsets, out-of-order phases and empty drifts.
func (c Config) Validate() error {
	if c.PressureAt < 0 || c.FlowAt < 0 {
		return fmt.Errorf("anomaly offsets must be non-negative")
	}
	if c.FlowAt < c.PressureAt {
		return fmt.Errorf("flow_at %v precedes pressure_at %v", c.FlowAt, c.PressureAt)
	}
	if c.DriftDuration <= 0 {
		return fmt.Errorf("drift_duration must be positive, got %v", c.DriftDuration)
	}
	if math.IsNaN(c.PressureTarget) || math.IsInf(c.PressureTarget, 0) ||
		math.IsNaN(c.FlowTarget) || math.IsInf(c.FlowTarget, 0) {
		return fmt.Errorf("drift targets must be finite, got pressure %v flow %v", c.PressureTarget, c.FlowTarget)
	}
	return nil
}

// #endregion config

// #region timeline

// Mark is a scenario-relative timestamp that may not have occurred yet.
type Mark struct {
	At  time.Duration
	Set bool
}

// MarkAt returns a set mark.
func MarkAt(at time.Duration) Mark {
	return Mark{At: at, Set: true}
}

// String renders the mark as seconds, or "-" when unset.
func (m Mark) String() string {
	if !m.Set {
		return "-"
	}
	return fmt.Sprintf("%.1fs", m.At.Seconds())
}

// Timeline collects anomaly timestamps for the debrief.
type Timeline struct {
	PressureStart Mark
	FlowStart     Mark
	FreezeStart   Mark
	FreezeClear   Mark
}

// #endregion timeline

// #region target

// Target is the narrow plant surface the scheduler drives.
type Target interface {
	Pressure() float64
	Flow() float64
	SetPressure(v float64)
	SetFlow(v float64)
	LockPressure()
	LockFlow()
	ClearLocks()
}

// #endregion target
