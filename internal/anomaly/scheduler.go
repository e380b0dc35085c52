// Package anomaly drives the scripted drift anomalies: pressure is pushed
// high, then flow is pushed low, each over a fixed drift window, and each
// reading is locked at its anomalous value when its drift completes.
//
// The sequence is a plain phase machine advanced once per tick. Waiting for
// a phase offset is a re-check on every tick, never a sleep.
package anomaly

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/logging"
)

// #region scheduler

// Scheduler runs one anomaly sequence per scenario.
type Scheduler struct {
	config Config
	target Target
	log    *slog.Logger
	events logging.Sink

	phase      Phase
	clock      time.Duration // since Begin
	driftStart time.Duration // clock value when the current drift began
	startValue float64
	timeline   Timeline
}

// NewScheduler validates the config and returns an idle scheduler.
// log and events may be nil.
func NewScheduler(config Config, target Target, log *slog.Logger, events logging.Sink) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("anomaly scheduler needs a target")
	}
	return &Scheduler{
		config: config,
		target: target,
		log:    logging.OrDiscard(log),
		events: events,
	}, nil
}

// #endregion scheduler

// #region begin

// Begin cancels any sequence in flight and starts a fresh one: the run clock
// restarts at zero, the timeline is cleared and both locks are released.
func (s *Scheduler) Begin() {
	s.phase = PhaseAwaitingPressure
	s.clock = 0
	s.driftStart = 0
	s.startValue = 0
	s.timeline = Timeline{}
	s.target.ClearLocks()
	s.log.Debug("anomaly sequence armed",
		"pressure_at", s.config.PressureAt, "flow_at", s.config.FlowAt)
}

// #endregion begin

// #region tick

// Tick advances the run clock by dt and the phase machine as far as the
// clock allows. Negative steps are ignored.
func (s *Scheduler) Tick(dt time.Duration) {
	if dt < 0 || s.phase == PhaseIdle || s.phase == PhaseDone {
		return
	}
	s.clock += dt
	for s.step() {
	}
}

// step performs at most one phase transition and reports whether it did.
func (s *Scheduler) step() bool {
	switch s.phase {
	case PhaseAwaitingPressure:
		if s.clock < s.config.PressureAt {
			return false
		}
		s.beginDrift(s.target.Pressure())
		s.timeline.PressureStart = MarkAt(s.clock)
		s.phase = PhaseDriftingPressure
		s.emit(logging.EventPressureDrift, fmt.Sprintf("from=%.1f target=%.1f", s.startValue, s.config.PressureTarget))
		return true

	case PhaseDriftingPressure:
		if !s.drift(s.config.PressureTarget, s.target.SetPressure) {
			return false
		}
		s.target.LockPressure()
		s.phase = PhaseAwaitingFlow
		s.emit(logging.EventPressureLocked, fmt.Sprintf("value=%.1f", s.config.PressureTarget))
		return true

	case PhaseAwaitingFlow:
		if s.clock < s.config.FlowAt {
			return false
		}
		s.beginDrift(s.target.Flow())
		s.timeline.FlowStart = MarkAt(s.clock)
		s.phase = PhaseDriftingFlow
		s.emit(logging.EventFlowDrift, fmt.Sprintf("from=%.1f target=%.1f", s.startValue, s.config.FlowTarget))
		return true

	case PhaseDriftingFlow:
		if !s.drift(s.config.FlowTarget, s.target.SetFlow) {
			return false
		}
		s.target.LockFlow()
		s.phase = PhaseDone
		s.emit(logging.EventFlowLocked, fmt.Sprintf("value=%.1f", s.config.FlowTarget))
		return true
	}
	return false
}

func (s *Scheduler) beginDrift(current float64) {
	s.driftStart = s.clock
	s.startValue = current
}

// drift writes the interpolated value for the current clock and reports
// whether the drift window is over. The last write is the exact target.
func (s *Scheduler) drift(target float64, set func(float64)) bool {
	elapsed := s.clock - s.driftStart
	if elapsed >= s.config.DriftDuration {
		set(target)
		return true
	}
	t := clamp01(elapsed.Seconds() / s.config.DriftDuration.Seconds())
	set(lerp(s.startValue, target, t))
	return false
}

func (s *Scheduler) emit(kind logging.EventKind, detail string) {
	s.log.Info("anomaly", "event", string(kind), "at", s.clock, "detail", detail)
	logging.Emit(s.events, logging.Event{Kind: kind, At: s.clock, Detail: detail})
}

// #endregion tick

// #region accessors

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// Clock returns time elapsed since Begin.
func (s *Scheduler) Clock() time.Duration { return s.clock }

// Timeline returns the drift start marks recorded so far.
func (s *Scheduler) Timeline() Timeline { return s.timeline }

// Config returns the schedule.
func (s *Scheduler) Config() Config { return s.config }

// #endregion accessors

// #region helpers

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
