// Package sim wires the plant, anomaly scheduler, freeze, scenario machine
// and panel into one engine driven by a single tick. Within a tick the plant
// advances first, then anomaly overrides, then the scenario, then the
// displays, so a record always sees the anomaly-adjusted values.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/eval"
	"github.com/danielpatrickdp/process-panel/internal/freeze"
	"github.com/danielpatrickdp/process-panel/internal/logging"
	"github.com/danielpatrickdp/process-panel/internal/panel"
	"github.com/danielpatrickdp/process-panel/internal/plant"
	"github.com/danielpatrickdp/process-panel/internal/scenario"
)

// #region engine

// Engine owns every simulation component. It is not safe for concurrent
// use; Run serializes ticks and commands on one goroutine.
type Engine struct {
	config  Config
	log     *slog.Logger
	events  logging.Sink
	plant   *plant.Plant
	sched   *anomaly.Scheduler
	freeze  *freeze.Anomaly
	panel   *panel.Panel
	machine *scenario.Machine

	onTick []func(*Engine)
}

// NewEngine validates config and builds the components. log and events may
// be nil.
func NewEngine(config Config, log *slog.Logger, events logging.Sink) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log = logging.OrDiscard(log)

	p, err := plant.New(config.Plant)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	sched, err := anomaly.NewScheduler(config.Anomaly, p, log.With("component", "anomaly"), events)
	if err != nil {
		return nil, fmt.Errorf("anomaly: %w", err)
	}
	pn, err := panel.New(config.Panel)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	fr := freeze.New(p, log.With("component", "freeze"), events, pn.Elements()...)
	harness := eval.NewHarness(config.Eval, pn.Probes()...)

	m, err := scenario.New(config.Scenario, scenario.Deps{
		Plant:     p,
		Anomalies: sched,
		Freeze:    fr,
		Eval:      harness,
	}, log.With("component", "scenario"), events)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	e := &Engine{
		config:  config,
		log:     log,
		events:  events,
		plant:   p,
		sched:   sched,
		freeze:  fr,
		panel:   pn,
		machine: m,
	}
	pn.Update(p.Snapshot(), 0)
	return e, nil
}

// #endregion engine

// #region tick

// Tick advances the simulation by dt.
func (e *Engine) Tick(dt time.Duration) error {
	if dt < 0 {
		return ErrNegativeStep
	}
	unlocked := e.plant.Advance(dt)
	e.sched.Tick(dt)
	e.machine.Tick(dt)
	e.panel.Update(e.plant.Snapshot(), dt)

	if unlocked {
		e.log.Info("operator control movement released anomaly locks", "at", e.machine.Elapsed())
		logging.Emit(e.events, logging.Event{Kind: logging.EventUnlock, At: e.machine.Elapsed()})
	}
	if e.log.Enabled(context.Background(), logging.LevelTrace) {
		st := e.plant.Snapshot()
		logging.Trace(e.log, "tick",
			"elapsed", e.machine.Elapsed(),
			"pressure", st.Pressure, "flow", st.Flow, "temperature", st.Temperature,
			"pump", st.PumpSpeed, "valve", st.ValvePosition, "phase", e.sched.Phase().String())
	}
	for _, fn := range e.onTick {
		fn(e)
	}
	return nil
}

// #endregion tick

// #region controls

// AdjustPump moves the pump by delta and returns the clamped speed.
func (e *Engine) AdjustPump(delta float64) float64 {
	v := e.plant.AdjustPump(delta)
	e.log.Debug("pump adjusted", "pump", v)
	return v
}

// AdjustValve moves the valve by delta and returns the clamped position.
func (e *Engine) AdjustValve(delta float64) float64 {
	v := e.plant.AdjustValve(delta)
	e.log.Debug("valve adjusted", "valve", v)
	return v
}

// ToggleMode flips manual/automatic and notifies the freeze anomaly. It
// returns the new manual flag.
func (e *Engine) ToggleMode() bool {
	manual := e.plant.ToggleMode()
	at := e.machine.Elapsed()
	mode := "auto"
	if manual {
		mode = "manual"
	}
	e.log.Info("mode changed", "mode", mode, "at", at)
	logging.Emit(e.events, logging.Event{Kind: logging.EventModeChange, At: at, Detail: mode})
	e.freeze.OnModeChanged(manual, at)
	return manual
}

// StartScenario starts, or restarts, the scenario.
func (e *Engine) StartScenario() {
	e.machine.Start()
}

// RecordPressed forwards a record press. It reports whether a record was taken.
func (e *Engine) RecordPressed() bool {
	return e.machine.RecordPressed()
}

// Apply executes an operator command. Knob commands move by the configured
// step. It reports whether the command had an effect.
func (e *Engine) Apply(cmd Command) bool {
	step := e.config.KnobStep
	switch cmd {
	case CmdPumpUp:
		e.AdjustPump(step)
	case CmdPumpDown:
		e.AdjustPump(-step)
	case CmdValveUp:
		e.AdjustValve(step)
	case CmdValveDown:
		e.AdjustValve(-step)
	case CmdToggleMode:
		e.ToggleMode()
	case CmdRecord:
		return e.RecordPressed()
	case CmdStart:
		e.StartScenario()
	default:
		return false
	}
	return true
}

// OnSummary registers a callback for the rendered debrief.
func (e *Engine) OnSummary(fn func(string)) {
	e.machine.OnSummary(fn)
}

// OnTick registers a callback run at the end of every tick, after the
// displays have been refreshed.
func (e *Engine) OnTick(fn func(*Engine)) {
	if fn != nil {
		e.onTick = append(e.onTick, fn)
	}
}

// OnLine registers a callback for each scenario log line.
func (e *Engine) OnLine(fn func(string)) {
	e.machine.OnLine(fn)
}

// #endregion controls

// #region accessors

func (e *Engine) IsRunning() bool              { return e.machine.Running() }
func (e *Engine) Elapsed() time.Duration       { return e.machine.Elapsed() }
func (e *Engine) State() scenario.State        { return e.machine.State() }
func (e *Engine) Snapshot() plant.State        { return e.plant.Snapshot() }
func (e *Engine) Records() []scenario.Record   { return e.machine.Records() }
func (e *Engine) Lines() []string              { return e.machine.Lines() }
func (e *Engine) Timeline() anomaly.Timeline   { return e.machine.Timeline() }
func (e *Engine) Summary() (string, bool)      { return e.machine.Summary() }
func (e *Engine) Panel() *panel.Panel          { return e.panel }
func (e *Engine) Phase() anomaly.Phase         { return e.sched.Phase() }
func (e *Engine) FreezeActive() bool           { return e.freeze.Active() }
func (e *Engine) TimerText() string            { return e.machine.TimerText() }
func (e *Engine) Config() Config               { return e.config }
func (e *Engine) AllInNormalRange() bool       { return e.plant.AllInNormalRange() }
func (e *Engine) InRange(r plant.Reading) bool { return e.plant.InRange(r) }

// #endregion accessors
