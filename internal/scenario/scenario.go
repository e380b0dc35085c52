// Package scenario runs the record cycle: a countdown per interval, a wait
// for the operator to press record, and a debrief once enough records are
// taken. It reads the plant but only writes to it through ResetToNormal at
// scenario start.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/logging"
	"github.com/danielpatrickdp/process-panel/internal/summary"
)

// CompleteLine is appended to the log when the last record is taken.
const CompleteLine = "=== Scenario complete ==="

// #region machine

// Machine is the scenario state machine.
type Machine struct {
	config Config
	deps   Deps
	log    *slog.Logger
	events logging.Sink

	state   State
	elapsed time.Duration
	timer   time.Duration
	records []Record
	lines   []string

	summaryTimer time.Duration
	summary      string
	summaryReady bool
	onSummary    []func(string)
	onLine       []func(string)
}

// New validates the config and collaborators and returns an idle machine.
func New(config Config, deps Deps, log *slog.Logger, events logging.Sink) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Plant == nil || deps.Anomalies == nil || deps.Freeze == nil || deps.Eval == nil {
		return nil, errors.New("scenario needs a plant, anomaly sequencer, freeze and eval harness")
	}
	return &Machine{
		config: config,
		deps:   deps,
		log:    logging.OrDiscard(log),
		events: events,
	}, nil
}

// OnSummary registers fn to receive the debrief text once it is rendered.
func (m *Machine) OnSummary(fn func(string)) {
	if fn != nil {
		m.onSummary = append(m.onSummary, fn)
	}
}

// OnLine registers fn to receive each log line as it is appended.
func (m *Machine) OnLine(fn func(string)) {
	if fn != nil {
		m.onLine = append(m.onLine, fn)
	}
}

func (m *Machine) appendLine(line string) {
	m.lines = append(m.lines, line)
	for _, fn := range m.onLine {
		fn(line)
	}
}

// #endregion machine

// #region start

// Start begins a fresh run. A run already in progress is abandoned: records,
// log, plant, freeze and anomaly sequence are all reset.
func (m *Machine) Start() {
	m.state = CountingDown
	m.elapsed = 0
	m.timer = m.config.RecordInterval
	m.records = nil
	m.lines = nil
	m.summaryTimer = 0
	m.summary = ""
	m.summaryReady = false

	m.deps.Plant.ResetToNormal()
	m.deps.Freeze.Reset()
	m.deps.Anomalies.Begin()

	m.log.Info("scenario started",
		"record_interval", m.config.RecordInterval, "records", m.config.RecordsToComplete)
	logging.Emit(m.events, logging.Event{
		Kind:   logging.EventScenarioStart,
		At:     0,
		Detail: fmt.Sprintf("interval=%s records=%d", m.config.RecordInterval, m.config.RecordsToComplete),
	})
}

// #endregion start

// #region tick

// Tick advances scenario time. Negative steps and ticks before Start are
// ignored. The countdown only runs while CountingDown; once Complete the
// summary delay runs instead.
func (m *Machine) Tick(dt time.Duration) {
	if dt < 0 || m.state == Idle {
		return
	}
	m.elapsed += dt

	switch m.state {
	case CountingDown:
		m.timer -= dt
		if m.timer <= 0 {
			m.timer = 0
			m.state = WaitingForRecord
			m.log.Debug("waiting for record", "at", m.elapsed, "record", len(m.records)+1)
		}
	case Complete:
		if m.summaryReady {
			return
		}
		m.summaryTimer -= dt
		if m.summaryTimer <= 0 {
			m.deliverSummary()
		}
	}
}

// #endregion tick

// #region record

// RecordPressed takes a record if the machine is waiting for one. Presses at
// any other time are ignored and report false.
func (m *Machine) RecordPressed() bool {
	if m.state != WaitingForRecord {
		return false
	}

	res := m.deps.Eval.Run(m.deps.Plant)
	rec := Record{
		Index:    len(m.records) + 1,
		At:       m.elapsed,
		AllGreen: res.AllGreen,
		Gauges:   res.Gauges(),
		Reason:   res.Reason,
	}
	m.records = append(m.records, rec)

	line := FormatLine(rec)
	m.appendLine(line)
	m.log.Info("record", "index", rec.Index, "at", rec.At, "all_green", rec.AllGreen, "reason", rec.Reason)
	if div := res.Divergent(); len(div) > 0 {
		m.log.Debug("gauge disagrees with plant", "index", rec.Index, "readings", fmt.Sprint(div))
	}
	logging.Emit(m.events, logging.Event{Kind: logging.EventRecord, At: rec.At, Detail: line})

	m.timer = m.config.RecordInterval
	m.state = CountingDown

	if m.config.FreezeAfterRecord > 0 && len(m.records) == m.config.FreezeAfterRecord {
		m.deps.Freeze.Trigger(m.elapsed)
	}
	if len(m.records) >= m.config.RecordsToComplete {
		m.complete()
	}
	return true
}

// FormatLine renders a record as a log line: elapsed time, each gauge value
// with a star when that gauge is out of green, then OK or CHECK from the
// plant's aggregate verdict.
func FormatLine(rec Record) string {
	parts := make([]string, 0, len(rec.Gauges))
	for _, g := range rec.Gauges {
		star := ""
		if !g.Pass {
			star = "*"
		}
		parts = append(parts, fmt.Sprintf("%s:%.1f%s", g.Reading, g.Value, star))
	}
	verdict := "CHECK"
	if rec.AllGreen {
		verdict = "OK"
	}
	return fmt.Sprintf("%.1fs | %s | %s", rec.At.Seconds(), strings.Join(parts, " "), verdict)
}

func (m *Machine) complete() {
	m.state = Complete
	m.timer = 0
	m.appendLine(CompleteLine)
	m.log.Info("scenario complete", "at", m.elapsed, "records", len(m.records))
	logging.Emit(m.events, logging.Event{
		Kind:   logging.EventScenarioComplete,
		At:     m.elapsed,
		Detail: fmt.Sprintf("records=%d", len(m.records)),
	})

	m.summaryTimer = m.config.SummaryDelay
	if m.summaryTimer <= 0 {
		m.deliverSummary()
	}
}

func (m *Machine) deliverSummary() {
	recs := make([]summary.Record, len(m.records))
	for i, r := range m.records {
		recs[i] = summary.Record{Index: r.Index, At: r.At, AllGreen: r.AllGreen}
	}
	m.summary = summary.Render(summary.Input{
		Records:            recs,
		Timeline:           m.Timeline(),
		Drift:              m.deps.Anomalies.Config(),
		TemperatureInRange: m.deps.Plant.TemperatureInRange(),
	})
	m.summaryReady = true

	logging.Emit(m.events, logging.Event{Kind: logging.EventSummary, At: m.elapsed, Detail: m.summary})
	for _, fn := range m.onSummary {
		fn(m.summary)
	}
}

// #endregion record

// #region accessors

func (m *Machine) State() State           { return m.state }
func (m *Machine) Elapsed() time.Duration { return m.elapsed }
func (m *Machine) Timer() time.Duration   { return m.timer }
func (m *Machine) Config() Config         { return m.config }

// Running reports whether the record cycle is in progress.
func (m *Machine) Running() bool {
	return m.state == CountingDown || m.state == WaitingForRecord
}

// Records returns a copy of the records taken so far.
func (m *Machine) Records() []Record {
	return append([]Record(nil), m.records...)
}

// Lines returns a copy of the scenario log.
func (m *Machine) Lines() []string {
	return append([]string(nil), m.lines...)
}

// Summary returns the debrief and whether it has been rendered yet.
func (m *Machine) Summary() (string, bool) {
	return m.summary, m.summaryReady
}

// Timeline merges the drift marks with the freeze marks.
func (m *Machine) Timeline() anomaly.Timeline {
	tl := m.deps.Anomalies.Timeline()
	tl.FreezeStart = m.deps.Freeze.Started()
	tl.FreezeClear = m.deps.Freeze.Cleared()
	return tl
}

// TimerText is the countdown display.
func (m *Machine) TimerText() string {
	switch m.state {
	case Idle:
		return ""
	case WaitingForRecord:
		return "Press RECORD"
	case Complete:
		return "Scenario complete"
	default:
		return fmt.Sprintf("Next record in: %.1fs", m.timer.Seconds())
	}
}

// #endregion accessors
