package logging

import "time"

// #region event-kind
// EventKind names a run event.
type EventKind string

const (
	EventScenarioStart    EventKind = "scenario.start"
	EventRecord           EventKind = "scenario.record"
	EventScenarioComplete EventKind = "scenario.complete"
	EventSummary          EventKind = "scenario.summary"

	EventPressureDrift  EventKind = "anomaly.pressure.start"
	EventPressureLocked EventKind = "anomaly.pressure.locked"
	EventFlowDrift      EventKind = "anomaly.flow.start"
	EventFlowLocked     EventKind = "anomaly.flow.locked"

	EventUnlock     EventKind = "plant.unlock"
	EventModeChange EventKind = "plant.mode"

	EventFreezeStart EventKind = "freeze.start"
	EventFreezeClear EventKind = "freeze.clear"
)

// #endregion event-kind

// #region event
// Event is one entry on a run's timeline. At is scenario-relative time.
type Event struct {
	Kind   EventKind
	At     time.Duration
	Detail string
}

// Sink receives run events. Implementations must not block the tick loop.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// Emit delivers ev to s. A nil sink drops the event.
func Emit(s Sink, ev Event) {
	if s == nil {
		return
	}
	s.Emit(ev)
}

// Fanout forwards every event to each non-nil sink in order.
type Fanout []Sink

// Emit implements Sink.
func (f Fanout) Emit(ev Event) {
	for _, s := range f {
		Emit(s, ev)
	}
}

// #endregion event

// #region entry
// Entry is a single row in the run_events table.
type Entry struct {
	RunID     string
	Kind      EventKind
	At        time.Duration
	Detail    string
	CreatedAt time.Time
}

// #endregion entry
