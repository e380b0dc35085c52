// Package freeze implements the panel-freeze anomaly: while active, every
// bound display holds its last value even though the plant keeps running.
// Selecting automatic mode during a freeze restores the plant baseline and
// releases the displays.
package freeze

import (
	"log/slog"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/logging"
)

// #region interfaces

// Freezable is a display element that can hold its last shown value.
type Freezable interface {
	SetFrozen(frozen bool)
}

// Resetter puts the plant back to its normal baseline.
type Resetter interface {
	ResetToNormal()
}

// #endregion interfaces

// #region anomaly

// Anomaly is the two-state freeze. The zero value is not usable; call New.
type Anomaly struct {
	plant    Resetter
	elements []Freezable
	log      *slog.Logger
	events   logging.Sink

	active  bool
	started anomaly.Mark
	cleared anomaly.Mark
	last    time.Duration // most recent scenario time seen, for Clear events
}

// New returns an inactive freeze anomaly. plant may be nil, in which case
// mode changes never resolve the freeze.
func New(plant Resetter, log *slog.Logger, events logging.Sink, elements ...Freezable) *Anomaly {
	return &Anomaly{
		plant:    plant,
		elements: elements,
		log:      logging.OrDiscard(log),
		events:   events,
	}
}

// Bind adds display elements. Elements bound while the freeze is active are
// frozen immediately.
func (a *Anomaly) Bind(elements ...Freezable) {
	for _, e := range elements {
		if e == nil {
			continue
		}
		a.elements = append(a.elements, e)
		if a.active {
			e.SetFrozen(true)
		}
	}
}

// Trigger activates the freeze at scenario time at. It reports false when
// the freeze was already active.
func (a *Anomaly) Trigger(at time.Duration) bool {
	if a.active {
		return false
	}
	a.active = true
	a.started = anomaly.MarkAt(at)
	a.cleared = anomaly.Mark{}
	a.last = at
	a.setFrozen(true)

	a.log.Info("panel freeze triggered", "at", at)
	logging.Emit(a.events, logging.Event{Kind: logging.EventFreezeStart, At: at})
	return true
}

// Clear releases the displays. It reports false, and does nothing, when the
// freeze is not active.
func (a *Anomaly) Clear() bool {
	if !a.active {
		return false
	}
	a.active = false
	a.setFrozen(false)

	a.log.Info("panel freeze cleared", "at", a.last)
	logging.Emit(a.events, logging.Event{Kind: logging.EventFreezeClear, At: a.last})
	return true
}

// OnModeChanged reacts to an operator mode change. Only a switch to
// automatic while active resolves the freeze: the clear time is recorded,
// the plant is reset and the displays are released. It reports whether the
// freeze was resolved.
func (a *Anomaly) OnModeChanged(manual bool, at time.Duration) bool {
	if !a.active || manual || a.plant == nil {
		return false
	}
	a.cleared = anomaly.MarkAt(at)
	a.last = at
	a.plant.ResetToNormal()
	return a.Clear()
}

// Reset returns to the inactive state with no marks, as at scenario start.
func (a *Anomaly) Reset() {
	if a.active {
		a.setFrozen(false)
	}
	a.active = false
	a.started = anomaly.Mark{}
	a.cleared = anomaly.Mark{}
	a.last = 0
}

func (a *Anomaly) setFrozen(frozen bool) {
	for _, e := range a.elements {
		if e != nil {
			e.SetFrozen(frozen)
		}
	}
}

// #endregion anomaly

// #region accessors

// Active reports whether displays are currently frozen.
func (a *Anomaly) Active() bool { return a.active }

// Started returns the freeze start mark.
func (a *Anomaly) Started() anomaly.Mark { return a.started }

// Cleared returns the freeze clear mark. It is set only when the operator
// resolved the freeze by selecting automatic mode.
func (a *Anomaly) Cleared() anomaly.Mark { return a.cleared }

// #endregion accessors
