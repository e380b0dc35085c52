package plant

import (
	"math"
	"time"
)

// #region plant

// Plant owns the process state. It is the single writer of readings,
// controls and locks; other components go through the named mutators below.
type Plant struct {
	config Config
	state  State

	// control positions seen by the previous Advance, for lock release
	prevPump  float64
	prevValve float64
}

// New validates the configuration and returns a plant at its normal baseline.
func New(config Config) (*Plant, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Plant{config: config}
	p.state.PressureRange = config.PressureRange
	p.state.TemperatureRange = config.TemperatureRange
	p.state.FlowRange = config.FlowRange
	p.ResetToNormal()
	return p, nil
}

// Config returns the configuration the plant was built with.
func (p *Plant) Config() Config {
	return p.config
}

// #endregion plant

// #region advance

// Advance moves the plant forward by dt. Negative steps are ignored.
// It reports whether the step released a lock.
func (p *Plant) Advance(dt time.Duration) (unlocked bool) {
	if dt < 0 {
		return false
	}
	next, unlocked := Step(p.state, p.prevPump, p.prevValve, dt.Seconds(), p.config)
	p.state = next
	p.prevPump = next.PumpSpeed
	p.prevValve = next.ValvePosition
	return unlocked
}

// Step is the pure plant update. prevPump and prevValve are the control
// positions at the previous step; a movement larger than the unlock
// threshold releases every lock before the readings are updated.
func Step(old State, prevPump, prevValve, dt float64, config Config) (State, bool) {
	st := old // copy (value type)
	unlocked := false

	if st.Locks.Any() {
		moved := abs(st.PumpSpeed-prevPump) > config.UnlockThreshold ||
			abs(st.ValvePosition-prevValve) > config.UnlockThreshold
		if moved {
			st.Locks = Locks{}
			unlocked = true
		}
	}

	targetFlow := lerp(5, 45, st.ValvePosition) + lerp(-2, 5, st.PumpSpeed)
	targetPressure := lerp(10, 48, st.PumpSpeed) * lerp(1.0, 0.5, st.ValvePosition)
	targetTemp := lerp(20, 48, st.PumpSpeed) - lerp(0, 8, st.ValvePosition)

	control := clamp01(config.ControlRate * dt)
	if !st.Locks.Pressure {
		st.Pressure = lerp(st.Pressure, targetPressure, control)
	}
	if !st.Locks.Flow {
		st.Flow = lerp(st.Flow, targetFlow, control)
	}
	st.Temperature = lerp(st.Temperature, targetTemp, control)

	// Automatic stabilization is added on top of the control response.
	if !st.ManualMode {
		auto := clamp01(config.AutoRate * dt)
		if !st.Locks.Pressure {
			st.Pressure = lerp(st.Pressure, st.PressureRange.Mid(), auto)
		}
		if !st.Locks.Flow {
			st.Flow = lerp(st.Flow, st.FlowRange.Mid(), auto)
		}
		st.Temperature = lerp(st.Temperature, st.TemperatureRange.Mid(), clamp01(config.AutoTempRate*dt))
	}

	st.Pressure = clampBand(st.Pressure, config.Physical)
	st.Temperature = clampBand(st.Temperature, config.Physical)
	st.Flow = clampBand(st.Flow, config.Physical)

	return st, unlocked
}

// #endregion advance

// #region queries

// Snapshot returns a copy of the current state.
func (p *Plant) Snapshot() State {
	return p.state
}

func (p *Plant) Pressure() float64    { return p.state.Pressure }
func (p *Plant) Temperature() float64 { return p.state.Temperature }
func (p *Plant) Flow() float64        { return p.state.Flow }
func (p *Plant) ManualMode() bool     { return p.state.ManualMode }
func (p *Plant) Locks() Locks         { return p.state.Locks }

// PressureInRange reports whether pressure lies in its normal band.
func (p *Plant) PressureInRange() bool {
	return p.state.PressureRange.Contains(p.state.Pressure)
}

// TemperatureInRange reports whether temperature lies in its normal band.
func (p *Plant) TemperatureInRange() bool {
	return p.state.TemperatureRange.Contains(p.state.Temperature)
}

// FlowInRange reports whether flow lies in its normal band.
func (p *Plant) FlowInRange() bool {
	return p.state.FlowRange.Contains(p.state.Flow)
}

// AllInNormalRange is the conjunction of the three band checks.
func (p *Plant) AllInNormalRange() bool {
	return p.PressureInRange() && p.TemperatureInRange() && p.FlowInRange()
}

// InRange reports band membership for a process reading. Control readings
// are always in range.
func (p *Plant) InRange(r Reading) bool {
	return p.state.Band(r).Contains(Select(p.state, r))
}

// #endregion queries

// #region controls

// AdjustPump moves the pump speed by delta, clamped to [0,1]. A delta that
// is not finite leaves the pump where it is.
func (p *Plant) AdjustPump(delta float64) float64 {
	if !finite(delta) {
		return p.state.PumpSpeed
	}
	p.state.PumpSpeed = clamp01(p.state.PumpSpeed + delta)
	return p.state.PumpSpeed
}

// AdjustValve moves the valve position by delta, clamped to [0,1]. A delta
// that is not finite leaves the valve where it is.
func (p *Plant) AdjustValve(delta float64) float64 {
	if !finite(delta) {
		return p.state.ValvePosition
	}
	p.state.ValvePosition = clamp01(p.state.ValvePosition + delta)
	return p.state.ValvePosition
}

// ToggleMode flips between manual and automatic and returns the new manual flag.
func (p *Plant) ToggleMode() bool {
	p.state.ManualMode = !p.state.ManualMode
	return p.state.ManualMode
}

// SetManualMode sets the mode directly.
func (p *Plant) SetManualMode(manual bool) {
	p.state.ManualMode = manual
}

// #endregion controls

// #region anomaly-mutators

// SetPressure overrides pressure, clamped to the physical bound. NaN is
// ignored.
func (p *Plant) SetPressure(v float64) {
	if math.IsNaN(v) {
		return
	}
	p.state.Pressure = clampBand(v, p.config.Physical)
}

// SetFlow overrides flow, clamped to the physical bound. NaN is ignored.
func (p *Plant) SetFlow(v float64) {
	if math.IsNaN(v) {
		return
	}
	p.state.Flow = clampBand(v, p.config.Physical)
}

func (p *Plant) LockPressure() { p.state.Locks.Pressure = true }
func (p *Plant) LockFlow()     { p.state.Locks.Flow = true }

// ClearLocks releases both locks.
func (p *Plant) ClearLocks() { p.state.Locks = Locks{} }

// #endregion anomaly-mutators

// #region reset

// ResetToNormal puts controls at mid travel, readings at band midpoints and
// clears locks. The operating mode is left as is.
func (p *Plant) ResetToNormal() {
	p.state.PumpSpeed = 0.5
	p.state.ValvePosition = 0.5
	p.prevPump = 0.5
	p.prevValve = 0.5

	p.state.Pressure = p.state.PressureRange.Mid()
	p.state.Temperature = p.state.TemperatureRange.Mid()
	p.state.Flow = p.state.FlowRange.Mid()

	p.state.Locks = Locks{}
}

// #endregion reset

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

func clampBand(v float64, b Band) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion helpers
