package plant

import (
	"errors"
	"fmt"
	"math"
)

// #region reading

// Reading selects one value published by the plant. Process readings
// (pressure, flow, temperature) have normal bands; the two control
// positions do not.
type Reading int

const (
	Pressure Reading = iota
	Flow
	Temperature
	PumpSpeed
	ValvePosition
)

// ProcessReadings lists the readings that carry a normal band, in panel order.
var ProcessReadings = []Reading{Pressure, Flow, Temperature}

// String returns the panel label for a reading.
func (r Reading) String() string {
	switch r {
	case Pressure:
		return "Pressure"
	case Flow:
		return "Flow"
	case Temperature:
		return "Temperature"
	case PumpSpeed:
		return "PumpSpeed"
	case ValvePosition:
		return "ValvePosition"
	default:
		return "Unknown"
	}
}

// ParseReading maps a panel label (case-sensitive, as produced by String) to a Reading.
func ParseReading(s string) (Reading, error) {
	for _, r := range []Reading{Pressure, Flow, Temperature, PumpSpeed, ValvePosition} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown reading %q", s)
}

// MarshalText encodes the reading as its panel label.
func (r Reading) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a panel label, so readings can appear by name in
// YAML and JSON documents.
func (r *Reading) UnmarshalText(text []byte) error {
	parsed, err := ParseReading(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// #endregion reading

// #region band

// ErrInvalidBand is returned when a band's lower edge exceeds its upper edge.
var ErrInvalidBand = errors.New("invalid band")

// Band is an inclusive [Min, Max] interval.
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Mid returns the band midpoint.
func (b Band) Mid() float64 {
	return (b.Min + b.Max) * 0.5
}

// Contains reports whether v lies inside the band, edges included.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Validate rejects inverted and non-finite bands.
func (b Band) Validate() error {
	if !finite(b.Min) || !finite(b.Max) {
		return fmt.Errorf("%w: edges must be finite, got [%v, %v]", ErrInvalidBand, b.Min, b.Max)
	}
	if b.Min > b.Max {
		return fmt.Errorf("%w: min %.3f > max %.3f", ErrInvalidBand, b.Min, b.Max)
	}
	return nil
}

// #endregion band

// #region state

// Locks records which readings are held by an anomaly. A locked reading is
// skipped by both control relaxation and automatic stabilization.
type Locks struct {
	Pressure bool
	Flow     bool
}

// Any reports whether at least one reading is locked.
func (l Locks) Any() bool {
	return l.Pressure || l.Flow
}

// State is a point-in-time copy of the process variables and controls.
type State struct {
	Pressure    float64
	Temperature float64
	Flow        float64

	PressureRange    Band
	TemperatureRange Band
	FlowRange        Band

	PumpSpeed     float64
	ValvePosition float64
	ManualMode    bool

	Locks Locks
}

// Band returns the normal band for a process reading. Control readings
// report the unit interval.
func (s State) Band(r Reading) Band {
	switch r {
	case Pressure:
		return s.PressureRange
	case Flow:
		return s.FlowRange
	case Temperature:
		return s.TemperatureRange
	default:
		return Band{Min: 0, Max: 1}
	}
}

// Select returns the value a display bound to r should show.
func Select(s State, r Reading) float64 {
	switch r {
	case Pressure:
		return s.Pressure
	case Flow:
		return s.Flow
	case Temperature:
		return s.Temperature
	case PumpSpeed:
		return s.PumpSpeed
	case ValvePosition:
		return s.ValvePosition
	default:
		return 0
	}
}

// #endregion state

// #region config

// Config holds the bands and rate constants of the plant.
type Config struct {
	PressureRange    Band `json:"pressure_range" yaml:"pressure_range"`
	TemperatureRange Band `json:"temperature_range" yaml:"temperature_range"`
	FlowRange        Band `json:"flow_range" yaml:"flow_range"`

	// Physical is the hard clamp applied to every reading after each step.
	Physical Band `json:"physical" yaml:"physical"`

	ControlRate     float64 `json:"control_rate" yaml:"control_rate"`         // relaxation toward control-derived target, per second
	AutoRate        float64 `json:"auto_rate" yaml:"auto_rate"`               // pressure/flow stabilization toward band midpoint
	AutoTempRate    float64 `json:"auto_temp_rate" yaml:"auto_temp_rate"`     // temperature stabilization toward band midpoint
	UnlockThreshold float64 `json:"unlock_threshold" yaml:"unlock_threshold"` // control movement per tick that releases locks
}

// DefaultConfig returns the bands used by the panel scenario.
func DefaultConfig() Config {
	return Config{
		PressureRange:    Band{Min: 15, Max: 35},
		TemperatureRange: Band{Min: 20, Max: 40},
		FlowRange:        Band{Min: 15, Max: 35},
		Physical:         Band{Min: 0, Max: 50},
		ControlRate:      3.0,
		AutoRate:         0.5,
		AutoTempRate:     0.3,
		UnlockThreshold:  0.05,
	}
}

// Validate checks bands and rates. Nothing is clamped silently.
func (c Config) Validate() error {
	bands := []struct {
		name string
		b    Band
	}{
		{"pressure_range", c.PressureRange},
		{"temperature_range", c.TemperatureRange},
		{"flow_range", c.FlowRange},
		{"physical", c.Physical},
	}
	for _, nb := range bands {
		if err := nb.b.Validate(); err != nil {
			return fmt.Errorf("%s: %w", nb.name, err)
		}
	}
	for _, r := range []float64{c.ControlRate, c.AutoRate, c.AutoTempRate} {
		if !(r >= 0) || !finite(r) {
			return fmt.Errorf("rates must be finite and non-negative, got %v", r)
		}
	}
	if !(c.UnlockThreshold >= 0) || !finite(c.UnlockThreshold) {
		return fmt.Errorf("unlock_threshold must be non-negative, got %f", c.UnlockThreshold)
	}
	return nil
}

// #endregion config

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
