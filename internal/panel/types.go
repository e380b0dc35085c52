package panel

import (
	"fmt"

	"github.com/danielpatrickdp/process-panel/internal/plant"
)

// #region color
// Color is a status light classification.
type Color int

const (
	Green Color = iota
	Yellow
	Red
)

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// #endregion color

// #region gauge-spec
// GaugeSpec describes one analog gauge on the panel.
type GaugeSpec struct {
	Reading plant.Reading `json:"reading" yaml:"reading"`
	Scale   plant.Band    `json:"scale" yaml:"scale"` // needle travel maps this interval
	Green   plant.Band    `json:"green" yaml:"green"` // the gauge's own normal band
}

// #endregion gauge-spec

// #region config
// Config describes the display elements of the panel.
type Config struct {
	Gauges        []GaugeSpec `json:"gauges" yaml:"gauges"`
	Smoothing     float64     `json:"smoothing" yaml:"smoothing"`           // needle response, per second
	NeedleSweep   float64     `json:"needle_sweep" yaml:"needle_sweep"`     // degrees either side of centre
	WarningMargin float64     `json:"warning_margin" yaml:"warning_margin"` // yellow zone width outside a band
	ScopeMin      float64     `json:"scope_min" yaml:"scope_min"`           // emission at the bottom of the flow band
	ScopeMax      float64     `json:"scope_max" yaml:"scope_max"`           // emission at the top of the flow band
	ScrollSpeed   float64     `json:"scroll_speed" yaml:"scroll_speed"`     // trace offset per second
}

// DefaultConfig returns the three process gauges with green bands matching
// the plant's default normal bands.
func DefaultConfig() Config {
	pc := plant.DefaultConfig()
	scale := plant.Band{Min: 0, Max: 50}
	return Config{
		Gauges: []GaugeSpec{
			{Reading: plant.Pressure, Scale: scale, Green: pc.PressureRange},
			{Reading: plant.Flow, Scale: scale, Green: pc.FlowRange},
			{Reading: plant.Temperature, Scale: scale, Green: pc.TemperatureRange},
		},
		Smoothing:     12,
		NeedleSweep:   20,
		WarningMargin: 5,
		ScopeMin:      0.3,
		ScopeMax:      1.5,
		ScrollSpeed:   0.2,
	}
}

// Validate checks gauge bands and non-negative tuning values.
func (c Config) Validate() error {
	for i, g := range c.Gauges {
		if err := g.Scale.Validate(); err != nil {
			return fmt.Errorf("gauge %d (%s) scale: %w", i, g.Reading, err)
		}
		if err := g.Green.Validate(); err != nil {
			return fmt.Errorf("gauge %d (%s) green: %w", i, g.Reading, err)
		}
	}
	if !(c.Smoothing >= 0) || !(c.WarningMargin >= 0) || !(c.ScrollSpeed >= 0) {
		return fmt.Errorf("panel smoothing, warning_margin and scroll_speed must be non-negative")
	}
	if !(c.ScopeMin <= c.ScopeMax) {
		return fmt.Errorf("scope_min %.2f exceeds scope_max %.2f", c.ScopeMin, c.ScopeMax)
	}
	return nil
}

// #endregion config
