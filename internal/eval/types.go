package eval

import "github.com/danielpatrickdp/process-panel/internal/plant"

// #region probe
// Probe is a display that reports its own value and green-band verdict.
type Probe interface {
	Reading() plant.Reading
	Value() float64
	InGreen() bool
}

// RangeChecker is the plant surface a record is evaluated against.
type RangeChecker interface {
	AllInNormalRange() bool
	InRange(r plant.Reading) bool
	Snapshot() plant.State
}

// #endregion probe

// #region eval-config
// Config selects which plant readings are checked individually.
type Config struct {
	Readings []plant.Reading
}

// DefaultConfig checks the three process readings.
func DefaultConfig() Config {
	return Config{Readings: append([]plant.Reading(nil), plant.ProcessReadings...)}
}

// #endregion eval-config

// #region eval-metric
// Source tells whether a metric came from the plant or from a display.
type Source int

const (
	SourceSystem Source = iota
	SourceGauge
)

// String returns "system" or "gauge".
func (s Source) String() string {
	if s == SourceGauge {
		return "gauge"
	}
	return "system"
}

// Metric captures a single range check.
type Metric struct {
	Source  Source
	Reading plant.Reading
	Value   float64
	Pass    bool
}

// #endregion eval-metric

// #region eval-result
// Result is the outcome of evaluating one record. AllGreen is the plant's
// aggregate verdict; gauge metrics are reported alongside and may disagree.
type Result struct {
	AllGreen bool
	Metrics  []Metric
	Reason   string
}

// Gauges returns the gauge metrics in probe order.
func (r Result) Gauges() []Metric {
	return r.bySource(SourceGauge)
}

// System returns the per-reading plant metrics.
func (r Result) System() []Metric {
	return r.bySource(SourceSystem)
}

func (r Result) bySource(src Source) []Metric {
	var out []Metric
	for _, m := range r.Metrics {
		if m.Source == src {
			out = append(out, m)
		}
	}
	return out
}

// Divergent lists readings whose gauge verdict differs from the plant's.
func (r Result) Divergent() []plant.Reading {
	system := make(map[plant.Reading]bool)
	for _, m := range r.System() {
		system[m.Reading] = m.Pass
	}
	var out []plant.Reading
	for _, m := range r.Gauges() {
		if pass, ok := system[m.Reading]; ok && pass != m.Pass {
			out = append(out, m.Reading)
		}
	}
	return out
}

// #endregion eval-result
