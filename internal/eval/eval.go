package eval

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/process-panel/internal/plant"
)

// #region eval-harness
// Harness evaluates a record: the plant's aggregate range check plus each
// bound gauge's own verdict.
type Harness struct {
	config Config
	probes []Probe
}

// NewHarness creates a harness over the given gauges.
func NewHarness(config Config, probes ...Probe) *Harness {
	return &Harness{config: config, probes: probes}
}

// Probes returns the bound gauges.
func (h *Harness) Probes() []Probe {
	return h.probes
}

// Run checks the plant and every probe. It never mutates the plant.
func (h *Harness) Run(system RangeChecker) Result {
	var metrics []Metric
	var failReasons []string

	// 1. Per-reading plant checks, used for the reason text
	st := system.Snapshot()
	for _, r := range h.config.Readings {
		value := plant.Select(st, r)
		pass := system.InRange(r)
		metrics = append(metrics, Metric{
			Source:  SourceSystem,
			Reading: r,
			Value:   value,
			Pass:    pass,
		})
		if !pass {
			band := st.Band(r)
			failReasons = append(failReasons, fmt.Sprintf("%s %.1f outside [%.1f, %.1f]", r, value, band.Min, band.Max))
		}
	}

	// 2. Gauge verdicts: informational, never change AllGreen
	for _, p := range h.probes {
		metrics = append(metrics, Metric{
			Source:  SourceGauge,
			Reading: p.Reading(),
			Value:   p.Value(),
			Pass:    p.InGreen(),
		})
	}

	// 3. Aggregate verdict is authoritative
	allGreen := system.AllInNormalRange()

	reason := "all readings in range"
	switch {
	case !allGreen && len(failReasons) == 0:
		reason = "system out of range"
	case !allGreen && len(failReasons) == 1:
		reason = "out of range: " + failReasons[0]
	case !allGreen:
		reason = fmt.Sprintf("%d readings out of range: %s", len(failReasons), strings.Join(failReasons, "; "))
	}

	return Result{
		AllGreen: allGreen,
		Metrics:  metrics,
		Reason:   reason,
	}
}

// #endregion eval-harness
