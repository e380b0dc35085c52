// Package panel holds headless read-models of the control panel displays:
// analog gauges, status lights and the flow scope. Each element reads a
// plant snapshot through a reading selector, never the plant itself, and
// each can be frozen to hold its last shown value.
package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/eval"
	"github.com/danielpatrickdp/process-panel/internal/freeze"
	"github.com/danielpatrickdp/process-panel/internal/plant"
)

// #region gauge

// Gauge is an analog gauge with a smoothed needle and its own green band.
// Its value can lag or, while frozen, disagree with the plant.
type Gauge struct {
	spec      GaugeSpec
	smoothing float64
	sweep     float64

	value       float64
	angle       float64
	initialized bool
	frozen      bool
}

// NewGauge returns a gauge that snaps to the first value it sees.
func NewGauge(spec GaugeSpec, smoothing, sweep float64) *Gauge {
	return &Gauge{spec: spec, smoothing: smoothing, sweep: sweep}
}

// Update moves the gauge toward the snapshot's value for its reading.
// A frozen gauge ignores updates.
func (g *Gauge) Update(st plant.State, dt float64) {
	if g.frozen {
		return
	}
	raw := plant.Select(st, g.spec.Reading)
	target := lerp(-g.sweep, g.sweep, inverseLerp(g.spec.Scale.Min, g.spec.Scale.Max, raw))
	if !g.initialized {
		g.value = raw
		g.angle = target
		g.initialized = true
		return
	}
	k := clamp01(g.smoothing * dt)
	g.value = lerp(g.value, raw, k)
	g.angle = lerp(g.angle, target, k)
}

func (g *Gauge) Reading() plant.Reading { return g.spec.Reading }
func (g *Gauge) Value() float64         { return g.value }
func (g *Gauge) Angle() float64         { return g.angle }
func (g *Gauge) Frozen() bool           { return g.frozen }
func (g *Gauge) SetFrozen(frozen bool)  { g.frozen = frozen }

// InGreen reports whether the displayed value lies in the gauge's green band.
func (g *Gauge) InGreen() bool {
	return g.spec.Green.Contains(g.value)
}

// #endregion gauge

// #region light

// Light is a three-color status light for one process reading.
type Light struct {
	reading plant.Reading
	margin  float64
	color   Color
	frozen  bool
}

// NewLight returns a light that starts green.
func NewLight(reading plant.Reading, margin float64) *Light {
	return &Light{reading: reading, margin: margin}
}

// Update reclassifies the light from the plant's own band for its reading.
func (l *Light) Update(st plant.State) {
	if l.frozen {
		return
	}
	l.color = Classify(plant.Select(st, l.reading), st.Band(l.reading), l.margin)
}

func (l *Light) Reading() plant.Reading { return l.reading }
func (l *Light) Color() Color           { return l.color }
func (l *Light) Frozen() bool           { return l.frozen }
func (l *Light) SetFrozen(frozen bool)  { l.frozen = frozen }

// Classify is green inside the band, yellow within margin of either edge
// and red beyond that.
func Classify(v float64, band plant.Band, margin float64) Color {
	switch {
	case band.Contains(v):
		return Green
	case v >= band.Min-margin && v <= band.Max+margin:
		return Yellow
	default:
		return Red
	}
}

// #endregion light

// #region scope

// Scope is the scrolling flow trace. Its emission tracks flow across the
// flow band.
type Scope struct {
	lo, hi    float64
	scroll    float64
	offset    float64
	intensity float64
	frozen    bool
}

// NewScope returns a scope at minimum intensity.
func NewScope(lo, hi, scroll float64) *Scope {
	return &Scope{lo: lo, hi: hi, scroll: scroll, intensity: lo}
}

// Update scrolls the trace and recomputes its intensity.
func (s *Scope) Update(st plant.State, dt float64) {
	if s.frozen {
		return
	}
	s.offset += s.scroll * dt
	s.intensity = lerp(s.lo, s.hi, inverseLerp(st.FlowRange.Min, st.FlowRange.Max, st.Flow))
}

func (s *Scope) Offset() float64       { return s.offset }
func (s *Scope) Intensity() float64    { return s.intensity }
func (s *Scope) Frozen() bool          { return s.frozen }
func (s *Scope) SetFrozen(frozen bool) { s.frozen = frozen }

// #endregion scope

// #region panel

// Panel groups every display element.
type Panel struct {
	gauges []*Gauge
	lights []*Light
	scope  *Scope
}

// New validates the config and builds one gauge per spec, one light per
// process reading and the scope.
func New(config Config) (*Panel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Panel{
		scope: NewScope(config.ScopeMin, config.ScopeMax, config.ScrollSpeed),
	}
	for _, spec := range config.Gauges {
		p.gauges = append(p.gauges, NewGauge(spec, config.Smoothing, config.NeedleSweep))
	}
	for _, r := range plant.ProcessReadings {
		p.lights = append(p.lights, NewLight(r, config.WarningMargin))
	}
	return p, nil
}

// Update refreshes every element from a plant snapshot.
func (p *Panel) Update(st plant.State, dt time.Duration) {
	if dt < 0 {
		return
	}
	secs := dt.Seconds()
	for _, g := range p.gauges {
		g.Update(st, secs)
	}
	for _, l := range p.lights {
		l.Update(st)
	}
	p.scope.Update(st, secs)
}

func (p *Panel) Gauges() []*Gauge { return p.gauges }
func (p *Panel) Lights() []*Light { return p.lights }
func (p *Panel) Scope() *Scope    { return p.scope }

// Gauge returns the first gauge bound to r.
func (p *Panel) Gauge(r plant.Reading) (*Gauge, bool) {
	for _, g := range p.gauges {
		if g.Reading() == r {
			return g, true
		}
	}
	return nil, false
}

// Elements lists every freezable element, for binding to the freeze anomaly.
func (p *Panel) Elements() []freeze.Freezable {
	out := make([]freeze.Freezable, 0, len(p.gauges)+len(p.lights)+1)
	for _, g := range p.gauges {
		out = append(out, g)
	}
	for _, l := range p.lights {
		out = append(out, l)
	}
	return append(out, p.scope)
}

// Probes exposes the gauges to record evaluation.
func (p *Panel) Probes() []eval.Probe {
	out := make([]eval.Probe, 0, len(p.gauges))
	for _, g := range p.gauges {
		out = append(out, g)
	}
	return out
}

// #endregion panel

// #region view

// GaugeView is what one gauge currently shows.
type GaugeView struct {
	Reading plant.Reading `json:"reading"`
	Value   float64       `json:"value"`
	InGreen bool          `json:"in_green"`
	Frozen  bool          `json:"frozen"`
}

// LightView is what one status light currently shows.
type LightView struct {
	Reading plant.Reading `json:"reading"`
	Color   string        `json:"color"`
	Frozen  bool          `json:"frozen"`
}

// View is a copy of every display value, taken between ticks.
type View struct {
	Gauges         []GaugeView `json:"gauges"`
	Lights         []LightView `json:"lights"`
	ScopeIntensity float64     `json:"scope_intensity"`
	ScopeFrozen    bool        `json:"scope_frozen"`
}

// View snapshots the panel.
func (p *Panel) View() View {
	v := View{
		Gauges:         make([]GaugeView, 0, len(p.gauges)),
		Lights:         make([]LightView, 0, len(p.lights)),
		ScopeIntensity: p.scope.Intensity(),
		ScopeFrozen:    p.scope.Frozen(),
	}
	for _, g := range p.gauges {
		v.Gauges = append(v.Gauges, GaugeView{Reading: g.Reading(), Value: g.Value(), InGreen: g.InGreen(), Frozen: g.Frozen()})
	}
	for _, l := range p.lights {
		v.Lights = append(v.Lights, LightView{Reading: l.Reading(), Color: l.Color().String(), Frozen: l.Frozen()})
	}
	return v
}

// String renders the view on one line, e.g.
//
//	Pressure:22.2 Flow:26.3 Temperature:30.0 | lights green green green | scope 0.85
//
// A frozen element is suffixed with "=".
func (v View) String() string {
	var b strings.Builder
	for i, g := range v.Gauges {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%.1f%s", g.Reading, g.Value, frozenMark(g.Frozen))
	}
	b.WriteString(" | lights")
	for _, l := range v.Lights {
		fmt.Fprintf(&b, " %s%s", l.Color, frozenMark(l.Frozen))
	}
	fmt.Fprintf(&b, " | scope %.2f%s", v.ScopeIntensity, frozenMark(v.ScopeFrozen))
	return b.String()
}

func frozenMark(frozen bool) string {
	if frozen {
		return "="
	}
	return ""
}

// #endregion view

// #region helpers

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func inverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return clamp01((v - a) / (b - a))
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
