package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/logging"
	"github.com/danielpatrickdp/process-panel/internal/plant"
)

const tick = 100 * time.Millisecond

func newTarget(t *testing.T) *plant.Plant {
	t.Helper()
	p, err := plant.New(plant.DefaultConfig())
	if err != nil {
		t.Fatalf("plant.New: %v", err)
	}
	return p
}

func newScheduler(t *testing.T, target Target, events logging.Sink) *Scheduler {
	t.Helper()
	s, err := NewScheduler(DefaultConfig(), target, nil, events)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

// run ticks plant and scheduler together, as the engine does.
func run(p *plant.Plant, s *Scheduler, total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += tick {
		p.Advance(tick)
		s.Tick(tick)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"negative offset", func(c *Config) { c.PressureAt = -time.Second }},
		{"flow before pressure", func(c *Config) { c.FlowAt = 10 * time.Second }},
		{"zero drift", func(c *Config) { c.DriftDuration = 0 }},
		{"NaN pressure target", func(c *Config) { c.PressureTarget = math.NaN() }},
		{"infinite flow target", func(c *Config) { c.FlowTarget = math.Inf(-1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mod(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestNewSchedulerNeedsTarget(t *testing.T) {
	if _, err := NewScheduler(DefaultConfig(), nil, nil, nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}

func TestIdleUntilBegin(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)

	run(p, s, 20*time.Second)

	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", s.Phase())
	}
	if s.Timeline().PressureStart.Set {
		t.Fatal("no anomaly should start before Begin")
	}
}

func TestPressureDriftAndLock(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)
	s.Begin()

	run(p, s, 15*time.Second)
	if s.Phase() != PhaseDriftingPressure {
		t.Fatalf("expected drifting pressure at 15s, got %s", s.Phase())
	}
	if got := s.Timeline().PressureStart; !got.Set || got.At != 15*time.Second {
		t.Fatalf("expected pressure start at 15s, got %v", got)
	}
	startValue := p.Pressure()

	run(p, s, 2500*time.Millisecond)
	mid := p.Pressure()
	if !(mid > startValue && mid < 45) {
		t.Fatalf("expected pressure between %f and 45 mid-drift, got %f", startValue, mid)
	}
	if p.Locks().Pressure {
		t.Fatal("pressure locked before drift completed")
	}

	run(p, s, 2500*time.Millisecond)
	if p.Pressure() != 45 {
		t.Fatalf("expected exact target 45 after drift, got %f", p.Pressure())
	}
	if !p.Locks().Pressure {
		t.Fatal("expected pressure locked after drift")
	}
	if s.Phase() != PhaseAwaitingFlow {
		t.Fatalf("expected awaiting flow, got %s", s.Phase())
	}
}

func TestFullSequence(t *testing.T) {
	p := newTarget(t)
	var kinds []logging.EventKind
	s := newScheduler(t, p, logging.SinkFunc(func(ev logging.Event) { kinds = append(kinds, ev.Kind) }))
	s.Begin()

	run(p, s, 40*time.Second)

	if s.Phase() != PhaseDone {
		t.Fatalf("expected done, got %s", s.Phase())
	}
	if p.Flow() != 5 || !p.Locks().Flow {
		t.Fatalf("expected flow locked at 5, got %f locked=%v", p.Flow(), p.Locks().Flow)
	}
	if p.Pressure() != 45 || !p.Locks().Pressure {
		t.Fatalf("expected pressure still locked at 45, got %f locked=%v", p.Pressure(), p.Locks().Pressure)
	}
	tl := s.Timeline()
	if tl.FlowStart.At != 30*time.Second {
		t.Fatalf("expected flow start at 30s, got %v", tl.FlowStart)
	}

	want := []logging.EventKind{
		logging.EventPressureDrift, logging.EventPressureLocked,
		logging.EventFlowDrift, logging.EventFlowLocked,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestLockSurvivesSchedulerCompletion(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)
	s.Begin()

	run(p, s, 60*time.Second)

	if !p.Locks().Pressure || !p.Locks().Flow {
		t.Fatal("locks must persist after the sequence ends until the operator acts")
	}
}

func TestBeginTwiceLeavesOneSequence(t *testing.T) {
	p := newTarget(t)
	var starts int
	s := newScheduler(t, p, logging.SinkFunc(func(ev logging.Event) {
		if ev.Kind == logging.EventPressureDrift {
			starts++
		}
	}))

	s.Begin()
	run(p, s, 17*time.Second) // mid pressure drift
	s.Begin()

	if p.Locks().Any() {
		t.Fatal("Begin should clear locks")
	}
	if s.Timeline().PressureStart.Set {
		t.Fatal("Begin should reset the timeline")
	}
	if s.Clock() != 0 {
		t.Fatalf("expected clock reset, got %v", s.Clock())
	}

	run(p, s, 15*time.Second)
	if got := s.Timeline().PressureStart.At; got != 15*time.Second {
		t.Fatalf("expected restarted pressure start at 15s, got %v", got)
	}
	if starts != 2 {
		t.Fatalf("expected exactly two drift starts across both runs, got %d", starts)
	}
}

func TestBeginWhileLockedClearsLocks(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)
	s.Begin()
	run(p, s, 40*time.Second)

	s.Begin()

	if p.Locks().Any() {
		t.Fatal("expected locks cleared")
	}
	if s.Phase() != PhaseAwaitingPressure {
		t.Fatalf("expected awaiting pressure, got %s", s.Phase())
	}
}

func TestCoarseTickDoesNotOvershoot(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)
	s.Begin()

	s.Tick(15 * time.Second) // starts pressure drift
	s.Tick(20 * time.Second) // longer than the drift window

	if p.Pressure() != 45 {
		t.Fatalf("expected pressure clamped to target, got %f", p.Pressure())
	}
	// same tick reaches the flow offset and starts its drift
	if s.Phase() != PhaseDriftingFlow {
		t.Fatalf("expected drifting flow, got %s", s.Phase())
	}
}

func TestNegativeTickIgnored(t *testing.T) {
	p := newTarget(t)
	s := newScheduler(t, p, nil)
	s.Begin()
	s.Tick(-time.Second)
	if s.Clock() != 0 {
		t.Fatalf("negative tick moved the clock to %v", s.Clock())
	}
}

func TestMarkString(t *testing.T) {
	if got := (Mark{}).String(); got != "-" {
		t.Errorf("unset mark = %q", got)
	}
	if got := MarkAt(1500 * time.Millisecond).String(); got != "1.5s" {
		t.Errorf("set mark = %q", got)
	}
}
