package freeze

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/logging"
)

type fakeElement struct {
	frozen bool
	calls  int
}

func (e *fakeElement) SetFrozen(frozen bool) {
	e.frozen = frozen
	e.calls++
}

type fakePlant struct {
	resets int
}

func (p *fakePlant) ResetToNormal() { p.resets++ }

type recorder struct {
	kinds []logging.EventKind
}

func (r *recorder) Emit(ev logging.Event) { r.kinds = append(r.kinds, ev.Kind) }

func TestTriggerFreezesElements(t *testing.T) {
	g, l := &fakeElement{}, &fakeElement{}
	a := New(&fakePlant{}, nil, nil, g, l)

	if !a.Trigger(30 * time.Second) {
		t.Fatal("expected first Trigger to activate")
	}
	if !a.Active() {
		t.Fatal("expected active")
	}
	if !g.frozen || !l.frozen {
		t.Fatal("expected all elements frozen")
	}
	if m := a.Started(); !m.Set || m.At != 30*time.Second {
		t.Fatalf("expected start mark at 30s, got %v", m)
	}
}

func TestTriggerWhileActiveIsNoop(t *testing.T) {
	g := &fakeElement{}
	rec := &recorder{}
	a := New(&fakePlant{}, nil, rec, g)

	a.Trigger(30 * time.Second)
	if a.Trigger(40 * time.Second) {
		t.Fatal("second Trigger should report false")
	}
	if a.Started().At != 30*time.Second {
		t.Fatalf("start mark moved to %v", a.Started())
	}
	if g.calls != 1 {
		t.Fatalf("expected one SetFrozen call, got %d", g.calls)
	}
	if len(rec.kinds) != 1 {
		t.Fatalf("expected one event, got %v", rec.kinds)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	g := &fakeElement{}
	rec := &recorder{}
	a := New(&fakePlant{}, nil, rec, g)

	if a.Clear() {
		t.Fatal("Clear on inactive freeze should report false")
	}
	a.Trigger(time.Second)
	if !a.Clear() {
		t.Fatal("expected Clear to release an active freeze")
	}
	if a.Clear() {
		t.Fatal("second Clear should be a no-op")
	}
	if g.frozen {
		t.Fatal("expected element released")
	}
	want := []logging.EventKind{logging.EventFreezeStart, logging.EventFreezeClear}
	if len(rec.kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.kinds)
	}
}

func TestAutoModeResolvesFreeze(t *testing.T) {
	g := &fakeElement{}
	p := &fakePlant{}
	a := New(p, nil, nil, g)
	a.Trigger(30 * time.Second)

	if !a.OnModeChanged(false, 36500*time.Millisecond) {
		t.Fatal("expected automatic selection to resolve the freeze")
	}
	if a.Active() || g.frozen {
		t.Fatal("expected freeze cleared")
	}
	if p.resets != 1 {
		t.Fatalf("expected one plant reset, got %d", p.resets)
	}
	if m := a.Cleared(); !m.Set || m.At != 36500*time.Millisecond {
		t.Fatalf("expected clear mark at 36.5s, got %v", m)
	}
}

func TestModeChangesThatDoNotResolve(t *testing.T) {
	cases := []struct {
		name    string
		trigger bool
		manual  bool
		plant   Resetter
	}{
		{"inactive auto", false, false, &fakePlant{}},
		{"active manual", true, true, &fakePlant{}},
		{"no plant bound", true, false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(tc.plant, nil, nil)
			if tc.trigger {
				a.Trigger(time.Second)
			}
			if a.OnModeChanged(tc.manual, 2*time.Second) {
				t.Fatal("expected no-op")
			}
			if a.Cleared().Set {
				t.Fatal("clear mark should stay unset")
			}
			if a.Active() != tc.trigger {
				t.Fatalf("active changed to %v", a.Active())
			}
		})
	}
}

func TestRetriggerClearsPreviousClearMark(t *testing.T) {
	a := New(&fakePlant{}, nil, nil)
	a.Trigger(time.Second)
	a.OnModeChanged(false, 2*time.Second)
	a.Trigger(3 * time.Second)
	if a.Cleared().Set {
		t.Fatal("expected clear mark reset on trigger")
	}
}

func TestResetUnfreezesAndForgets(t *testing.T) {
	g := &fakeElement{}
	a := New(&fakePlant{}, nil, nil, g)
	a.Trigger(time.Second)

	a.Reset()

	if a.Active() || g.frozen {
		t.Fatal("expected inactive and released")
	}
	if a.Started().Set || a.Cleared().Set {
		t.Fatal("expected marks cleared")
	}
}

func TestBindWhileActiveFreezes(t *testing.T) {
	a := New(&fakePlant{}, nil, nil)
	a.Trigger(time.Second)
	late := &fakeElement{}
	a.Bind(late, nil)
	if !late.frozen {
		t.Fatal("element bound during a freeze should be frozen")
	}
}
