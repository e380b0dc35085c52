package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/scenario"
)

// #region realtime

// Run drives e in real time. Each ticker fire advances the engine by the
// measured wall-clock time since the previous fire. Commands are applied
// between ticks on the same goroutine, so the engine is never shared.
// Run returns ctx.Err() on cancellation, nil when commands is closed, or
// the first tick error. A nil commands channel is never read.
func Run(ctx context.Context, e *Engine, interval time.Duration, commands <-chan Command) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			e.Apply(cmd)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := e.Tick(dt); err != nil {
				return err
			}
		}
	}
}

// #endregion realtime

// #region headless

// Operator decides what to do between fixed steps of a headless run.
// It is called after every tick.
type Operator func(e *Engine)

// AutoRecord presses record whenever the scenario is waiting for one.
func AutoRecord(e *Engine) {
	if e.State() == scenario.WaitingForRecord {
		e.RecordPressed()
	}
}

// Simulate advances e by fixed steps of dt for total simulated time, calling
// op after each tick. It stops early once the summary is ready when
// stopOnSummary is set. It returns the simulated time actually run.
func Simulate(e *Engine, dt, total time.Duration, op Operator, stopOnSummary bool) (time.Duration, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("simulate: step must be positive, got %v", dt)
	}
	var ran time.Duration
	for ran < total {
		if err := e.Tick(dt); err != nil {
			return ran, err
		}
		ran += dt
		if op != nil {
			op(e)
		}
		if stopOnSummary {
			if _, ready := e.Summary(); ready {
				break
			}
		}
	}
	return ran, nil
}

// #endregion headless
