package replay

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/logging"
	"github.com/danielpatrickdp/process-panel/internal/scenario"
	"github.com/danielpatrickdp/process-panel/internal/sim"
)

// #region types

// Step is one scripted operator command.
type Step struct {
	At      time.Duration
	Command sim.Command
}

// ReplayConfig bundles the engine config with the fixed-step driver settings.
type ReplayConfig struct {
	Sim        sim.Config
	Step       time.Duration
	Duration   time.Duration
	AutoRecord bool
}

// DefaultReplayConfig returns the standard scenario stepped at 100ms for one
// simulated minute, pressing record whenever the scenario waits for it.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Sim:        sim.DefaultConfig(),
		Step:       100 * time.Millisecond,
		Duration:   time.Minute,
		AutoRecord: true,
	}
}

// StepResult captures whether a scripted command had an effect.
type StepResult struct {
	At      time.Duration
	Command sim.Command
	Applied bool
}

// ReplayResult captures the outcome of driving one script through the engine.
type ReplayResult struct {
	Steps        []StepResult
	Records      []scenario.Record
	Lines        []string
	Summary      string
	SummaryReady bool
	Timeline     anomaly.Timeline
	Ran          time.Duration
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalRecords  int  `json:"total_records"`
	Passed        int  `json:"passed"`
	Checks        int  `json:"checks"`
	Applied       int  `json:"applied"`
	Ignored       int  `json:"ignored"`
	FreezeCleared bool `json:"freeze_cleared"`
	SummaryReady  bool `json:"summary_ready"`
}

// #endregion types

// #region replay

// Replay runs steps through a fresh engine in fixed increments of
// config.Step. Steps due at or before the current simulated time are applied
// in order after each tick, before any automatic record press. Steps at zero
// are applied before the first tick. Everything stays in memory.
func Replay(steps []Step, config ReplayConfig, log *slog.Logger, events logging.Sink) (ReplayResult, error) {
	if config.Step <= 0 {
		return ReplayResult{}, fmt.Errorf("replay: step must be positive, got %v", config.Step)
	}
	engine, err := sim.NewEngine(config.Sim, log, events)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	pending := make([]Step, len(steps))
	copy(pending, steps)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].At < pending[j].At })

	results := make([]StepResult, 0, len(pending))
	var clock time.Duration
	applyDue := func(e *sim.Engine) {
		for len(pending) > 0 && pending[0].At <= clock {
			s := pending[0]
			pending = pending[1:]
			results = append(results, StepResult{At: s.At, Command: s.Command, Applied: e.Apply(s.Command)})
		}
	}

	applyDue(engine)
	ran, err := sim.Simulate(engine, config.Step, config.Duration, func(e *sim.Engine) {
		clock += config.Step
		applyDue(e)
		if config.AutoRecord {
			sim.AutoRecord(e)
		}
	}, false)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	summary, ready := engine.Summary()
	return ReplayResult{
		Steps:        results,
		Records:      engine.Records(),
		Lines:        engine.Lines(),
		Summary:      summary,
		SummaryReady: ready,
		Timeline:     engine.Timeline(),
		Ran:          ran,
	}, nil
}

// Summarize computes aggregate stats from a replay result.
func Summarize(result ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalRecords:  len(result.Records),
		FreezeCleared: result.Timeline.FreezeClear.Set,
		SummaryReady:  result.SummaryReady,
	}
	for _, r := range result.Records {
		if r.AllGreen {
			s.Passed++
		} else {
			s.Checks++
		}
	}
	for _, st := range result.Steps {
		if st.Applied {
			s.Applied++
		} else {
			s.Ignored++
		}
	}
	return s
}

// #endregion replay
