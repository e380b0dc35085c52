package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/sim"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Times are
// seconds of simulated time.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Run             FixtureRun              `json:"run"`
	Steps           []FixtureStep           `json:"steps"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
	ExpectedSummary []string                `json:"expected_summary"`
}

// FixtureConfig overrides parts of the default engine config. Absent fields
// keep their defaults.
type FixtureConfig struct {
	RecordIntervalSeconds *float64 `json:"record_interval_seconds,omitempty"`
	RecordsToComplete     *int     `json:"records_to_complete,omitempty"`
	FreezeAfterRecord     *int     `json:"freeze_after_record,omitempty"`
	SummaryDelaySeconds   *float64 `json:"summary_delay_seconds,omitempty"`
	PressureTarget        *float64 `json:"pressure_target,omitempty"`
	FlowTarget            *float64 `json:"flow_target,omitempty"`
	DriftSeconds          *float64 `json:"drift_seconds,omitempty"`
	KnobStep              *float64 `json:"knob_step,omitempty"`
}

// FixtureRun configures the fixed-step driver.
type FixtureRun struct {
	StepSeconds     float64 `json:"step_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	AutoRecord      bool    `json:"auto_record"`
}

// FixtureStep is one scripted operator command in its text form.
type FixtureStep struct {
	At      float64 `json:"at"`
	Command string  `json:"command"`
}

// FixtureExpectedResult captures the expected verdict per record. Line is
// compared only when set.
type FixtureExpectedResult struct {
	Index    int    `json:"index"`
	AllGreen bool   `json:"all_green"`
	Line     string `json:"line,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToStep converts a FixtureStep to a Step.
func (fs *FixtureStep) ToStep() (Step, error) {
	cmd, err := sim.ParseCommand(fs.Command)
	if err != nil {
		return Step{}, fmt.Errorf("step at %.1fs: %w", fs.At, err)
	}
	return Step{At: seconds(fs.At), Command: cmd}, nil
}

// ToSteps converts every scripted step.
func (f *Fixture) ToSteps() ([]Step, error) {
	steps := make([]Step, len(f.Steps))
	for i := range f.Steps {
		s, err := f.Steps[i].ToStep()
		if err != nil {
			return nil, err
		}
		steps[i] = s
	}
	return steps, nil
}

// ToReplayConfig overlays the fixture onto DefaultReplayConfig.
func (f *Fixture) ToReplayConfig() ReplayConfig {
	config := DefaultReplayConfig()
	fc := f.Config
	if fc.RecordIntervalSeconds != nil {
		config.Sim.Scenario.RecordInterval = seconds(*fc.RecordIntervalSeconds)
	}
	if fc.RecordsToComplete != nil {
		config.Sim.Scenario.RecordsToComplete = *fc.RecordsToComplete
	}
	if fc.FreezeAfterRecord != nil {
		config.Sim.Scenario.FreezeAfterRecord = *fc.FreezeAfterRecord
	}
	if fc.SummaryDelaySeconds != nil {
		config.Sim.Scenario.SummaryDelay = seconds(*fc.SummaryDelaySeconds)
	}
	if fc.PressureTarget != nil {
		config.Sim.Anomaly.PressureTarget = *fc.PressureTarget
	}
	if fc.FlowTarget != nil {
		config.Sim.Anomaly.FlowTarget = *fc.FlowTarget
	}
	if fc.DriftSeconds != nil {
		config.Sim.Anomaly.DriftDuration = seconds(*fc.DriftSeconds)
	}
	if fc.KnobStep != nil {
		config.Sim.KnobStep = *fc.KnobStep
	}

	if f.Run.StepSeconds > 0 {
		config.Step = seconds(f.Run.StepSeconds)
	}
	if f.Run.DurationSeconds > 0 {
		config.Duration = seconds(f.Run.DurationSeconds)
	}
	config.AutoRecord = f.Run.AutoRecord
	return config
}

// seconds converts fixture seconds to a Duration at millisecond precision.
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

// #endregion fixture-loader

// #region compare

// Comparison is one expected-versus-replayed check.
type Comparison struct {
	Label    string `json:"label"`
	Expected string `json:"expected"`
	Replayed string `json:"replayed"`
	Match    bool   `json:"match"`
}

// Compare checks result against the fixture's expectations. Records the
// fixture does not mention are not compared.
func Compare(f *Fixture, result ReplayResult) []Comparison {
	var out []Comparison
	for _, exp := range f.ExpectedResults {
		label := fmt.Sprintf("record %d", exp.Index)
		if exp.Index < 1 || exp.Index > len(result.Records) {
			out = append(out, Comparison{Label: label, Expected: verdict(exp.AllGreen), Replayed: "missing"})
			continue
		}
		rec := result.Records[exp.Index-1]
		out = append(out, Comparison{
			Label:    label,
			Expected: verdict(exp.AllGreen),
			Replayed: verdict(rec.AllGreen),
			Match:    exp.AllGreen == rec.AllGreen,
		})
		if exp.Line != "" {
			got := ""
			if exp.Index <= len(result.Lines) {
				got = result.Lines[exp.Index-1]
			}
			out = append(out, Comparison{Label: label + " line", Expected: exp.Line, Replayed: got, Match: got == exp.Line})
		}
	}
	for _, want := range f.ExpectedSummary {
		found := result.SummaryReady && strings.Contains(result.Summary, want)
		got := "absent"
		if found {
			got = "present"
		}
		out = append(out, Comparison{Label: "summary", Expected: want, Replayed: got, Match: found})
	}
	return out
}

func verdict(allGreen bool) string {
	if allGreen {
		return "OK"
	}
	return "CHECK"
}

// #endregion compare
