package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/plant"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scenario.RecordInterval != 15*time.Second {
		t.Errorf("expected 15s record interval, got %v", cfg.Scenario.RecordInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected info log level, got %q", cfg.Logging.Level)
	}
	if cfg.Journal.Path != "" {
		t.Errorf("expected in-memory journal by default, got %q", cfg.Journal.Path)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	path := writeConfig(t, `
scenario:
  record_interval: 10s
  records_to_complete: 4
anomaly:
  pressure_target: 48
plant:
  flow_range: {min: 12, max: 38}
logging:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Scenario.RecordInterval != 10*time.Second || cfg.Scenario.RecordsToComplete != 4 {
		t.Fatalf("scenario not loaded: %+v", cfg.Scenario)
	}
	if cfg.Anomaly.PressureTarget != 48 {
		t.Errorf("expected pressure target 48, got %f", cfg.Anomaly.PressureTarget)
	}
	if cfg.Anomaly.FlowAt != 30*time.Second {
		t.Errorf("unset keys should keep defaults, got flow_at %v", cfg.Anomaly.FlowAt)
	}
	if cfg.Plant.FlowRange != (plant.Band{Min: 12, Max: 38}) {
		t.Errorf("unexpected flow range %+v", cfg.Plant.FlowRange)
	}
	if cfg.Plant.PressureRange != plant.DefaultConfig().PressureRange {
		t.Errorf("pressure range should keep default, got %+v", cfg.Plant.PressureRange)
	}
	if cfg.Scenario.FreezeAfterRecord != 2 {
		t.Errorf("expected default freeze_after_record, got %d", cfg.Scenario.FreezeAfterRecord)
	}
}

func TestGaugesByReadingName(t *testing.T) {
	cfg, err := Parse([]byte(`
panel:
  gauges:
    - reading: Temperature
      scale: {min: 0, max: 60}
      green: {min: 18, max: 42}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Panel.Gauges) != 1 || cfg.Panel.Gauges[0].Reading != plant.Temperature {
		t.Fatalf("unexpected gauges %+v", cfg.Panel.Gauges)
	}
}

func TestSchemaRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown top-level key", "plnat: {}\n"},
		{"unknown nested key", "scenario:\n  record_intervall: 10s\n"},
		{"bare number duration", "scenario:\n  record_interval: 15\n"},
		{"bad duration unit", "anomaly:\n  drift_duration: 5 seconds\n"},
		{"zero records", "scenario:\n  records_to_complete: 0\n"},
		{"unknown reading", "panel:\n  gauges:\n    - {reading: Humidity, scale: {min: 0, max: 1}, green: {min: 0, max: 1}}\n"},
		{"band missing max", "plant:\n  pressure_range: {min: 10}\n"},
		{"negative rate", "plant:\n  auto_rate: -1\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
		{"knob step too large", "sim:\n  knob_step: 2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}

func TestValidateCatchesSemanticErrors(t *testing.T) {
	// schema-valid but inverted band
	cfg, err := Parse([]byte("plant:\n  pressure_range: {min: 40, max: 10}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, plant.ErrInvalidBand) {
		t.Fatalf("expected ErrInvalidBand, got %v", err)
	}

	cfg, err = Parse([]byte("anomaly:\n  pressure_at: 40s\n  flow_at: 20s\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for flow_at before pressure_at")
	}
}

func TestEmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("   \n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Scenario != Default().Scenario {
		t.Fatal("expected defaults for empty document")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	out, err := Default().YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	cfg, err := Parse(out)
	if err != nil {
		t.Fatalf("effective config should satisfy its own schema: %v\n%s", err, out)
	}
	if cfg.Anomaly != Default().Anomaly {
		t.Fatalf("round trip changed anomaly config: %+v", cfg.Anomaly)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PANELSIM_LOG_LEVEL", "trace")
	t.Setenv("PANELSIM_RECORD_INTERVAL", "5s")
	t.Setenv("PANELSIM_RECORDS", "2")
	t.Setenv("PANELSIM_KNOB_STEP", "0.25")
	t.Setenv("PANELSIM_JOURNAL", "/tmp/panelsim.db")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("expected trace, got %q", cfg.Logging.Level)
	}
	if cfg.Scenario.RecordInterval != 5*time.Second || cfg.Scenario.RecordsToComplete != 2 {
		t.Errorf("scenario overrides not applied: %+v", cfg.Scenario)
	}
	if cfg.Sim.KnobStep != 0.25 {
		t.Errorf("expected knob step 0.25, got %f", cfg.Sim.KnobStep)
	}
	if cfg.Journal.Path != "/tmp/panelsim.db" {
		t.Errorf("unexpected journal path %q", cfg.Journal.Path)
	}
}

func TestEnvOverrideMalformed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PANELSIM_RECORD_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestEnvOverrideNonFiniteKnobStep(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-inf"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("PANELSIM_KNOB_STEP", v)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for knob step %s", v)
			}
		})
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name string
		mod  func(*File)
	}{
		{"knob step", func(c *File) { c.Sim.KnobStep = nan }},
		{"band edge", func(c *File) { c.Plant.FlowRange.Max = nan }},
		{"rate", func(c *File) { c.Plant.ControlRate = nan }},
		{"unlock threshold", func(c *File) { c.Plant.UnlockThreshold = nan }},
		{"drift target", func(c *File) { c.Anomaly.PressureTarget = nan }},
		{"smoothing", func(c *File) { c.Panel.Smoothing = nan }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, "scenario:\n  records_to_complete: 5\n")
	t.Setenv("PANELSIM_RECORDS", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scenario.RecordsToComplete != 6 {
		t.Fatalf("environment should win over file, got %d", cfg.Scenario.RecordsToComplete)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSimConfig(t *testing.T) {
	cfg := Default()
	cfg.Sim.KnobStep = 0.2
	sc := cfg.SimConfig()
	if sc.KnobStep != 0.2 || sc.Scenario != cfg.Scenario {
		t.Fatalf("unexpected sim config %+v", sc)
	}
	if len(sc.Eval.Readings) != 3 {
		t.Fatalf("expected default eval readings, got %v", sc.Eval.Readings)
	}
}
