// Package config provides unified configuration loading for panelsim.
// It supports loading from YAML files and environment variables. Every file
// is checked against an embedded JSON Schema before it is decoded.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/eval"
	"github.com/danielpatrickdp/process-panel/internal/panel"
	"github.com/danielpatrickdp/process-panel/internal/plant"
	"github.com/danielpatrickdp/process-panel/internal/scenario"
	"github.com/danielpatrickdp/process-panel/internal/sim"
)

// ErrSchema wraps every schema violation.
var ErrSchema = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "panelsim.schema.json"

// #region types

// File contains all panelsim configuration settings.
type File struct {
	Plant    plant.Config    `json:"plant" yaml:"plant"`
	Anomaly  anomaly.Config  `json:"anomaly" yaml:"anomaly"`
	Scenario scenario.Config `json:"scenario" yaml:"scenario"`
	Panel    panel.Config    `json:"panel" yaml:"panel"`

	// Sim holds operator input and real-time loop settings.
	Sim SimConfig `json:"sim" yaml:"sim"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Journal configures the run event journal.
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// SimConfig configures the engine driver.
type SimConfig struct {
	KnobStep     float64       `json:"knob_step" yaml:"knob_step"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"`
}

// LoggingConfig configures panelsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" logs every tick.
	Level string `json:"level" yaml:"level"`
}

// JournalConfig configures where run events are stored.
type JournalConfig struct {
	// Path is the SQLite file. Empty keeps the journal in memory.
	Path string `json:"path" yaml:"path"`
}

// #endregion types

// #region load

// Default returns a File with the standard scenario.
func Default() *File {
	d := sim.DefaultConfig()
	return &File{
		Plant:    d.Plant,
		Anomaly:  d.Anomaly,
		Scenario: d.Scenario,
		Panel:    d.Panel,
		Sim: SimConfig{
			KnobStep:     d.KnobStep,
			TickInterval: d.TickInterval,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from path, or from ~/.panelsim/config.yaml when
// path is empty and that file exists, then applies environment overrides.
// Order: defaults -> file -> environment variables
func Load(path string) (*File, error) {
	config := Default()

	if path == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(homeDir, ".panelsim", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML document against the schema and decodes it over
// the defaults.
func Parse(data []byte) (*File, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	config := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return config, nil
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// #endregion load

// #region schema

// ValidateDocument checks a YAML document against the embedded schema.
func ValidateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// the validator expects JSON-decoded values
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}

	schema, err := compileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// #endregion schema

// #region validate

// Validate checks that the configuration is valid.
func (c *File) Validate() error {
	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return c.SimConfig().Validate()
}

// SimConfig converts the file into an engine configuration.
func (c *File) SimConfig() sim.Config {
	return sim.Config{
		Plant:        c.Plant,
		Anomaly:      c.Anomaly,
		Scenario:     c.Scenario,
		Panel:        c.Panel,
		Eval:         eval.DefaultConfig(),
		KnobStep:     c.Sim.KnobStep,
		TickInterval: c.Sim.TickInterval,
	}
}

// YAML renders the effective configuration.
func (c *File) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// #endregion validate

// #region env

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numeric or duration values are errors rather than ignored.
func applyEnvOverrides(config *File) error {
	if v := os.Getenv("PANELSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PANELSIM_JOURNAL"); v != "" {
		config.Journal.Path = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"PANELSIM_RECORD_INTERVAL", &config.Scenario.RecordInterval},
		{"PANELSIM_SUMMARY_DELAY", &config.Scenario.SummaryDelay},
		{"PANELSIM_TICK_INTERVAL", &config.Sim.TickInterval},
	}
	for _, d := range durations {
		if v := os.Getenv(d.name); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", d.name, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("PANELSIM_RECORDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PANELSIM_RECORDS: %w", err)
		}
		config.Scenario.RecordsToComplete = n
	}
	if v := os.Getenv("PANELSIM_KNOB_STEP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PANELSIM_KNOB_STEP: %w", err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("PANELSIM_KNOB_STEP: %q is not a finite number", v)
		}
		config.Sim.KnobStep = f
	}
	return nil
}

// #endregion env
