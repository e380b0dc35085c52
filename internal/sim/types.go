package sim

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
	"github.com/danielpatrickdp/process-panel/internal/eval"
	"github.com/danielpatrickdp/process-panel/internal/panel"
	"github.com/danielpatrickdp/process-panel/internal/plant"
	"github.com/danielpatrickdp/process-panel/internal/scenario"
)

// ErrNegativeStep is returned by Engine.Tick when time would run backward.
var ErrNegativeStep = errors.New("negative time step")

// #region config
// Config is the full engine configuration.
type Config struct {
	Plant    plant.Config
	Anomaly  anomaly.Config
	Scenario scenario.Config
	Panel    panel.Config
	Eval     eval.Config

	KnobStep     float64       // control change per knob command
	TickInterval time.Duration // real-time loop period
}

// DefaultConfig returns the standard scenario.
func DefaultConfig() Config {
	return Config{
		Plant:        plant.DefaultConfig(),
		Anomaly:      anomaly.DefaultConfig(),
		Scenario:     scenario.DefaultConfig(),
		Panel:        panel.DefaultConfig(),
		Eval:         eval.DefaultConfig(),
		KnobStep:     0.1,
		TickInterval: 50 * time.Millisecond,
	}
}

// Validate runs every component validator.
func (c Config) Validate() error {
	if err := c.Plant.Validate(); err != nil {
		return fmt.Errorf("plant: %w", err)
	}
	if err := c.Anomaly.Validate(); err != nil {
		return fmt.Errorf("anomaly: %w", err)
	}
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if err := c.Panel.Validate(); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	if !(c.KnobStep > 0 && c.KnobStep <= 1) {
		return fmt.Errorf("knob_step must be in (0, 1], got %.3f", c.KnobStep)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	return nil
}

// #endregion config

// #region command

// Command is one operator input.
type Command int

const (
	CmdPumpUp Command = iota + 1
	CmdPumpDown
	CmdValveUp
	CmdValveDown
	CmdToggleMode
	CmdRecord
	CmdStart
)

var commandNames = map[Command]string{
	CmdPumpUp:     "p+",
	CmdPumpDown:   "p-",
	CmdValveUp:    "v+",
	CmdValveDown:  "v-",
	CmdToggleMode: "m",
	CmdRecord:     "r",
	CmdStart:      "s",
}

// String returns the operator text for c.
func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseCommand maps operator text to a Command. Surrounding space is ignored.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for c, name := range commandNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q (want p+ p- v+ v- m r s)", s)
}

// #endregion command
