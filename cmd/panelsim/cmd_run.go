package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/config"
	"github.com/danielpatrickdp/process-panel/internal/journal"
	"github.com/danielpatrickdp/process-panel/internal/panel"
	"github.com/danielpatrickdp/process-panel/internal/scenario"
	"github.com/danielpatrickdp/process-panel/internal/sim"
	"github.com/spf13/cobra"
)

// #region command

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the training scenario",
		Long: `Run the training scenario.

By default the scenario runs headless in fixed simulated steps and record is
pressed as soon as each countdown ends. With --interactive the simulation
runs in real time, a panel status line is printed on every scenario change
and once a second, and operator commands are read from stdin, one per line:

  p+ p-   raise or lower the pump speed
  v+ v-   open or close the valve
  m       toggle manual/automatic mode
  r       press record
  s       start (or restart) the scenario

Every run is written to the journal. Use --journal to keep it on disk.

Examples:
  panelsim run
  panelsim run --journal runs.db --label trial-3
  panelsim run --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if path, _ := cmd.Flags().GetString("journal"); path != "" {
				cfg.Journal.Path = path
			}
			interactive, _ := cmd.Flags().GetBool("interactive")
			label, _ := cmd.Flags().GetString("label")
			jsonOut, _ := cmd.Flags().GetBool("json")

			opts := headlessOptions{}
			opts.step, _ = cmd.Flags().GetDuration("step")
			opts.duration, _ = cmd.Flags().GetDuration("duration")
			noAuto, _ := cmd.Flags().GetBool("no-auto-record")
			opts.autoRecord = !noAuto

			return runScenario(cmd, cfg, label, interactive, jsonOut, opts)
		},
	}

	cmd.Flags().Bool("interactive", false, "Run in real time reading operator commands from stdin")
	cmd.Flags().String("journal", "", "Journal database path (overrides config; empty keeps it in memory)")
	cmd.Flags().String("label", "", "Label stored with the run in the journal")
	cmd.Flags().Duration("step", 100*time.Millisecond, "Simulated time per headless step")
	cmd.Flags().Duration("duration", 2*time.Minute, "Maximum simulated time for a headless run")
	cmd.Flags().Bool("no-auto-record", false, "Do not press record automatically in headless mode")

	return cmd
}

type headlessOptions struct {
	step       time.Duration
	duration   time.Duration
	autoRecord bool
}

// #endregion command

// #region run

type runOutput struct {
	RunID   string         `json:"run_id"`
	Records []recordOutput `json:"records"`
	Lines   []string       `json:"lines"`
	Summary string         `json:"summary,omitempty"`
	Panel   panel.View     `json:"panel"`
}

type recordOutput struct {
	Index     int     `json:"index"`
	AtSeconds float64 `json:"at_seconds"`
	AllGreen  bool    `json:"all_green"`
	Reason    string  `json:"reason"`
}

func runScenario(cmd *cobra.Command, cfg *config.File, label string, interactive, jsonOut bool, opts headlessOptions) error {
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	store, err := journal.NewStore(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	run, err := store.BeginRun(label, string(configJSON))
	if err != nil {
		return err
	}
	log.Info("run started", "run_id", run.RunID, "journal", cfg.Journal.Path)

	sink := store.Sink(run.RunID, log)
	defer sink.Close()
	engine, err := sim.NewEngine(cfg.SimConfig(), log, sink)
	if err != nil {
		return err
	}
	if !jsonOut {
		engine.OnLine(func(line string) { fmt.Fprintln(out, line) })
		engine.OnSummary(func(s string) { fmt.Fprintf(out, "\n%s", s) })
	}

	if interactive {
		statusOut := out
		if jsonOut {
			statusOut = cmd.ErrOrStderr()
		}
		engine.OnTick((&statusPrinter{w: statusOut, every: time.Second}).tick)
		err = runInteractive(cmd, engine, cfg.Sim.TickInterval)
	} else {
		err = runHeadless(engine, opts)
	}
	if err != nil {
		return err
	}

	if dropped := sink.Close(); dropped > 0 {
		log.Warn("journal dropped events", "run_id", run.RunID, "dropped", dropped)
	}
	summary, _ := engine.Summary()
	if err := store.FinishRun(run.RunID, summary); err != nil {
		return err
	}
	log.Info("run finished", "run_id", run.RunID, "records", len(engine.Records()))

	if jsonOut {
		return printJSON(out, buildRunOutput(run.RunID, engine))
	}
	return nil
}

func runHeadless(engine *sim.Engine, opts headlessOptions) error {
	var op sim.Operator
	if opts.autoRecord {
		op = sim.AutoRecord
	}
	engine.StartScenario()
	_, err := sim.Simulate(engine, opts.step, opts.duration, op, true)
	return err
}

// runInteractive drives the engine in real time until stdin closes or the
// process is interrupted.
func runInteractive(cmd *cobra.Command, engine *sim.Engine, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.ErrOrStderr(), "commands: p+ p- v+ v- m r s (Ctrl-D to quit)")
	commands := make(chan sim.Command)
	go readCommands(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), commands)

	err := sim.Run(ctx, engine, interval, commands)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readCommands parses one command per line and closes commands at EOF.
func readCommands(ctx context.Context, in io.Reader, errOut io.Writer, commands chan<- sim.Command) {
	defer close(commands)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		c, err := sim.ParseCommand(text)
		if err != nil {
			fmt.Fprintln(errOut, err)
			continue
		}
		select {
		case commands <- c:
		case <-ctx.Done():
			return
		}
	}
}

// statusPrinter writes the countdown and panel readout whenever the scenario
// changes state, and every interval of simulated time while it is running.
type statusPrinter struct {
	w     io.Writer
	every time.Duration
	state scenario.State
	last  time.Duration
}

func (s *statusPrinter) tick(e *sim.Engine) {
	state, at := e.State(), e.Elapsed()
	changed := state != s.state
	s.state = state
	if state == scenario.Idle {
		return
	}
	if !changed && at >= s.last && at-s.last < s.every {
		return
	}
	s.last = at
	prompt := e.TimerText()
	if prompt == "" {
		prompt = state.String()
	}
	fmt.Fprintf(s.w, "[%6.1fs] %-22s | %s\n", at.Seconds(), prompt, e.Panel().View())
}

func buildRunOutput(runID string, engine *sim.Engine) runOutput {
	summary, _ := engine.Summary()
	out := runOutput{RunID: runID, Lines: engine.Lines(), Summary: summary, Panel: engine.Panel().View()}
	for _, r := range engine.Records() {
		out.Records = append(out.Records, recordOutput{
			Index:     r.Index,
			AtSeconds: r.At.Seconds(),
			AllGreen:  r.AllGreen,
			Reason:    r.Reason,
		})
	}
	return out
}

// #endregion run
