package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/danielpatrickdp/process-panel/internal/replay"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <fixture.json>...",
		Short: "Replay operator-script fixtures and compare the results",
		Long: `Replay operator-script fixtures and compare the results.

Each fixture scripts operator commands at simulated times and lists the
expected record verdicts and debrief phrases. The command fails when any
replayed result diverges from its fixture.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			jsonOut, _ := cmd.Flags().GetBool("json")

			var reports []fixtureReport
			diverged := 0
			for _, path := range args {
				report, err := replayFixture(path, log)
				if err != nil {
					return err
				}
				diverged += report.Diverge
				reports = append(reports, report)
			}

			if jsonOut {
				if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					printComparison(cmd.OutOrStdout(), r)
				}
			}
			if diverged > 0 {
				return fmt.Errorf("%d replayed results diverge from their fixtures", diverged)
			}
			return nil
		},
	}
}

type fixtureReport struct {
	Fixture     string               `json:"fixture"`
	Description string               `json:"description"`
	Summary     replay.ReplaySummary `json:"summary"`
	Comparisons []replay.Comparison  `json:"comparisons"`
	Match       int                  `json:"match"`
	Diverge     int                  `json:"diverge"`
}

func replayFixture(path string, log *slog.Logger) (fixtureReport, error) {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return fixtureReport{}, err
	}
	steps, err := f.ToSteps()
	if err != nil {
		return fixtureReport{}, fmt.Errorf("fixture %s: %w", path, err)
	}
	result, err := replay.Replay(steps, f.ToReplayConfig(), log, nil)
	if err != nil {
		return fixtureReport{}, fmt.Errorf("fixture %s: %w", path, err)
	}

	report := fixtureReport{
		Fixture:     path,
		Description: f.Description,
		Summary:     replay.Summarize(result),
		Comparisons: replay.Compare(f, result),
	}
	for _, c := range report.Comparisons {
		if c.Match {
			report.Match++
		} else {
			report.Diverge++
		}
	}
	log.Info("fixture replayed", "fixture", path, "match", report.Match, "diverge", report.Diverge)
	return report, nil
}

// printComparison outputs one fixture's comparison table.
func printComparison(w io.Writer, r fixtureReport) {
	fmt.Fprintf(w, "%s\n", r.Fixture)
	if r.Description != "" {
		fmt.Fprintf(w, "  %s\n", r.Description)
	}
	fmt.Fprintf(w, "%-16s| %-20s| %-20s| %s\n", "Check", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-16s+%-21s+%-21s+%s\n",
		"----------------", "---------------------", "---------------------", "------")

	for _, c := range r.Comparisons {
		match := "DIFF"
		if c.Match {
			match = "OK"
		}
		fmt.Fprintf(w, "%-16s| %-20s| %-20s| %s\n", c.Label, truncate(c.Expected, 20), truncate(c.Replayed, 20), match)
	}

	fmt.Fprintf(w, "\nSummary: %d checks, %d match, %d diverge (records %d, ok %d, check %d)\n\n",
		len(r.Comparisons), r.Match, r.Diverge, r.Summary.TotalRecords, r.Summary.Passed, r.Summary.Checks)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
