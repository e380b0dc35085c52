package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielpatrickdp/process-panel/internal/journal"
	"github.com/danielpatrickdp/process-panel/internal/logging"
	"github.com/spf13/cobra"
)

// #region command

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Inspect runs stored in a journal",
		Long: `Inspect runs stored in a journal.

Without a run ID the most recent runs are listed. With a run ID the run's
events and debrief are shown.

Examples:
  panelsim inspect --journal runs.db
  panelsim inspect --journal runs.db --last 5
  panelsim inspect --journal runs.db 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("journal")
			if path == "" {
				path = cfg.Journal.Path
			}
			if path == "" || path == journal.MemoryPath {
				return errors.New("inspect needs a journal file (--journal or journal.path)")
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open journal: %w", err)
			}

			store, err := journal.NewStore(path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if len(args) == 1 {
				return runDetailMode(cmd.OutOrStdout(), store, args[0], jsonOut)
			}
			last, _ := cmd.Flags().GetInt("last")
			return runListMode(cmd.OutOrStdout(), store, last, jsonOut)
		},
	}

	cmd.Flags().String("journal", "", "Journal database path (overrides config)")
	cmd.Flags().Int("last", 20, "Show N most recent runs")

	return cmd
}

// #endregion command

// #region list-mode

type listRow struct {
	RunID      string `json:"run_id"`
	Label      string `json:"label,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Events     int    `json:"events"`
}

func runListMode(w io.Writer, store *journal.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}

	rows := make([]listRow, 0, len(runs))
	for _, r := range runs {
		events, err := store.ListEvents(r.RunID)
		if err != nil {
			return err
		}
		row := listRow{
			RunID:     r.RunID,
			Label:     r.Label,
			StartedAt: r.StartedAt.Format("2006-01-02T15:04:05Z"),
			Events:    len(events),
		}
		if r.Finished() {
			row.FinishedAt = r.FinishedAt.Format("2006-01-02T15:04:05Z")
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	fmt.Fprintf(w, "%-10s  %-16s  %-20s  %-20s  %s\n", "Run", "Label", "Started", "Finished", "Events")
	fmt.Fprintf(w, "%-10s+-%-16s+-%-20s+-%-20s+-%s\n",
		"----------", "----------------", "--------------------", "--------------------", "------")
	for _, r := range rows {
		finished := "-"
		if r.FinishedAt != "" {
			finished = r.FinishedAt
		}
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%-10s  %-16s  %-20s  %-20s  %d\n", shortID(r.RunID), label, r.StartedAt, finished, r.Events)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID      string        `json:"run_id"`
	Label      string        `json:"label,omitempty"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at,omitempty"`
	Events     []eventDetail `json:"events"`
	Summary    string        `json:"summary,omitempty"`
}

type eventDetail struct {
	AtSeconds float64 `json:"at_seconds"`
	Kind      string  `json:"kind"`
	Detail    string  `json:"detail,omitempty"`
}

func runDetailMode(w io.Writer, store *journal.Store, runID string, jsonOut bool) error {
	run, err := resolveRun(store, runID)
	if err != nil {
		return err
	}
	events, err := store.ListEvents(run.RunID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:     run.RunID,
		Label:     run.Label,
		StartedAt: run.StartedAt.Format("2006-01-02T15:04:05Z"),
		Summary:   run.Summary,
		Events:    make([]eventDetail, 0, len(events)),
	}
	if run.Finished() {
		out.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	for _, ev := range events {
		out.Events = append(out.Events, eventDetail{
			AtSeconds: ev.At.Seconds(),
			Kind:      string(ev.Kind),
			Detail:    ev.Detail,
		})
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Run:      %s\n", out.RunID)
	if out.Label != "" {
		fmt.Fprintf(w, "Label:    %s\n", out.Label)
	}
	fmt.Fprintf(w, "Started:  %s\n", out.StartedAt)
	if out.FinishedAt != "" {
		fmt.Fprintf(w, "Finished: %s\n", out.FinishedAt)
	}

	fmt.Fprintf(w, "\nEvents:\n")
	for _, ev := range out.Events {
		// summaries are printed in full below
		if ev.Kind == string(logging.EventSummary) {
			fmt.Fprintf(w, "  %7.1fs  %s\n", ev.AtSeconds, ev.Kind)
			continue
		}
		fmt.Fprintf(w, "  %7.1fs  %-24s %s\n", ev.AtSeconds, ev.Kind, ev.Detail)
	}

	if out.Summary != "" {
		fmt.Fprintf(w, "\n%s", out.Summary)
	}
	return nil
}

// resolveRun accepts a full run ID or a unique prefix of one.
func resolveRun(store *journal.Store, id string) (journal.RunRecord, error) {
	run, err := store.GetRun(id)
	if err == nil || !errors.Is(err, journal.ErrRunNotFound) {
		return run, err
	}

	runs, err := store.ListRuns(-1)
	if err != nil {
		return journal.RunRecord{}, err
	}
	var matches []journal.RunRecord
	for _, r := range runs {
		if strings.HasPrefix(r.RunID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return journal.RunRecord{}, fmt.Errorf("%w: %s", journal.ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return journal.RunRecord{}, fmt.Errorf("run ID prefix %q is ambiguous (%d runs)", id, len(matches))
	}
}

// #endregion detail-mode

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
