// Package summary renders the end-of-scenario debrief. Render is a pure
// function of the records, the anomaly timeline and the final temperature
// state; the same input always yields the same text.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/process-panel/internal/anomaly"
)

// #region input

// Record is the part of a scenario record the debrief needs.
type Record struct {
	Index    int
	At       time.Duration
	AllGreen bool
}

// Input is everything Render reads.
type Input struct {
	Records            []Record
	Timeline           anomaly.Timeline
	Drift              anomaly.Config
	TemperatureInRange bool
}

// Header opens every debrief.
const Header = "=== Scenario Summary ==="

// #endregion input

// #region render

// Render builds the debrief text. Sections for events that never happened
// are left out rather than reported as missing.
func Render(in Input) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')

	for _, r := range in.Records {
		if r.AllGreen {
			fmt.Fprintf(&b, "Record %d at %s: all readings in normal range (OK).\n", r.Index, seconds(r.At))
		} else {
			fmt.Fprintf(&b, "Record %d at %s: one or more readings out of normal range (CHECK).\n", r.Index, seconds(r.At))
		}
	}

	tl := in.Timeline
	if tl.PressureStart.Set || tl.FlowStart.Set {
		b.WriteString("\nDrift anomalies:\n")
		if tl.PressureStart.Set {
			writeDrift(&b, in, "Pressure", "high pressure", tl.PressureStart.At, in.Drift.PressureTarget)
		}
		if tl.FlowStart.Set {
			writeDrift(&b, in, "Flow", "low flow", tl.FlowStart.At, in.Drift.FlowTarget)
		}
	}

	b.WriteString("\n")
	b.WriteString(temperatureLine(tl.PressureStart.Set, in.TemperatureInRange))
	b.WriteString("\n")

	if tl.FreezeStart.Set {
		b.WriteString("\nPanel freeze:\n")
		fmt.Fprintf(&b, "Panel freeze began at %s.\n", seconds(tl.FreezeStart.At))
		if tl.FreezeClear.Set {
			latency := tl.FreezeClear.At - tl.FreezeStart.At
			fmt.Fprintf(&b, "AUTO mode was selected at %s, clearing the freeze after %s.\n",
				seconds(tl.FreezeClear.At), seconds(latency))
		} else {
			b.WriteString("No AUTO-mode stabilization was performed, so the frozen panel was never cleared.\n")
		}
	}

	return b.String()
}

// writeDrift names the drift and, when a record exists at or after the end
// of its drift window, interprets that record.
func writeDrift(b *strings.Builder, in Input, name, what string, start time.Duration, target float64) {
	fmt.Fprintf(b, "%s drift began at %s (target %.1f).\n", name, seconds(start), target)

	rec, ok := firstRecordFrom(in.Records, start+in.Drift.DriftDuration)
	if !ok {
		return
	}
	if rec.AllGreen {
		fmt.Fprintf(b, "  By record %d at %s the panel was back in normal range, so the %s was corrected.\n",
			rec.Index, seconds(rec.At), what)
	} else {
		fmt.Fprintf(b, "  At record %d (%s) readings were still out of range, so the %s was not corrected in time.\n",
			rec.Index, seconds(rec.At), what)
	}
}

func firstRecordFrom(records []Record, at time.Duration) (Record, bool) {
	for _, r := range records {
		if r.At >= at {
			return r, true
		}
	}
	return Record{}, false
}

func temperatureLine(pressureAnomaly, inRange bool) string {
	switch {
	case pressureAnomaly && inRange:
		return "Temperature ended in its normal range despite the pressure anomaly."
	case pressureAnomaly:
		return "Temperature ended outside its normal range after the pressure anomaly."
	case inRange:
		return "Temperature ended in its normal range."
	default:
		return "Temperature ended outside its normal range."
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// #endregion render
