// Package stats aggregates round records and renders session reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/memspan/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Average returns the mean accuracy over rounds. ok is false for an empty
// set: no measurement is not the same as a zero measurement.
func Average(rounds []model.RoundRecord) (avg float64, ok bool) {
	if len(rounds) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range rounds {
		sum += r.Accuracy
	}
	return sum / float64(len(rounds)), true
}

// Summarize partitions rounds by phase and computes the three averages.
// Timestamps are left for the caller to fill in.
func Summarize(rounds []model.RoundRecord) model.SessionSummary {
	var baseline, chunked []model.RoundRecord
	for _, r := range rounds {
		if r.UsesDelimiters {
			chunked = append(chunked, r)
		} else {
			baseline = append(baseline, r)
		}
	}
	summary := model.SessionSummary{Rounds: len(rounds)}
	if avg, ok := Average(baseline); ok {
		summary.BaselineAcc = &avg
	}
	if avg, ok := Average(chunked); ok {
		summary.ChunkedAcc = &avg
	}
	if avg, ok := Average(rounds); ok {
		summary.OverallAcc = &avg
	}
	return summary
}

// FormatPercent renders an optional accuracy ratio as a percentage.
func FormatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *p*100)
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// AccuracySeries extracts per-round accuracy values in round order.
func AccuracySeries(rounds []model.RoundRecord) []float64 {
	out := make([]float64, len(rounds))
	for i, r := range rounds {
		out[i] = r.Accuracy
	}
	return out
}

// RenderHistory prints recent session summaries, most recent first.
func RenderHistory(w io.Writer, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No finished sessions.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Recent Sessions"); err != nil {
		return err
	}
	headers := []string{"Finished", "Rounds", "Baseline", "Chunked", "Overall"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Summary.EndedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d", e.Summary.Rounds),
			FormatPercent(e.Summary.BaselineAcc),
			FormatPercent(e.Summary.ChunkedAcc),
			FormatPercent(e.Summary.OverallAcc),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
