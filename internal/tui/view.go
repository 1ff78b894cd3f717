package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/memspan/internal/engine"
	"github.com/verte-zerg/memspan/internal/model"
	"github.com/verte-zerg/memspan/internal/stats"
)

func sessionHeader(snap engine.Snapshot) string {
	return fmt.Sprintf("Phase: %s · Round %d", snap.Phase, snap.Round)
}

// countdownSeconds returns the whole seconds left before deadline, rounded up
// and never negative.
func countdownSeconds(deadline, now time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int((left + time.Second - 1) / time.Second)
	return secs
}

func scoreboard(summary model.SessionSummary, rounds []model.RoundRecord) string {
	lines := []string{
		"Session complete",
		fmt.Sprintf("Rounds:   %d", summary.Rounds),
		fmt.Sprintf("Baseline: %s", stats.FormatPercent(summary.BaselineAcc)),
		fmt.Sprintf("Chunked:  %s", stats.FormatPercent(summary.ChunkedAcc)),
		fmt.Sprintf("Overall:  %s", stats.FormatPercent(summary.OverallAcc)),
	}
	if len(rounds) > 0 {
		lines = append(lines, fmt.Sprintf("Accuracy: %s", stats.Sparkline(stats.AccuracySeries(rounds))))
	}
	return strings.Join(lines, "\n")
}
