package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/memspan/internal/engine"
	"github.com/verte-zerg/memspan/internal/model"
)

func TestCountdownSeconds(t *testing.T) {
	now := time.Unix(100, 0)
	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"zero deadline", time.Time{}, 0},
		{"expired", now.Add(-time.Second), 0},
		{"exactly now", now, 0},
		{"partial second rounds up", now.Add(300 * time.Millisecond), 1},
		{"three seconds", now.Add(3 * time.Second), 3},
		{"just over two", now.Add(2*time.Second + time.Millisecond), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countdownSeconds(tt.deadline, now); got != tt.want {
				t.Fatalf("countdownSeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionHeader(t *testing.T) {
	snap := engine.Snapshot{Phase: model.PhaseChunked, Round: 3}
	got := sessionHeader(snap)
	if !strings.Contains(got, "chunked") || !strings.Contains(got, "3") {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestScoreboard(t *testing.T) {
	overall := 0.5
	summary := model.SessionSummary{Rounds: 2, OverallAcc: &overall}
	rounds := []model.RoundRecord{{Accuracy: 1}, {Accuracy: 0}}
	got := scoreboard(summary, rounds)
	if !strings.Contains(got, "50.0%") {
		t.Fatalf("missing overall accuracy: %q", got)
	}
	if !strings.Contains(got, "n/a") {
		t.Fatalf("absent subsets must show a placeholder: %q", got)
	}
	if !strings.Contains(got, "Accuracy: ") {
		t.Fatalf("missing sparkline row: %q", got)
	}
}
