// Package model defines shared data structures.
package model

import "time"

// Phase identifies a protocol phase within a session.
type Phase int

const (
	// PhaseBaseline presents sequences without delimiter grouping.
	PhaseBaseline Phase = iota
	// PhaseChunked presents sequences grouped into delimiter-separated clusters.
	PhaseChunked
)

// String returns the display label for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseBaseline:
		return "baseline"
	case PhaseChunked:
		return "chunked"
	default:
		return "unknown"
	}
}

// UsesDelimiters reports whether sequences in this phase are shown grouped.
func (p Phase) UsesDelimiters() bool {
	return p == PhaseChunked
}

// TrialConfig defines trial protocol settings.
type TrialConfig struct {
	ExposureMs     int
	AdvanceMs      int
	FinalAdvanceMs int
	ErrorThreshold int
	MinLength      int
	MaxLength      int
	GroupSize      int
	Delimiter      string
}

// RoundRecord captures one scored present/recall round. Immutable once created.
type RoundRecord struct {
	RoundNumber    int
	Phase          Phase
	UsesDelimiters bool
	Target         string
	Response       string
	Correct        int
	Accuracy       float64
	Errors         int
}

// SessionSummary aggregates a finished session. Accuracy pointers are nil
// when the corresponding round subset is empty.
type SessionSummary struct {
	StartedAt   time.Time
	EndedAt     time.Time
	Rounds      int
	BaselineAcc *float64
	ChunkedAcc  *float64
	OverallAcc  *float64
}

// HistoryEntry is a stored summary with its assigned session ID.
type HistoryEntry struct {
	SessionID int64
	Summary   SessionSummary
}
