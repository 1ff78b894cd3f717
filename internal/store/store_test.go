package store

import (
	"context"
	"testing"
	"time"

	"github.com/verte-zerg/memspan/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestInsertAndRecentSummaries(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		overall := float64(i) / 10
		summary := model.SessionSummary{
			StartedAt:  start,
			EndedAt:    start.Add(30 * time.Second),
			Rounds:     2,
			OverallAcc: &overall,
		}
		rounds := []model.RoundRecord{
			{RoundNumber: 1, Phase: model.PhaseBaseline, Target: "12345", Response: "12345", Correct: 5, Accuracy: 1, Errors: 0},
			{RoundNumber: 2, Phase: model.PhaseChunked, UsesDelimiters: true, Target: "54321", Response: "", Correct: 0, Accuracy: 0, Errors: 5},
		}
		id, err := st.InsertSession(ctx, summary, rounds)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	entries, err := st.RecentSummaries(ctx, 2)
	if err != nil {
		t.Fatalf("recent summaries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SessionID != ids[2] || entries[1].SessionID != ids[1] {
		t.Fatalf("entries must be most recent first: %+v", entries)
	}
	if entries[0].Summary.BaselineAcc != nil {
		t.Fatalf("absent baseline accuracy must stay nil")
	}
	if entries[0].Summary.OverallAcc == nil || *entries[0].Summary.OverallAcc != 0.2 {
		t.Fatalf("overall accuracy = %v, want 0.2", entries[0].Summary.OverallAcc)
	}
}

func TestRecentSummariesEmpty(t *testing.T) {
	st := openTestStore(t)
	entries, err := st.RecentSummaries(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent summaries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if entries, err = st.RecentSummaries(context.Background(), 0); err != nil || entries != nil {
		t.Fatalf("n<=0 must return nothing, got %v, %v", entries, err)
	}
}

func TestListRounds(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	summary := model.SessionSummary{StartedAt: time.Unix(0, 0), EndedAt: time.Unix(60, 0), Rounds: 2}
	rounds := []model.RoundRecord{
		{RoundNumber: 1, Phase: model.PhaseBaseline, Target: "11111", Response: "11111", Correct: 5, Accuracy: 1},
		{RoundNumber: 2, Phase: model.PhaseChunked, UsesDelimiters: true, Target: "22222", Response: "22", Correct: 2, Accuracy: 0.4, Errors: 3},
	}
	id, err := st.InsertSession(ctx, summary, rounds)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}

	got, err := st.ListRounds(ctx, id)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(got))
	}
	if got[0].RoundNumber != 1 || got[1].RoundNumber != 2 {
		t.Fatalf("rounds must come back in order: %+v", got)
	}
	if got[1].Phase != model.PhaseChunked || !got[1].UsesDelimiters {
		t.Fatalf("phase must round-trip: %+v", got[1])
	}
	if got[1].Errors != 3 || got[1].Accuracy != 0.4 {
		t.Fatalf("round fields must round-trip: %+v", got[1])
	}
}
