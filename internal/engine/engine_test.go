package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/memspan/internal/model"
	"github.com/verte-zerg/memspan/internal/sequence"
)

type fakeTask struct {
	fn        func()
	done      bool
	cancelled bool
}

// fakeScheduler runs scheduled callbacks only when the test says so.
type fakeScheduler struct {
	tasks []*fakeTask
}

func (s *fakeScheduler) Schedule(_ time.Duration, fn func()) func() {
	t := &fakeTask{fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

// fireNext runs the oldest pending callback.
func (s *fakeScheduler) fireNext(t *testing.T) {
	t.Helper()
	for _, task := range s.tasks {
		if !task.done && !task.cancelled {
			task.done = true
			task.fn()
			return
		}
	}
	t.Fatalf("no pending timer to fire")
}

func (s *fakeScheduler) pending() int {
	n := 0
	for _, task := range s.tasks {
		if !task.done && !task.cancelled {
			n++
		}
	}
	return n
}

func testConfig() model.TrialConfig {
	return model.TrialConfig{
		ExposureMs:     3000,
		AdvanceMs:      1200,
		FinalAdvanceMs: 900,
		ErrorThreshold: 3,
		MinLength:      5,
		MaxLength:      12,
		GroupSize:      3,
		Delimiter:      "-",
	}
}

func newTestEngine() (*Engine, *fakeScheduler) {
	sched := &fakeScheduler{}
	return New(testConfig(), sequence.NewSeeded(42), sched), sched
}

// wrongResponse builds a same-length response with no matching position.
func wrongResponse(target string) string {
	var b strings.Builder
	for i := 0; i < len(target); i++ {
		b.WriteByte('0' + byte((int(target[i]-'0')+1)%10))
	}
	return b.String()
}

// currentTarget reads the presented sequence with delimiters stripped.
func currentTarget(t *testing.T, e *Engine) string {
	t.Helper()
	snap := e.Snapshot()
	if snap.State != StatePresenting {
		t.Fatalf("expected presenting state, got %v", snap.State)
	}
	return strings.ReplaceAll(snap.Display, "-", "")
}

func TestStartPresentsFirstRound(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	snap := e.Snapshot()
	if snap.State != StatePresenting {
		t.Fatalf("state = %v, want presenting", snap.State)
	}
	if snap.Phase != model.PhaseBaseline {
		t.Fatalf("phase = %v, want baseline", snap.Phase)
	}
	if len(snap.Display) != 5 {
		t.Fatalf("round 1 display %q, want 5 digits", snap.Display)
	}
	if !snap.InputLocked || snap.AwaitingInput {
		t.Fatalf("input must be locked during presentation: %+v", snap)
	}
	if snap.Round != 1 {
		t.Fatalf("round = %d, want 1", snap.Round)
	}
	if sched.pending() != 1 {
		t.Fatalf("expected one pending exposure timer, got %d", sched.pending())
	}
}

func TestStartWhileInProgressIsNoOp(t *testing.T) {
	e, _ := newTestEngine()
	e.Start()
	target := currentTarget(t, e)
	e.Start()
	if got := currentTarget(t, e); got != target {
		t.Fatalf("second start must not restart the session")
	}
}

func TestExposureElapsedOpensResponseWindow(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	sched.fireNext(t)
	snap := e.Snapshot()
	if snap.State != StateAwaitingResponse {
		t.Fatalf("state = %v, want awaiting response", snap.State)
	}
	if snap.Display != "" {
		t.Fatalf("sequence must be hidden, got %q", snap.Display)
	}
	if !snap.AwaitingInput || snap.InputLocked {
		t.Fatalf("input must be unlocked: %+v", snap)
	}
	if sched.pending() != 0 {
		t.Fatalf("no countdown may run while awaiting a response")
	}
}

func TestPerfectRoundsStayInBaseline(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	for i := 0; i < 10; i++ {
		target := currentTarget(t, e)
		wantLen := 5 + i
		if wantLen > 12 {
			wantLen = 12
		}
		if len(target) != wantLen {
			t.Fatalf("round %d target %q, want length %d", i+1, target, wantLen)
		}
		sched.fireNext(t) // exposure
		e.Submit(target)
		snap := e.Snapshot()
		if snap.Phase != model.PhaseBaseline {
			t.Fatalf("perfect rounds must not leave baseline")
		}
		if snap.PhaseErrors != 0 {
			t.Fatalf("phase errors = %d, want 0", snap.PhaseErrors)
		}
		if snap.LastRound == nil || snap.LastRound.RoundNumber != i+1 {
			t.Fatalf("round numbers must be 1,2,3,... got %+v", snap.LastRound)
		}
		sched.fireNext(t) // advance
	}
}

func TestSingleMissedRoundTransitionsPhase(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	target := currentTarget(t, e)
	sched.fireNext(t)
	e.Submit(wrongResponse(target))

	snap := e.Snapshot()
	if snap.State != StateAdvancing {
		t.Fatalf("state = %v, want advancing", snap.State)
	}
	if snap.Phase != model.PhaseChunked {
		t.Fatalf("a 5-digit full miss must transition the phase")
	}
	if snap.PhaseErrors != 0 || snap.PhaseRound != 0 {
		t.Fatalf("counters must reset on transition: %+v", snap)
	}

	sched.fireNext(t) // advance into chunked round
	chunked := e.Snapshot()
	if chunked.State != StatePresenting {
		t.Fatalf("state = %v, want presenting", chunked.State)
	}
	if !strings.Contains(chunked.Display, "-") {
		t.Fatalf("chunked display %q must contain delimiters", chunked.Display)
	}
	if got := strings.ReplaceAll(chunked.Display, "-", ""); len(got) != 5 {
		t.Fatalf("length ramp must restart at 5, got %q", got)
	}
}

func TestErrorsAccumulateAcrossRounds(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()

	// Miss one digit per round; the third miss reaches the threshold.
	for i := 0; i < 3; i++ {
		target := currentTarget(t, e)
		sched.fireNext(t)
		resp := []byte(target)
		resp[0] = '0' + byte((int(target[0]-'0')+1)%10)
		e.Submit(string(resp))
		snap := e.Snapshot()
		if i < 2 {
			if snap.Phase != model.PhaseBaseline {
				t.Fatalf("transitioned too early after %d errors", i+1)
			}
			if snap.PhaseErrors != i+1 {
				t.Fatalf("phase errors = %d, want %d", snap.PhaseErrors, i+1)
			}
			sched.fireNext(t)
		} else if snap.Phase != model.PhaseChunked {
			t.Fatalf("third cumulative error must transition the phase")
		}
	}
}

func TestChunkedThresholdFinishesSession(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()

	// Baseline: full miss transitions immediately.
	target := currentTarget(t, e)
	sched.fireNext(t)
	e.Submit(wrongResponse(target))
	sched.fireNext(t)

	// Chunked: full miss ends the session.
	target = currentTarget(t, e)
	sched.fireNext(t)
	e.Submit(wrongResponse(target))
	sched.fireNext(t) // terminal advance

	snap := e.Snapshot()
	if snap.State != StateIdle || snap.InProgress {
		t.Fatalf("session must be idle after finishing: %+v", snap)
	}
	if snap.InputLocked {
		t.Fatalf("input lock must be released after finish")
	}
	if snap.Summary == nil {
		t.Fatalf("finished session must emit a summary")
	}
	if snap.Summary.Rounds != 2 {
		t.Fatalf("summary rounds = %d, want 2", snap.Summary.Rounds)
	}
	if snap.Summary.BaselineAcc == nil || *snap.Summary.BaselineAcc != 0 {
		t.Fatalf("baseline accuracy = %v, want 0", snap.Summary.BaselineAcc)
	}
	if snap.Summary.ChunkedAcc == nil || *snap.Summary.ChunkedAcc != 0 {
		t.Fatalf("chunked accuracy = %v, want 0", snap.Summary.ChunkedAcc)
	}
	if snap.Summary.StartedAt.IsZero() || snap.Summary.EndedAt.IsZero() {
		t.Fatalf("summary timestamps must be set")
	}
	if sched.pending() != 0 {
		t.Fatalf("no timers may remain after finish, got %d", sched.pending())
	}
}

func TestSubmitOutsideResponseWindowIgnored(t *testing.T) {
	e, sched := newTestEngine()
	e.Submit("12345") // idle
	if len(e.Snapshot().Rounds) != 0 {
		t.Fatalf("idle submit must be ignored")
	}

	e.Start()
	e.Submit("12345") // presenting
	if len(e.Snapshot().Rounds) != 0 {
		t.Fatalf("submit during presentation must be ignored")
	}

	target := currentTarget(t, e)
	sched.fireNext(t)
	e.Submit(target)
	e.Submit(target) // duplicate
	if got := len(e.Snapshot().Rounds); got != 1 {
		t.Fatalf("duplicate submit must be ignored, got %d rounds", got)
	}
}

func TestMalformedSubmissionScoresAllIncorrect(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	target := currentTarget(t, e)
	sched.fireNext(t)
	e.Submit("abc!? ")
	snap := e.Snapshot()
	if snap.LastRound == nil {
		t.Fatalf("malformed input must still be recorded")
	}
	if snap.LastRound.Response != "" {
		t.Fatalf("response must sanitize to empty, got %q", snap.LastRound.Response)
	}
	if snap.LastRound.Correct != 0 || snap.LastRound.Errors != len(target) {
		t.Fatalf("malformed input must score all-incorrect: %+v", snap.LastRound)
	}
}

func TestAbortDuringPresenting(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	e.Abort()

	snap := e.Snapshot()
	if snap.State != StateIdle || snap.InProgress || snap.InputLocked {
		t.Fatalf("abort must leave an unlocked idle engine: %+v", snap)
	}
	if snap.Summary != nil {
		t.Fatalf("abort must not record a summary")
	}
	if sched.pending() != 0 {
		t.Fatalf("abort must clear pending timers, got %d", sched.pending())
	}

	// A fresh session restarts at round 1 of baseline.
	e.Start()
	snap = e.Snapshot()
	if snap.Round != 1 || snap.Phase != model.PhaseBaseline || snap.PhaseErrors != 0 {
		t.Fatalf("restart must begin fresh: %+v", snap)
	}
}

func TestAbortIsIdempotent(t *testing.T) {
	e, sched := newTestEngine()
	e.Abort()
	e.Start()
	sched.fireNext(t)
	e.Abort()
	e.Abort()
	if snap := e.Snapshot(); snap.InProgress || snap.InputLocked {
		t.Fatalf("repeated abort must stay clean: %+v", snap)
	}
}

func TestStaleTimerAfterAbortDoesNothing(t *testing.T) {
	sched := &fakeScheduler{}
	e := New(testConfig(), sequence.NewSeeded(7), sched)
	e.Start()
	// Grab the exposure callback before abort cancels it, simulating a timer
	// that was already in flight.
	task := sched.tasks[0]
	e.Abort()
	task.fn()
	if snap := e.Snapshot(); snap.State != StateIdle || snap.InProgress {
		t.Fatalf("stale exposure callback must not revive the session: %+v", snap)
	}
}

func TestRoundNumbersAreMonotonic(t *testing.T) {
	e, sched := newTestEngine()
	e.Start()
	for i := 0; i < 4; i++ {
		target := currentTarget(t, e)
		sched.fireNext(t)
		e.Submit(target)
		sched.fireNext(t)
	}
	rounds := e.Snapshot().Rounds
	for i, r := range rounds {
		if r.RoundNumber != i+1 {
			t.Fatalf("round %d has number %d", i, r.RoundNumber)
		}
	}
}

func TestSettingsNotice(t *testing.T) {
	e, _ := newTestEngine()
	if got := e.Settings(); got != SettingsNotice {
		t.Fatalf("settings notice = %q", got)
	}
	if snap := e.Snapshot(); snap.InProgress {
		t.Fatalf("settings must not change engine state")
	}
}
