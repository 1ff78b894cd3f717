// Package engine runs the two-phase recall trial state machine.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/memspan/internal/model"
	"github.com/verte-zerg/memspan/internal/score"
	"github.com/verte-zerg/memspan/internal/sequence"
	"github.com/verte-zerg/memspan/internal/stats"
)

// State identifies where the engine is in the trial loop.
type State int

const (
	// StateIdle means no session is active.
	StateIdle State = iota
	// StatePresenting shows the sequence with input locked and the exposure timer running.
	StatePresenting
	// StateAwaitingResponse hides the sequence and waits indefinitely for a submission.
	StateAwaitingResponse
	// StateAdvancing is the feedback pause between a scored round and the next step.
	StateAdvancing
)

// SettingsNotice is returned by Settings; the engine does not act on the call.
const SettingsNotice = "Settings are not implemented yet."

// Snapshot is a point-in-time view of the engine for rendering.
type Snapshot struct {
	State            State
	InProgress       bool
	Phase            model.Phase
	Round            int
	PhaseRound       int
	PhaseErrors      int
	Display          string
	AwaitingInput    bool
	InputLocked      bool
	Feedback         string
	ExposureDeadline time.Time
	LastRound        *model.RoundRecord
	Rounds           []model.RoundRecord
	Summary          *model.SessionSummary
}

// Engine owns one active session. All operations return immediately;
// progress happens through scheduled callbacks. Invalid-state calls are
// silent no-ops.
type Engine struct {
	mu      sync.Mutex
	cfg     model.TrialConfig
	gen     *sequence.Generator
	sched   Scheduler
	updates chan struct{}

	state State
	// epoch invalidates callbacks scheduled for a torn-down session.
	epoch          uint64
	cancelExposure func()
	cancelAdvance  func()

	inProgress       bool
	startedAt        time.Time
	phase            model.Phase
	phaseRounds      int
	phaseErrors      int
	target           string
	display          string
	awaitingInput    bool
	feedback         string
	exposureDeadline time.Time
	rounds           []model.RoundRecord

	lastSummary *model.SessionSummary
	lastRounds  []model.RoundRecord
}

// New constructs an idle Engine.
func New(cfg model.TrialConfig, gen *sequence.Generator, sched Scheduler) *Engine {
	return &Engine{
		cfg:     cfg,
		gen:     gen,
		sched:   sched,
		updates: make(chan struct{}, 1),
		state:   StateIdle,
	}
}

// Updates signals that a new snapshot is available. Notifications are
// coalesced; consumers should pull Snapshot after each receive.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Snapshot returns a copy of the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		State:            e.state,
		InProgress:       e.inProgress,
		Phase:            e.phase,
		PhaseRound:       e.phaseRounds,
		PhaseErrors:      e.phaseErrors,
		Display:          e.display,
		AwaitingInput:    e.awaitingInput,
		InputLocked:      e.inProgress && !e.awaitingInput,
		Feedback:         e.feedback,
		ExposureDeadline: e.exposureDeadline,
		Summary:          e.lastSummary,
	}
	if e.inProgress {
		snap.Round = len(e.rounds) + 1
		if e.state == StateAdvancing {
			snap.Round = len(e.rounds)
		}
		snap.Rounds = append([]model.RoundRecord(nil), e.rounds...)
	} else {
		snap.Rounds = append([]model.RoundRecord(nil), e.lastRounds...)
	}
	if n := len(snap.Rounds); n > 0 {
		snap.LastRound = &snap.Rounds[n-1]
	}
	return snap
}

// Start begins a new session. No-op while a session is in progress.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inProgress {
		return
	}
	e.inProgress = true
	e.startedAt = time.Now()
	e.phase = model.PhaseBaseline
	e.phaseRounds = 0
	e.phaseErrors = 0
	e.rounds = nil
	e.lastSummary = nil
	e.lastRounds = nil
	e.startRoundLocked()
	e.notify()
}

// Submit grades a raw response. Valid only while awaiting a response;
// ignored otherwise, including duplicate or late submissions.
func (e *Engine) Submit(raw string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateAwaitingResponse {
		return
	}
	response := score.Sanitize(raw)
	res := score.Score(e.target, response)
	rec := model.RoundRecord{
		RoundNumber:    len(e.rounds) + 1,
		Phase:          e.phase,
		UsesDelimiters: e.phase.UsesDelimiters(),
		Target:         e.target,
		Response:       response,
		Correct:        res.Correct,
		Accuracy:       res.Accuracy,
		Errors:         len(e.target) - res.Correct,
	}
	e.rounds = append(e.rounds, rec)
	e.phaseRounds++
	e.phaseErrors += rec.Errors
	e.awaitingInput = false
	e.state = StateAdvancing

	switch {
	case e.phaseErrors >= e.cfg.ErrorThreshold && e.phase == model.PhaseBaseline:
		e.phase = model.PhaseChunked
		e.phaseRounds = 0
		e.phaseErrors = 0
		e.feedback = fmt.Sprintf("%d/%d correct. Error limit reached; switching to chunked sequences.",
			rec.Correct, len(rec.Target))
		e.scheduleAdvanceLocked(e.cfg.AdvanceMs, func() { e.startRoundLocked() })
	case e.phaseErrors >= e.cfg.ErrorThreshold:
		e.feedback = fmt.Sprintf("%d/%d correct. Error limit reached; session complete.",
			rec.Correct, len(rec.Target))
		e.scheduleAdvanceLocked(e.cfg.FinalAdvanceMs, func() { e.finishLocked() })
	default:
		e.feedback = fmt.Sprintf("%d/%d correct.", rec.Correct, len(rec.Target))
		e.scheduleAdvanceLocked(e.cfg.AdvanceMs, func() { e.startRoundLocked() })
	}
	e.notify()
}

// Abort discards the active session without recording a summary. Idempotent;
// all timers are cleared and input is unlocked before it returns.
func (e *Engine) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.cancelTimersLocked()
	if !e.inProgress {
		return
	}
	e.inProgress = false
	e.state = StateIdle
	e.target = ""
	e.display = ""
	e.awaitingInput = false
	e.feedback = ""
	e.exposureDeadline = time.Time{}
	e.rounds = nil
	e.notify()
}

// Settings acknowledges a settings-inspection request without acting on it.
func (e *Engine) Settings() string {
	return SettingsNotice
}

func (e *Engine) startRoundLocked() {
	length := e.cfg.MinLength + e.phaseRounds
	if length > e.cfg.MaxLength {
		length = e.cfg.MaxLength
	}
	e.target = e.gen.Digits(length)
	if e.phase.UsesDelimiters() {
		e.display = sequence.Chunk(e.target, e.cfg.GroupSize, e.cfg.Delimiter)
	} else {
		e.display = e.target
	}
	e.state = StatePresenting
	e.awaitingInput = false
	e.feedback = ""
	exposure := time.Duration(e.cfg.ExposureMs) * time.Millisecond
	e.exposureDeadline = time.Now().Add(exposure)
	if e.cancelExposure != nil {
		e.cancelExposure()
	}
	epoch := e.epoch
	e.cancelExposure = e.sched.Schedule(exposure, func() {
		e.exposureElapsed(epoch)
	})
	e.notify()
}

func (e *Engine) exposureElapsed(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch || e.state != StatePresenting {
		return
	}
	e.state = StateAwaitingResponse
	e.display = ""
	e.awaitingInput = true
	e.exposureDeadline = time.Time{}
	e.notify()
}

// scheduleAdvanceLocked runs fn under the engine lock after the feedback
// pause, unless the session is torn down first.
func (e *Engine) scheduleAdvanceLocked(delayMs int, fn func()) {
	if e.cancelAdvance != nil {
		e.cancelAdvance()
	}
	epoch := e.epoch
	e.cancelAdvance = e.sched.Schedule(time.Duration(delayMs)*time.Millisecond, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if epoch != e.epoch || e.state != StateAdvancing {
			return
		}
		fn()
	})
}

func (e *Engine) finishLocked() {
	summary := stats.Summarize(e.rounds)
	summary.StartedAt = e.startedAt
	summary.EndedAt = time.Now()
	e.lastSummary = &summary
	e.lastRounds = e.rounds
	e.epoch++
	e.cancelTimersLocked()
	e.inProgress = false
	e.state = StateIdle
	e.target = ""
	e.display = ""
	e.awaitingInput = false
	e.exposureDeadline = time.Time{}
	e.rounds = nil
	e.notify()
}

func (e *Engine) cancelTimersLocked() {
	if e.cancelExposure != nil {
		e.cancelExposure()
		e.cancelExposure = nil
	}
	if e.cancelAdvance != nil {
		e.cancelAdvance()
		e.cancelAdvance = nil
	}
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}
