package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"raisebar/internal/domain"
	"raisebar/internal/judge"
	"raisebar/internal/schedule"
)

const archiveTimeout = 15 * time.Second

// Orchestrator runs the turn state machine of one match.
type Orchestrator struct {
	id      string
	deps    Deps
	timings Timings
	cues    Cues
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mode      domain.GameMode
	rhymes    domain.RhymeSource
	phase     domain.TurnPhase
	gen       uint64
	started   bool
	closed    bool
	exited    bool
	active    domain.Player
	capturing bool
	words     [3]domain.RoundWords
	turns     [3]domain.Turn
	timers    []schedule.Task
	result    *domain.GameResult
	createdAt time.Time

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an orchestrator for match id. parent bounds every outbound call
// made on behalf of the match.
func New(parent context.Context, id string, deps Deps, timings Timings) (*Orchestrator, error) {
	if deps.Scheduler == nil || deps.Capture == nil || deps.Judges == nil || deps.Rhymes == nil {
		return nil, errors.New("match: scheduler, capture, judges and rhymes are required")
	}
	if parent == nil {
		parent = context.Background()
	}
	cues := deps.Cues
	if cues == nil {
		cues = nopCues{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(parent)
	return &Orchestrator{
		id:        id,
		deps:      deps,
		timings:   timings.withDefaults(),
		cues:      cues,
		logger:    logger.With("matchID", id),
		ctx:       ctx,
		cancel:    cancel,
		createdAt: deps.Scheduler.Now(),
		done:      make(chan struct{}),
	}, nil
}

// ID returns the match id.
func (o *Orchestrator) ID() string {
	return o.id
}

// Done is closed when the match finishes or is exited.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Begin starts the match in mode. A nil rhymes uses the default source.
func (o *Orchestrator) Begin(mode domain.GameMode, rhymes domain.RhymeSource) error {
	if !mode.Valid() {
		return domain.ErrUnknownMode
	}
	if rhymes == nil {
		rhymes = o.deps.Rhymes
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return domain.ErrMatchClosed
	}
	if o.started {
		return domain.ErrMatchStarted
	}

	words, err := rhymes.Draw(mode)
	if err != nil {
		return fmt.Errorf("draw rhyme set: %w", err)
	}

	o.started = true
	o.mode = mode
	o.rhymes = rhymes
	o.words[domain.P1] = words
	o.phase = domain.PhaseIntro
	o.gen++
	o.emitPhaseLocked()
	o.logger.Info("match started", "mode", mode)

	o.afterLocked(o.timings.IntroDelay, func() {
		o.enterReadyLocked(domain.P1)
	})
	return nil
}

// StopCurrentTurnEarly ends the current recording before its timer. It
// reports whether a recording was stopped; calls outside a recording, or
// repeated calls, do nothing.
func (o *Orchestrator) StopCurrentTurnEarly() bool {
	o.mu.Lock()
	player := o.active
	o.mu.Unlock()

	if player == domain.NoPlayer {
		return false
	}
	return o.stopRecording(player)
}

// Exit tears the match down. Pending timers are cancelled, an open capture
// is stopped, and no further phase change or event happens afterwards.
func (o *Orchestrator) Exit() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.cancelTimersLocked()
	wasCapturing := o.capturing
	o.active = domain.NoPlayer
	o.capturing = false
	o.exited = true
	o.emitLocked(domain.EventMatchExited, domain.PhaseChangedPayload{Phase: o.phase})
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.closeDone()
	o.logger.Info("match exited")

	if wasCapturing {
		if _, err := o.deps.Capture.Stop(context.Background()); err != nil {
			o.logger.Debug("capture stop on exit failed", "error", err)
		}
	}
}

// Snapshot returns the current state of the match.
func (o *Orchestrator) Snapshot() domain.MatchSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	words := o.words[o.phase.Player()].Words()
	if words == nil {
		words = []string{}
	}
	return domain.MatchSnapshot{
		MatchID:   o.id,
		Mode:      o.mode,
		Phase:     o.phase,
		Started:   o.started,
		Finished:  o.result != nil,
		Exited:    o.exited,
		Words:     words,
		CreatedAt: o.createdAt,
	}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() domain.TurnPhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Turn returns a player's finished turn, if it has been recorded.
func (o *Orchestrator) Turn(p domain.Player) (domain.Turn, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p != domain.P1 && p != domain.P2 {
		return domain.Turn{}, false
	}
	t := o.turns[p]
	return t, t.Player != domain.NoPlayer
}

// Result returns a copy of the final result once judging has completed.
func (o *Orchestrator) Result() (domain.GameResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return domain.GameResult{}, false
	}
	return o.result.Clone(), true
}

// enterReadyLocked starts a player's countdown.
func (o *Orchestrator) enterReadyLocked(player domain.Player) {
	if player == domain.P2 {
		words, err := o.rhymes.Draw(o.mode)
		if err != nil {
			o.logger.Warn("rhyme draw failed, reusing previous set", "error", err)
			words = o.words[domain.P1]
		}
		o.words[domain.P2] = words
	}
	if !o.transitionLocked(domain.ReadyPhase(player)) {
		return
	}
	o.cues.Snare()
	o.countdownLocked(player, o.timings.CountdownTicks)
}

func (o *Orchestrator) countdownLocked(player domain.Player, remaining int) {
	o.emitLocked(domain.EventCountdownTick, domain.CountdownPayload{Player: player, Remaining: remaining})
	if remaining > 1 {
		o.afterLocked(o.timings.TickInterval, func() {
			o.countdownLocked(player, remaining-1)
		})
		return
	}
	gen := o.gen
	o.afterFunc(o.timings.TickInterval, func() {
		o.beginRecording(player, gen)
	})
}

// beginRecording is the only way into a RECORDING phase.
func (o *Orchestrator) beginRecording(player domain.Player, readyGen uint64) {
	o.mu.Lock()
	if o.closed || o.gen != readyGen || o.phase != domain.ReadyPhase(player) {
		o.mu.Unlock()
		return
	}
	if !o.transitionLocked(domain.RecordingPhase(player)) {
		o.mu.Unlock()
		return
	}
	o.active = player
	gen := o.gen
	seconds := o.timings.recordSeconds()

	o.cues.Kick()
	o.cues.StartBeat(seconds)
	o.recordTickLocked(player, seconds)
	o.afterFunc(o.timings.RecordDuration, func() {
		o.stopRecording(player)
	})
	ctx := o.ctx
	o.mu.Unlock()

	err := o.deps.Capture.Start(ctx, func(text string) {
		o.onPartial(player, gen, text)
	})

	o.mu.Lock()
	stale := o.closed || o.gen != gen || o.active != player
	if !stale {
		o.capturing = err == nil
	}
	o.mu.Unlock()

	switch {
	case err != nil && !stale:
		o.logger.Warn("capture unavailable, text-only turn", "player", player, "error", err)
	case err == nil && stale:
		// The turn ended while capture was starting.
		if _, stopErr := o.deps.Capture.Stop(context.Background()); stopErr != nil {
			o.logger.Debug("release stale capture failed", "error", stopErr)
		}
	}
}

func (o *Orchestrator) recordTickLocked(player domain.Player, remaining int) {
	if o.active != player {
		return
	}
	o.emitLocked(domain.EventRecordingTick, domain.RecordingTickPayload{Player: player, RemainingSeconds: remaining})
	if remaining <= 1 {
		return
	}
	o.afterLocked(o.timings.TickInterval, func() {
		o.recordTickLocked(player, remaining-1)
	})
}

func (o *Orchestrator) onPartial(player domain.Player, gen uint64, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.gen != gen || o.active != player {
		return
	}
	o.emitLocked(domain.EventLiveTranscript, domain.LiveTranscriptPayload{Player: player, Text: text})
}

// stopRecording finalizes a player's turn. The active-capturer check happens
// before anything blocks, so a timeout racing an early stop runs once.
func (o *Orchestrator) stopRecording(player domain.Player) bool {
	o.mu.Lock()
	if o.closed || o.active != player || o.phase != domain.RecordingPhase(player) {
		o.mu.Unlock()
		return false
	}
	o.active = domain.NoPlayer
	wasCapturing := o.capturing
	o.capturing = false
	o.cancelTimersLocked()
	o.cues.StopBeat()
	o.cues.Snare()
	// Callbacks of this turn already waiting on the lock must see a new gen.
	o.gen++
	gen := o.gen
	words := o.words[player]
	ctx := o.ctx
	o.mu.Unlock()

	var live, refined string
	if wasCapturing {
		clip, err := o.deps.Capture.Stop(ctx)
		if err != nil {
			o.logger.Warn("capture stop failed", "player", player, "error", err)
		}
		live = o.deps.Capture.LiveTranscript()
		if clip != nil && clip.Len() > 0 && o.deps.Refiner != nil {
			text, err := o.deps.Refiner.Transcribe(ctx, clip.Data, clip.MIMEType)
			switch {
			case err == nil:
				refined = text
			case ctx.Err() == nil:
				o.logger.Warn("transcription refinement failed, keeping live transcript", "player", player, "error", err)
			}
		}
	}
	transcript := domain.FinalizeTranscript(live, refined)
	score, reasoning := judge.PreviewScore(transcript, words.Words())

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.gen != gen {
		return false
	}
	o.turns[player] = domain.Turn{
		Player:     player,
		Words:      words,
		Transcript: transcript,
		Refined:    strings.TrimSpace(refined) != "",
	}
	if !o.transitionLocked(domain.ProcessingPhase(player)) {
		return false
	}
	o.emitLocked(domain.EventTurnScored, domain.TurnScoredPayload{
		Player:     player,
		Transcript: transcript,
		Score:      score,
		Reasoning:  reasoning,
	})

	if player == domain.P1 {
		o.afterLocked(o.timings.TurnGap, func() {
			o.enterReadyLocked(domain.P2)
		})
	} else {
		processingGen := o.gen
		o.afterFunc(o.timings.JudgingDelay, func() {
			o.runJudging(processingGen)
		})
	}
	return true
}

// runJudging enters ROUND_END, evaluates both turns and publishes the result.
func (o *Orchestrator) runJudging(processingGen uint64) {
	o.mu.Lock()
	if o.closed || o.gen != processingGen || !o.transitionLocked(domain.PhaseRoundEnd) {
		o.mu.Unlock()
		return
	}
	p1, p2 := o.turns[domain.P1], o.turns[domain.P2]
	ctx := o.ctx
	o.judgeLogLocked("🎤 Starting judge evaluation...")
	o.judgeLogLocked("P1: " + preview(p1.Transcript))
	o.judgeLogLocked("P2: " + preview(p2.Transcript))
	o.mu.Unlock()

	saved := o.startArchive(CombinedTranscript(p1.Transcript, p2.Transcript))

	o.judgeLog("⚖️ Calling judges...")
	decision := o.deps.Judges.Evaluate(ctx, judge.Input{
		P1: judge.Entry{Transcript: p1.Transcript, Words: p1.Words.Words()},
		P2: judge.Entry{Transcript: p2.Transcript, Words: p2.Words.Words()},
	}, o.judgeLog)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.logger.Debug("judging finished after exit, result discarded")
		return
	}
	result := domain.GameResult{
		MatchID:      o.id,
		Mode:         o.mode,
		Winner:       decision.Score.Winner,
		P1Total:      decision.Score.P1Total,
		P2Total:      decision.Score.P2Total,
		P1Transcript: p1.Transcript,
		P2Transcript: p2.Transcript,
		P1Words:      p1.Words.Words(),
		P2Words:      p2.Words.Words(),
		Judges:       decision.Verdicts,
		FinishedAt:   o.deps.Scheduler.Now(),
	}
	o.result = &result
	o.judgeLogLocked("✅ Judging complete!")
	o.judgeLogLocked(fmt.Sprintf("Final: %d vs %d", result.P1Total, result.P2Total))
	o.cues.Win()
	o.emitLocked(domain.EventMatchFinished, result.Clone())
	o.closed = true
	o.mu.Unlock()

	o.logger.Info("match finished",
		"winner", result.Winner,
		"p1", result.P1Total,
		"p2", result.P2Total,
	)
	o.finishArchive(saved, result)
	o.closeDone()
}

// startArchive saves the combined transcript in the background. The returned
// channel yields the session id, or is closed without one on failure.
func (o *Orchestrator) startArchive(text string) <-chan int64 {
	saved := make(chan int64, 1)
	if o.deps.Archive == nil {
		close(saved)
		return saved
	}
	go func() {
		defer close(saved)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), archiveTimeout)
		defer cancel()
		id, err := o.deps.Archive.SaveSessionTranscript(ctx, text)
		if err != nil {
			o.logger.Warn("archive save failed", "error", err)
			return
		}
		saved <- id
	}()
	return saved
}

// finishArchive attaches the grade once the save lands. It never blocks the caller.
func (o *Orchestrator) finishArchive(saved <-chan int64, result domain.GameResult) {
	if o.deps.Archive == nil {
		return
	}
	grade := Grade(result.P1Total, result.P2Total)
	feedback := FeedbackSummary(result.Judges)
	go func() {
		id, ok := <-saved
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), archiveTimeout)
		defer cancel()
		if err := o.deps.Archive.UpdateSessionGrade(ctx, id, grade, feedback); err != nil {
			o.logger.Warn("archive grade update failed", "sessionID", id, "error", err)
		}
	}()
}

func (o *Orchestrator) judgeLog(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.judgeLogLocked(line)
}

func (o *Orchestrator) judgeLogLocked(line string) {
	o.logger.Debug("judge log", "line", line)
	o.emitLocked(domain.EventJudgeLog, domain.JudgeLogPayload{Line: line})
}

// transitionLocked moves to next if it is the legal successor.
func (o *Orchestrator) transitionLocked(next domain.TurnPhase) bool {
	if !o.phase.CanTransitionTo(next) {
		o.logger.Error("invalid phase transition",
			"from", o.phase,
			"to", next,
			"error", domain.ErrInvalidTransition,
		)
		return false
	}
	o.cancelTimersLocked()
	o.phase = next
	o.gen++
	o.emitPhaseLocked()
	return true
}

func (o *Orchestrator) emitPhaseLocked() {
	player := o.phase.Player()
	o.emitLocked(domain.EventPhaseChanged, domain.PhaseChangedPayload{
		Phase:  o.phase,
		Player: player,
		Words:  o.words[player].Words(),
	})
}

func (o *Orchestrator) emitLocked(eventType domain.EventType, payload interface{}) {
	if o.deps.Emit == nil {
		return
	}
	o.deps.Emit(domain.NewEvent(eventType, o.id, payload, o.deps.Scheduler.Now()))
}

// afterFunc schedules fn without holding the lock; fn validates state itself.
func (o *Orchestrator) afterFunc(d time.Duration, fn func()) {
	o.timers = append(o.timers, o.deps.Scheduler.AfterFunc(d, fn))
}

// afterLocked schedules fn to run under the lock, only if no phase change
// or teardown happened in between.
func (o *Orchestrator) afterLocked(d time.Duration, fn func()) {
	gen := o.gen
	o.afterFunc(d, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed || o.gen != gen {
			return
		}
		fn()
	})
}

func (o *Orchestrator) cancelTimersLocked() {
	for _, t := range o.timers {
		t.Stop()
	}
	o.timers = nil
}

func (o *Orchestrator) closeDone() {
	o.doneOnce.Do(func() {
		close(o.done)
	})
}
