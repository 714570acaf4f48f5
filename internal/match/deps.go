package match

import (
	"context"
	"log/slog"
	"time"

	"raisebar/internal/capture"
	"raisebar/internal/domain"
	"raisebar/internal/judge"
	"raisebar/internal/schedule"
)

// Timings controls the pacing of a match.
type Timings struct {
	IntroDelay     time.Duration
	CountdownTicks int
	TickInterval   time.Duration
	RecordDuration time.Duration
	TurnGap        time.Duration
	JudgingDelay   time.Duration
}

// DefaultTimings returns the standard match pacing.
func DefaultTimings() Timings {
	return Timings{
		IntroDelay:     2500 * time.Millisecond,
		CountdownTicks: 3,
		TickInterval:   time.Second,
		RecordDuration: 20 * time.Second,
		TurnGap:        2 * time.Second,
		JudgingDelay:   time.Second,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.IntroDelay <= 0 {
		t.IntroDelay = d.IntroDelay
	}
	if t.CountdownTicks <= 0 {
		t.CountdownTicks = d.CountdownTicks
	}
	if t.TickInterval <= 0 {
		t.TickInterval = d.TickInterval
	}
	if t.RecordDuration <= 0 {
		t.RecordDuration = d.RecordDuration
	}
	if t.TurnGap <= 0 {
		t.TurnGap = d.TurnGap
	}
	if t.JudgingDelay <= 0 {
		t.JudgingDelay = d.JudgingDelay
	}
	return t
}

// recordSeconds is the whole-second length of a recording window.
func (t Timings) recordSeconds() int {
	return int(t.RecordDuration / t.TickInterval)
}

// Refiner produces a higher-quality transcript from a recorded clip.
type Refiner interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Judges evaluates both finished turns.
type Judges interface {
	Evaluate(ctx context.Context, in judge.Input, progress func(string)) judge.Decision
}

// Cues plays presentation sounds. Calls must not block.
type Cues interface {
	Kick()
	Snare()
	StartBeat(seconds int)
	StopBeat()
	Win()
}

// Archive persists the combined transcript and later its grade.
type Archive interface {
	SaveSessionTranscript(ctx context.Context, text string) (int64, error)
	UpdateSessionGrade(ctx context.Context, id int64, grade, feedback string) error
}

// Emitter receives match events in order. It is called with the
// orchestrator's lock held and must not block or call back into it.
type Emitter func(event *domain.MatchEvent)

// Deps are the collaborators of an Orchestrator. Scheduler, Capture, Judges
// and Rhymes are required; the rest may be nil.
type Deps struct {
	Scheduler schedule.Scheduler
	Capture   capture.Adapter
	Refiner   Refiner
	Judges    Judges
	Rhymes    domain.RhymeSource
	Cues      Cues
	Archive   Archive
	Emit      Emitter
	Logger    *slog.Logger
}

type nopCues struct{}

func (nopCues) Kick()         {}
func (nopCues) Snare()        {}
func (nopCues) StartBeat(int) {}
func (nopCues) StopBeat()     {}
func (nopCues) Win()          {}
