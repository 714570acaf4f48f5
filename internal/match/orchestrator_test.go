package match

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"raisebar/internal/capture"
	"raisebar/internal/domain"
	"raisebar/internal/judge"
	"raisebar/internal/schedule"
)

var start = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	lives    []string
	clip     *capture.Clip
	starts   int
	stops    int
	open     bool
	live     string
	partial  func(string)
	onStop   func()
}

func (f *fakeCapture) Start(_ context.Context, onPartial func(string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.open = true
	f.live = ""
	if len(f.lives) > 0 {
		f.live = f.lives[0]
		f.lives = f.lives[1:]
	}
	f.partial = onPartial
	return nil
}

func (f *fakeCapture) Stop(context.Context) (*capture.Clip, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, nil
	}
	f.open = false
	f.stops++
	f.partial = nil
	clip, onStop := f.clip, f.onStop
	f.mu.Unlock()
	if onStop != nil {
		onStop()
	}
	return clip, nil
}

func (f *fakeCapture) setLive(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = text
}

func (f *fakeCapture) LiveTranscript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *fakeCapture) push(text string) {
	f.mu.Lock()
	f.live = text
	cb := f.partial
	f.mu.Unlock()
	if cb != nil {
		cb(text)
	}
}

func (f *fakeCapture) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeRefiner struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (f *fakeRefiner) Transcribe(context.Context, []byte, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type fakeJudges struct {
	mu     sync.Mutex
	inputs []judge.Input
	during func()
}

func (f *fakeJudges) Evaluate(_ context.Context, in judge.Input, progress func(string)) judge.Decision {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	during := f.during
	f.mu.Unlock()

	progress("  Asking Flow Check...")
	if during != nil {
		during()
	}
	verdicts := []domain.Verdict{
		{JudgeID: "passion", Name: "Passion Meter", Type: domain.JudgeScorer, Weight: 0.2, ScoreP1: 80, ScoreP2: 60, Comment: "hot", Advice: "more"},
		{JudgeID: "coherence", Name: "Flow Check", Type: domain.JudgeScorer, Weight: 0.8, ScoreP1: 60, ScoreP2: 85, Comment: "tight", Advice: "bars"},
	}
	return judge.Decision{Verdicts: verdicts, Score: judge.Aggregate(verdicts, 2, 4)}
}

type fakeRhymes struct {
	mu   sync.Mutex
	sets [][]string
	n    int
}

func (f *fakeRhymes) Draw(domain.GameMode) (domain.RoundWords, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.sets[f.n%len(f.sets)]
	f.n++
	return domain.NewRoundWords(set)
}

type fakeArchive struct {
	mu      sync.Mutex
	block   chan struct{}
	texts   []string
	grades  []string
	graded  chan struct{}
	saveErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{graded: make(chan struct{}, 1)}
}

func (f *fakeArchive) SaveSessionTranscript(ctx context.Context, text string) (int64, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.texts = append(f.texts, text)
	return int64(len(f.texts)), nil
}

func (f *fakeArchive) UpdateSessionGrade(_ context.Context, _ int64, grade, feedback string) error {
	f.mu.Lock()
	f.grades = append(f.grades, grade+"|"+feedback)
	f.mu.Unlock()
	f.graded <- struct{}{}
	return nil
}

type fakeCues struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeCues) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeCues) Kick()         { f.record("kick") }
func (f *fakeCues) Snare()        { f.record("snare") }
func (f *fakeCues) StartBeat(int) { f.record("beat") }
func (f *fakeCues) StopBeat()     { f.record("stop") }
func (f *fakeCues) Win()          { f.record("win") }

type eventLog struct {
	mu     sync.Mutex
	events []*domain.MatchEvent
}

func (l *eventLog) emit(e *domain.MatchEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t domain.EventType) []*domain.MatchEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.MatchEvent
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) all() []*domain.MatchEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.MatchEvent(nil), l.events...)
}

type harness struct {
	sched   *schedule.Manual
	capture *fakeCapture
	refiner *fakeRefiner
	judges  *fakeJudges
	archive *fakeArchive
	cues    *fakeCues
	events  *eventLog
	orch    *Orchestrator
}

// leakyScheduler hands out tasks whose Stop has no effect, so cancelled
// callbacks still run.
type leakyScheduler struct {
	schedule.Scheduler
}

type leakyTask struct{}

func (leakyTask) Stop() bool { return false }

func (l leakyScheduler) AfterFunc(d time.Duration, f func()) schedule.Task {
	l.Scheduler.AfterFunc(d, f)
	return leakyTask{}
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		sched:   schedule.NewManual(start),
		capture: &fakeCapture{},
		refiner: &fakeRefiner{},
		judges:  &fakeJudges{},
		archive: newFakeArchive(),
		cues:    &fakeCues{},
		events:  &eventLog{},
	}
	rhymes := &fakeRhymes{sets: [][]string{
		{"Crash", "Trash", "Bash", "Flash"},
		{"Flow", "Show", "Glow", "Slow"},
	}}
	deps := Deps{
		Scheduler: h.sched,
		Capture:   h.capture,
		Refiner:   h.refiner,
		Judges:    h.judges,
		Rhymes:    rhymes,
		Cues:      h.cues,
		Archive:   h.archive,
		Emit:      h.events.emit,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	orch, err := New(context.Background(), "m-1", deps, DefaultTimings())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	t.Cleanup(orch.Exit)
	return h
}

// toP1Recording advances from Begin to the start of P1's capture window.
func (h *harness) toP1Recording(t *testing.T) {
	t.Helper()
	if err := h.orch.Begin(domain.ModeBattle, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	h.sched.Advance(2500*time.Millisecond + 3*time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP1Recording {
		t.Fatalf("phase = %s, want P1_RECORDING", got)
	}
}

func TestRecordingStartsOnlyAfterCountdown(t *testing.T) {
	h := newHarness(t)
	if err := h.orch.Begin(domain.ModeBattle, nil); err != nil {
		t.Fatal(err)
	}
	if got := h.orch.Phase(); got != domain.PhaseIntro {
		t.Fatalf("phase = %s", got)
	}

	h.sched.Advance(2500 * time.Millisecond)
	if got := h.orch.Phase(); got != domain.PhaseP1Ready {
		t.Fatalf("phase = %s, want P1_READY", got)
	}

	h.sched.Advance(2999 * time.Millisecond)
	if got := h.orch.Phase(); got != domain.PhaseP1Ready {
		t.Fatalf("phase = %s before countdown expiry", got)
	}
	if starts, _ := h.capture.counts(); starts != 0 {
		t.Fatalf("capture started during countdown")
	}

	h.sched.Advance(time.Millisecond)
	if got := h.orch.Phase(); got != domain.PhaseP1Recording {
		t.Fatalf("phase = %s, want P1_RECORDING", got)
	}
	if starts, _ := h.capture.counts(); starts != 1 {
		t.Fatalf("capture starts = %d", starts)
	}

	ticks := h.events.ofType(domain.EventCountdownTick)
	if len(ticks) != 3 {
		t.Fatalf("countdown ticks = %d", len(ticks))
	}
	for i, want := range []int{3, 2, 1} {
		if got := ticks[i].Payload.(domain.CountdownPayload).Remaining; got != want {
			t.Errorf("tick %d = %d, want %d", i, got, want)
		}
	}

	phases := h.events.ofType(domain.EventPhaseChanged)
	var seen []domain.TurnPhase
	for _, e := range phases {
		seen = append(seen, e.Payload.(domain.PhaseChangedPayload).Phase)
	}
	want := []domain.TurnPhase{domain.PhaseIntro, domain.PhaseP1Ready, domain.PhaseP1Recording}
	if len(seen) != len(want) {
		t.Fatalf("phases = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("phase %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestFullMatchProducesResult(t *testing.T) {
	h := newHarness(t)
	h.capture.lives = []string{"crash and trash", "flow show glow slow"}
	h.capture.clip = &capture.Clip{Data: []byte("audio"), MIMEType: "audio/webm"}
	h.refiner.replies = []string{"", "  refined P2 verse  "}

	h.toP1Recording(t)
	h.sched.Advance(20 * time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP1Processing {
		t.Fatalf("phase = %s, want P1_PROCESSING", got)
	}
	h.sched.Advance(2 * time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP2Ready {
		t.Fatalf("phase = %s, want P2_READY", got)
	}
	h.sched.Advance(3*time.Second + 20*time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP2Processing {
		t.Fatalf("phase = %s, want P2_PROCESSING", got)
	}
	h.sched.Advance(time.Second)

	select {
	case <-h.orch.Done():
	default:
		t.Fatal("match not done")
	}
	result, ok := h.orch.Result()
	if !ok {
		t.Fatal("no result")
	}
	if result.P1Total != 70 || result.P2Total != 90 || result.Winner != domain.WinnerP2 {
		t.Errorf("result = %d vs %d (%s)", result.P1Total, result.P2Total, result.Winner)
	}
	if result.P1Transcript != "crash and trash" {
		t.Errorf("P1 transcript = %q", result.P1Transcript)
	}
	if result.P2Transcript != "refined P2 verse" {
		t.Errorf("P2 transcript = %q", result.P2Transcript)
	}
	if result.P1Words[0] != "Crash" || result.P2Words[0] != "Flow" {
		t.Errorf("words = %v / %v", result.P1Words, result.P2Words)
	}

	in := h.judges.inputs[0]
	if in.P1.Transcript != result.P1Transcript || in.P2.Transcript != result.P2Transcript {
		t.Errorf("panel input = %+v", in)
	}

	finished := h.events.ofType(domain.EventMatchFinished)
	if len(finished) != 1 {
		t.Fatalf("MATCH_FINISHED events = %d", len(finished))
	}
	scored := h.events.ofType(domain.EventTurnScored)
	if len(scored) != 2 {
		t.Fatalf("TURN_SCORED events = %d", len(scored))
	}
	if p := scored[0].Payload.(domain.TurnScoredPayload); p.Score != 50 || p.Reasoning != "Matched: Crash, Trash" {
		t.Errorf("P1 preview = %+v", p)
	}

	var logLines []string
	for _, e := range h.events.ofType(domain.EventJudgeLog) {
		logLines = append(logLines, e.Payload.(domain.JudgeLogPayload).Line)
	}
	joined := strings.Join(logLines, "\n")
	for _, want := range []string{"Starting judge evaluation", "P1: crash and trash", "Calling judges", "Asking Flow Check", "Judging complete!", "Final: 70 vs 90"} {
		if !strings.Contains(joined, want) {
			t.Errorf("judge log missing %q:\n%s", want, joined)
		}
	}

	select {
	case <-h.archive.graded:
	case <-time.After(2 * time.Second):
		t.Fatal("archive grade not updated")
	}
	h.archive.mu.Lock()
	defer h.archive.mu.Unlock()
	if h.archive.texts[0] != "P1: crash and trash\nP2: refined P2 verse" {
		t.Errorf("archived text = %q", h.archive.texts[0])
	}
	if !strings.HasPrefix(h.archive.grades[0], "P1 70 vs P2 90|Passion Meter: hot (P1 80, P2 60) - more | Flow Check:") {
		t.Errorf("grade = %q", h.archive.grades[0])
	}
}

func TestEarlyStopIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.capture.lives = []string{"quick verse"}
	h.toP1Recording(t)

	h.sched.Advance(5 * time.Second)
	if !h.orch.StopCurrentTurnEarly() {
		t.Fatal("first stop did nothing")
	}
	if h.orch.StopCurrentTurnEarly() {
		t.Fatal("second stop ran again")
	}
	if got := h.orch.Phase(); got != domain.PhaseP1Processing {
		t.Fatalf("phase = %s", got)
	}

	// The cancelled auto-stop must not fire into P2's turn.
	h.sched.Advance(2*time.Second + 3*time.Second + 15*time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP2Recording {
		t.Fatalf("phase = %s, want P2_RECORDING", got)
	}
	if _, stops := h.capture.counts(); stops != 1 {
		t.Errorf("capture stops = %d, want 1", stops)
	}
	if n := len(h.events.ofType(domain.EventTurnScored)); n != 1 {
		t.Errorf("TURN_SCORED = %d, want 1", n)
	}
	if turn, ok := h.orch.Turn(domain.P1); !ok || turn.Transcript != "quick verse" {
		t.Errorf("P1 turn = %+v", turn)
	}
}

func TestStopOutsideRecordingIsNoop(t *testing.T) {
	h := newHarness(t)
	if h.orch.StopCurrentTurnEarly() {
		t.Fatal("stop before start did something")
	}
	_ = h.orch.Begin(domain.ModeBattle, nil)
	h.sched.Advance(3 * time.Second)
	if h.orch.StopCurrentTurnEarly() {
		t.Fatal("stop during countdown did something")
	}
	if got := h.orch.Phase(); got != domain.PhaseP1Ready {
		t.Fatalf("phase = %s", got)
	}
}

func TestCaptureFailureDegradesToPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.capture.startErr = capture.ErrPermissionDenied
	h.toP1Recording(t)

	h.sched.Advance(20 * time.Second)
	if got := h.orch.Phase(); got != domain.PhaseP1Processing {
		t.Fatalf("phase = %s", got)
	}
	turn, _ := h.orch.Turn(domain.P1)
	if turn.Transcript != domain.NoAudioPlaceholder {
		t.Errorf("transcript = %q", turn.Transcript)
	}
	if h.refiner.calls != 0 {
		t.Errorf("refiner called without a clip")
	}
}

func TestEmptyRefinementKeepsLiveTranscript(t *testing.T) {
	h := newHarness(t)
	h.capture.lives = []string{"my live bars"}
	h.capture.clip = &capture.Clip{Data: []byte{1, 2, 3}, MIMEType: "audio/webm"}
	h.refiner.replies = []string{"   "}
	h.toP1Recording(t)

	h.capture.push("my live bars")
	h.sched.Advance(20 * time.Second)

	turn, _ := h.orch.Turn(domain.P1)
	if turn.Transcript != "my live bars" || turn.Refined {
		t.Errorf("turn = %+v", turn)
	}
	if n := len(h.events.ofType(domain.EventLiveTranscript)); n != 1 {
		t.Errorf("LIVE_TRANSCRIPT = %d", n)
	}
}

func TestLiveTextFlushedByStopIsKept(t *testing.T) {
	h := newHarness(t)
	h.capture.onStop = func() { h.capture.setLive("last line landed") }
	h.toP1Recording(t)

	if !h.orch.StopCurrentTurnEarly() {
		t.Fatal("stop did nothing")
	}
	turn, _ := h.orch.Turn(domain.P1)
	if turn.Transcript != "last line landed" {
		t.Errorf("transcript = %q", turn.Transcript)
	}
}

func TestTickDuringStopIsDropped(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Scheduler = leakyScheduler{d.Scheduler} })
	h.toP1Recording(t)
	// The first countdown tick falls due while the capture is being released.
	h.capture.onStop = func() { h.sched.Advance(time.Second) }

	if !h.orch.StopCurrentTurnEarly() {
		t.Fatal("stop did nothing")
	}
	if got := h.orch.Phase(); got != domain.PhaseP1Processing {
		t.Fatalf("phase = %s", got)
	}
	if n := len(h.events.ofType(domain.EventRecordingTick)); n != 1 {
		t.Errorf("RECORDING_TICK = %d, want only the opening tick", n)
	}
	if n := len(h.events.ofType(domain.EventTurnScored)); n != 1 {
		t.Errorf("TURN_SCORED = %d", n)
	}
}

func TestRefinementErrorKeepsLiveTranscript(t *testing.T) {
	h := newHarness(t)
	h.capture.lives = []string{"live only"}
	h.capture.clip = &capture.Clip{Data: []byte{1}}
	h.refiner.err = errors.New("stt down")
	h.toP1Recording(t)
	h.sched.Advance(20 * time.Second)

	if turn, _ := h.orch.Turn(domain.P1); turn.Transcript != "live only" {
		t.Errorf("transcript = %q", turn.Transcript)
	}
}

func TestExitDuringRecordingFreezesMatch(t *testing.T) {
	h := newHarness(t)
	h.toP1Recording(t)
	h.sched.Advance(4 * time.Second)

	h.orch.Exit()
	before := len(h.events.all())

	h.sched.Advance(time.Minute)
	if got := h.orch.Phase(); got != domain.PhaseP1Recording {
		t.Fatalf("phase = %s, want frozen P1_RECORDING", got)
	}
	if after := len(h.events.all()); after != before {
		t.Fatalf("events after exit: %d -> %d", before, after)
	}
	last := h.events.all()[before-1]
	if last.Type != domain.EventMatchExited {
		t.Errorf("last event = %s", last.Type)
	}
	if _, stops := h.capture.counts(); stops != 1 {
		t.Errorf("capture stops = %d, want forced stop", stops)
	}
	if h.sched.Pending() != 0 {
		t.Errorf("pending timers = %d", h.sched.Pending())
	}
	if _, ok := h.orch.Result(); ok {
		t.Error("result after exit")
	}
	if !h.orch.Snapshot().Exited {
		t.Error("snapshot not marked exited")
	}

	h.orch.Exit()
	if err := h.orch.Begin(domain.ModeBattle, nil); !errors.Is(err, domain.ErrMatchClosed) {
		t.Errorf("Begin after exit = %v", err)
	}
}

func TestExitDuringJudgingDiscardsResult(t *testing.T) {
	h := newHarness(t)
	h.judges.during = h.orch.Exit
	h.toP1Recording(t)
	h.sched.Advance(20*time.Second + 2*time.Second + 3*time.Second + 20*time.Second + time.Second)

	if _, ok := h.orch.Result(); ok {
		t.Fatal("result kept after exit")
	}
	if n := len(h.events.ofType(domain.EventMatchFinished)); n != 0 {
		t.Fatalf("MATCH_FINISHED = %d", n)
	}
	if got := h.orch.Phase(); got != domain.PhaseRoundEnd {
		t.Errorf("phase = %s", got)
	}
}

func TestSlowArchiveDoesNotGateMatch(t *testing.T) {
	h := newHarness(t)
	h.archive.block = make(chan struct{})
	h.toP1Recording(t)
	h.sched.Advance(20*time.Second + 2*time.Second + 3*time.Second + 20*time.Second + time.Second)

	if _, ok := h.orch.Result(); !ok {
		t.Fatal("result waited on archive")
	}
	close(h.archive.block)
	select {
	case <-h.archive.graded:
	case <-time.After(2 * time.Second):
		t.Fatal("grade update never landed")
	}
}

func TestBeginValidation(t *testing.T) {
	h := newHarness(t)
	if err := h.orch.Begin("RAP", nil); !errors.Is(err, domain.ErrUnknownMode) {
		t.Errorf("unknown mode err = %v", err)
	}
	if err := h.orch.Begin(domain.ModeKindness, nil); err != nil {
		t.Fatal(err)
	}
	if err := h.orch.Begin(domain.ModeKindness, nil); !errors.Is(err, domain.ErrMatchStarted) {
		t.Errorf("second Begin err = %v", err)
	}
	snap := h.orch.Snapshot()
	if snap.Mode != domain.ModeKindness || !snap.Started || len(snap.Words) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCuesFollowTurn(t *testing.T) {
	h := newHarness(t)
	h.toP1Recording(t)
	h.sched.Advance(20 * time.Second)

	h.cues.mu.Lock()
	defer h.cues.mu.Unlock()
	want := []string{"snare", "kick", "beat", "stop", "snare"}
	if strings.Join(h.cues.calls, ",") != strings.Join(want, ",") {
		t.Errorf("cues = %v, want %v", h.cues.calls, want)
	}
}

func TestArchiveFormatting(t *testing.T) {
	if got := CombinedTranscript("a", "b"); got != "P1: a\nP2: b" {
		t.Errorf("combined = %q", got)
	}
	if got := Grade(70, 90); got != "P1 70 vs P2 90" {
		t.Errorf("grade = %q", got)
	}
	got := FeedbackSummary([]domain.Verdict{
		{Name: "A", Comment: "c1", ScoreP1: 1, ScoreP2: 2, Advice: "a1"},
		{Name: "B", Comment: "c2", ScoreP1: 3, ScoreP2: 4, Advice: "a2"},
	})
	if got != "A: c1 (P1 1, P2 2) - a1 | B: c2 (P1 3, P2 4) - a2" {
		t.Errorf("feedback = %q", got)
	}
	long := strings.Repeat("é", 60)
	if p := preview(long); p != strings.Repeat("é", 50)+"..." {
		t.Errorf("preview = %q", p)
	}
}
