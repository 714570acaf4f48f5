package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"raisebar/internal/domain"
	"raisebar/internal/services/llm"
)

type fakeBackend struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	prompts []string
	models  []string
}

func (f *fakeBackend) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	f.models = append(f.models, req.Model)
	if f.err != nil {
		return "", f.err
	}
	for key, reply := range f.replies {
		if strings.Contains(req.Prompt, key) {
			return reply, nil
		}
	}
	return "", errors.New("no reply scripted")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPanel(t *testing.T, backends map[string]Backend, opts ...PanelOption) (*Panel, *[]time.Duration) {
	t.Helper()
	var waits []time.Duration
	opts = append([]PanelOption{
		WithLogger(quietLogger()),
		WithPanelSleeper(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}),
	}, opts...)
	p, err := NewPanel(DefaultDefinitions(), backends, opts...)
	if err != nil {
		t.Fatalf("NewPanel: %v", err)
	}
	return p, &waits
}

func TestPanelEvaluateFullFlow(t *testing.T) {
	feather := &fakeBackend{replies: map[string]string{
		"energy, delivery": "P1 Score: 80, P2 Score: 60\nVerdict: P1 brought heat.",
		"flow, rhyme":      "P1 Score: 60, P2 Score: 85\nVerdict: P2 locked in.",
	}}
	k2 := &fakeBackend{replies: map[string]string{
		"rap coach": "Breathe\nSlow down\nProject\nUse more rhymes\nRide the beat",
	}}
	p, waits := newTestPanel(t, map[string]Backend{BackendFeatherless: feather, BackendK2: k2})

	var lines []string
	in := Input{
		P1: Entry{Transcript: "crash and trash on the beat", Words: []string{"Crash", "Trash", "Bash", "Flash"}},
		P2: Entry{Transcript: "flow show glow slow", Words: []string{"Flow", "Show", "Glow", "Slow"}},
	}
	d := p.Evaluate(context.Background(), in, func(line string) { lines = append(lines, line) })

	if len(d.Verdicts) != 3 {
		t.Fatalf("verdicts = %d, want 3", len(d.Verdicts))
	}
	if d.Score.P1Total != 70 || d.Score.P2Total != 90 || d.Score.Winner != domain.WinnerP2 {
		t.Errorf("score = %+v", d.Score)
	}
	coach := d.Verdicts[2]
	if coach.Type != domain.JudgeAdvisor || coach.Comment != "Breathe\nSlow down\nProject" || coach.Advice != "Use more rhymes\nRide the beat" {
		t.Errorf("coach = %+v", coach)
	}
	if k2.models[0] != "k2-think-v2" {
		t.Errorf("coach model = %q", k2.models[0])
	}
	if !strings.Contains(feather.prompts[1], "used 2 rhyme words") || !strings.Contains(feather.prompts[1], "used 4 rhyme words") {
		t.Errorf("flow prompt missing matched counts: %s", feather.prompts[1])
	}
	if len(*waits) != 2 {
		t.Errorf("pacing waits = %d, want 2 between three judges", len(*waits))
	}
	for _, v := range d.Verdicts {
		if len(v.MatchedWordsP1) != 2 || len(v.MatchedWordsP2) != 4 {
			t.Errorf("%s matched = %v/%v", v.JudgeID, v.MatchedWordsP1, v.MatchedWordsP2)
		}
	}

	want := []string{
		"  Asking Passion Meter...",
		"  ✓ Passion Meter responded",
		"  Asking Flow Check...",
		"  ✓ Flow Check responded",
		"  Asking Coach K2...",
		"  ✓ Coach K2 responded",
		"📊 Calculating final scores...",
	}
	if len(lines) < len(want) {
		t.Fatalf("progress lines = %q", lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestPanelFallbackOnFailure(t *testing.T) {
	failing := &fakeBackend{err: errors.New("boom")}
	p, _ := newTestPanel(t, map[string]Backend{BackendFeatherless: failing})

	d := p.Evaluate(context.Background(), Input{}, nil)
	if len(d.Verdicts) != 3 {
		t.Fatalf("verdicts = %d", len(d.Verdicts))
	}
	advisors := 0
	for _, v := range d.Verdicts {
		if !v.Fallback || v.Comment != "Error" || v.Advice != "Try again" {
			t.Errorf("%s not a fallback: %+v", v.JudgeID, v)
		}
		if v.ScoreP1 != 50 || v.ScoreP2 != 50 {
			t.Errorf("%s (%s) fallback scores = %d/%d, want 50/50", v.JudgeID, v.Type, v.ScoreP1, v.ScoreP2)
		}
		if v.Type == domain.JudgeAdvisor {
			advisors++
		}
	}
	if advisors != 1 {
		t.Errorf("advisor verdicts = %d, want 1", advisors)
	}
	// 50*0.2 + 50*0.8 with no word bonus.
	if d.Score.P1Total != 50 || d.Score.P2Total != 50 || d.Score.Winner != domain.WinnerTie {
		t.Errorf("score = %+v", d.Score)
	}
}

func TestPanelUnconfiguredClientFallsBack(t *testing.T) {
	unconfigured := llm.NewClient(llm.Config{Name: "featherless"})
	p, _ := newTestPanel(t, map[string]Backend{BackendFeatherless: unconfigured})
	d := p.Evaluate(context.Background(), Input{}, nil)
	for _, v := range d.Verdicts {
		if !v.Fallback {
			t.Errorf("%s expected fallback", v.JudgeID)
		}
	}
}

func TestPanelCancelledContext(t *testing.T) {
	backend := &fakeBackend{replies: map[string]string{"": "P1 Score: 1, P2 Score: 2"}}
	p, _ := newTestPanel(t, map[string]Backend{BackendFeatherless: backend, BackendK2: backend})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := p.Evaluate(ctx, Input{}, nil)
	if len(d.Verdicts) != 3 {
		t.Fatalf("verdicts = %d", len(d.Verdicts))
	}
	if len(backend.prompts) != 0 {
		t.Errorf("backend called %d times after cancel", len(backend.prompts))
	}
}

func TestNewPanelRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"empty", nil},
		{"missing id", []Definition{{Type: domain.JudgeAdvisor, Backend: "x", Prompt: "p"}}},
		{"bad type", []Definition{{ID: "a", Type: "critic", Backend: "x", Prompt: "p"}}},
		{"zero weight scorer", []Definition{{ID: "a", Type: domain.JudgeScorer, Backend: "x", Prompt: "p"}}},
		{"bad template", []Definition{{ID: "a", Type: domain.JudgeAdvisor, Backend: "x", Prompt: "{{.P1"}}},
		{"duplicate", []Definition{
			{ID: "a", Type: domain.JudgeAdvisor, Backend: "x", Prompt: "p"},
			{ID: "a", Type: domain.JudgeAdvisor, Backend: "x", Prompt: "p"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPanel(tt.defs, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
