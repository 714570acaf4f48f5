package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"raisebar/internal/domain"
	"raisebar/internal/services/llm"
)

// DefaultPacing is the pause between consecutive judge calls.
const DefaultPacing = 1500 * time.Millisecond

const (
	fallbackComment = "Error"
	fallbackAdvice  = "Try again"
)

// Backend answers one completion request.
type Backend interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Entry is one player's finished turn as seen by the panel.
type Entry struct {
	Transcript string
	Words      []string
}

// Input holds both players' turns.
type Input struct {
	P1 Entry
	P2 Entry
}

// Decision is the panel's complete output.
type Decision struct {
	Verdicts  []domain.Verdict `json:"verdicts"`
	P1Matched []string         `json:"p1Matched"`
	P2Matched []string         `json:"p2Matched"`
	Score     Score            `json:"score"`
}

// Panel evaluates matches with a fixed list of judges.
type Panel struct {
	defs     []Definition
	backends map[string]Backend
	pacing   time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// PanelOption customizes a Panel.
type PanelOption func(*Panel)

// WithPacing sets the delay between judges. Zero disables it.
func WithPacing(d time.Duration) PanelOption {
	return func(p *Panel) {
		if d >= 0 {
			p.pacing = d
		}
	}
}

// WithPanelSleeper overrides how the panel waits between judges.
func WithPanelSleeper(sleep func(ctx context.Context, d time.Duration) error) PanelOption {
	return func(p *Panel) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithLogger sets the panel logger.
func WithLogger(logger *slog.Logger) PanelOption {
	return func(p *Panel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPanel validates the definitions and binds them to backends by name.
// A definition naming a missing backend is allowed; that judge always falls
// back at evaluation time.
func NewPanel(defs []Definition, backends map[string]Backend, opts ...PanelOption) (*Panel, error) {
	compiled, err := compileAll(defs)
	if err != nil {
		return nil, err
	}
	p := &Panel{
		defs:     compiled,
		backends: make(map[string]Backend, len(backends)),
		pacing:   DefaultPacing,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for name, b := range backends {
		if b != nil {
			p.backends[name] = b
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Definitions returns a copy of the panel's judges in evaluation order.
func (p *Panel) Definitions() []Definition {
	out := make([]Definition, len(p.defs))
	copy(out, p.defs)
	return out
}

// Evaluate runs every judge in order and aggregates the result. It always
// returns exactly one verdict per judge. progress receives human-readable
// status lines and may be nil.
func (p *Panel) Evaluate(ctx context.Context, in Input, progress func(string)) Decision {
	if progress == nil {
		progress = func(string) {}
	}

	p1Matched := MatchedWords(in.P1.Transcript, in.P1.Words)
	p2Matched := MatchedWords(in.P2.Transcript, in.P2.Words)
	data := PromptData{
		P1: newPromptSide(in.P1.Transcript, p1Matched),
		P2: newPromptSide(in.P2.Transcript, p2Matched),
	}
	p1Emotion := EmotionalWords(in.P1.Transcript)
	p2Emotion := EmotionalWords(in.P2.Transcript)

	verdicts := make([]domain.Verdict, 0, len(p.defs))
	for i, def := range p.defs {
		progress(fmt.Sprintf("  Asking %s...", def.Name))

		v := p.judgeOne(ctx, def, data)
		v.MatchedWordsP1 = append([]string(nil), p1Matched...)
		v.MatchedWordsP2 = append([]string(nil), p2Matched...)
		v.EmotionalWordsP1 = p1Emotion
		v.EmotionalWordsP2 = p2Emotion
		verdicts = append(verdicts, v)

		progress(fmt.Sprintf("  ✓ %s responded", def.Name))

		if i < len(p.defs)-1 && p.pacing > 0 {
			// A cancelled wait only shortens the pause; the next judge
			// then reports its own fallback.
			_ = p.sleep(ctx, p.pacing)
		}
	}

	progress("📊 Calculating final scores...")
	score := Aggregate(verdicts, len(p1Matched), len(p2Matched))
	for _, line := range score.Breakdown {
		progress(line)
	}

	return Decision{
		Verdicts:  verdicts,
		P1Matched: p1Matched,
		P2Matched: p2Matched,
		Score:     score,
	}
}

func (p *Panel) judgeOne(ctx context.Context, def Definition, data PromptData) domain.Verdict {
	raw, err := p.ask(ctx, def, data)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, llm.ErrUnavailable) {
			level = slog.LevelInfo
		}
		p.logger.Log(ctx, level, "judge fell back",
			"judge", def.ID,
			"backend", def.Backend,
			"error", err,
		)
		return fallbackVerdict(def)
	}

	var parsed Parsed
	if def.Type == domain.JudgeAdvisor {
		parsed = ParseAdvisor(raw)
	} else {
		parsed = ParseScorer(raw)
	}
	if parsed.Status == ParseDefaulted {
		p.logger.Debug("judge reply off format", "judge", def.ID)
	}

	v := newVerdict(def)
	v.ScoreP1 = parsed.ScoreP1
	v.ScoreP2 = parsed.ScoreP2
	v.Comment = parsed.Comment
	v.Advice = parsed.Advice
	return v
}

func (p *Panel) ask(ctx context.Context, def Definition, data PromptData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	backend, ok := p.backends[def.Backend]
	if !ok {
		return "", fmt.Errorf("backend %q: %w", def.Backend, llm.ErrUnavailable)
	}
	prompt, err := def.render(data)
	if err != nil {
		return "", err
	}
	return backend.Complete(ctx, llm.Request{
		System:      def.System,
		Prompt:      prompt,
		Model:       def.Model,
		Temperature: def.Temperature,
		MaxTokens:   def.MaxTokens,
	})
}

func newVerdict(def Definition) domain.Verdict {
	return domain.Verdict{
		JudgeID: def.ID,
		Name:    def.Name,
		Role:    def.Role,
		Avatar:  def.Avatar,
		Type:    def.Type,
		Weight:  def.Weight,
	}
}

// fallbackVerdict is the neutral 50/50 verdict for a judge that could not
// answer. Advisors get the same scores; aggregation ignores them.
func fallbackVerdict(def Definition) domain.Verdict {
	v := newVerdict(def)
	v.Fallback = true
	v.Comment = fallbackComment
	v.Advice = fallbackAdvice
	v.ScoreP1 = DefaultScore
	v.ScoreP2 = DefaultScore
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
