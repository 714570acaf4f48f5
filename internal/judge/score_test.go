package judge

import (
	"testing"

	"raisebar/internal/domain"
)

func scorer(name string, weight float64, p1, p2 int) domain.Verdict {
	return domain.Verdict{Name: name, Type: domain.JudgeScorer, Weight: weight, ScoreP1: p1, ScoreP2: p2}
}

func TestAggregateWeightsScorersAndBonus(t *testing.T) {
	verdicts := []domain.Verdict{
		scorer("Passion Meter", 0.2, 80, 60),
		scorer("Flow Check", 0.8, 60, 85),
		{Name: "Coach", Type: domain.JudgeAdvisor, ScoreP1: 99, ScoreP2: 99},
	}
	got := Aggregate(verdicts, 2, 4)
	// P1: 16 + 48 + 6 = 70; P2: 12 + 68 + 10 = 90
	if got.P1Total != 70 || got.P2Total != 90 {
		t.Fatalf("totals = %d/%d, want 70/90", got.P1Total, got.P2Total)
	}
	if got.Winner != domain.WinnerP2 {
		t.Errorf("winner = %v", got.Winner)
	}
	if got.P1Bonus != 6 || got.P2Bonus != 10 {
		t.Errorf("bonus = %d/%d", got.P1Bonus, got.P2Bonus)
	}
	if len(got.Breakdown) != 3 {
		t.Errorf("breakdown lines = %d, want 3: %q", len(got.Breakdown), got.Breakdown)
	}
}

func TestAggregateTie(t *testing.T) {
	got := Aggregate([]domain.Verdict{scorer("a", 0.5, 50, 50), scorer("b", 0.5, 100, 100)}, 0, 0)
	if got.P1Total != 75 || got.P2Total != 75 || got.Winner != domain.WinnerTie {
		t.Fatalf("got %+v", got)
	}
	if len(got.Breakdown) != 2 {
		t.Errorf("no bonus line expected when both bonuses are zero: %q", got.Breakdown)
	}
}

func TestAggregateClamps(t *testing.T) {
	got := Aggregate([]domain.Verdict{scorer("a", 1.0, 100, 0)}, 10, 0)
	if got.P1Total != 100 {
		t.Errorf("P1 = %d, want capped 100", got.P1Total)
	}
	if got.P2Total != 0 {
		t.Errorf("P2 = %d", got.P2Total)
	}
	if got.P1Bonus != 10 {
		t.Errorf("bonus capped at 10, got %d", got.P1Bonus)
	}
}

func TestPreviewScore(t *testing.T) {
	words := []string{"Fire", "Desire", "Higher", "Wire"}
	score, reasoning := PreviewScore("my FIRE burns higher, pure rage", words)
	// matched fire, higher; emotional fire, pure, rage
	if want := 30 + 20 + 9; score != want {
		t.Errorf("score = %d, want %d", score, want)
	}
	if reasoning != "Matched: Fire, Higher" {
		t.Errorf("reasoning = %q", reasoning)
	}

	score, reasoning = PreviewScore("", words)
	if score != 30 || reasoning != "Matched: none" {
		t.Errorf("empty = %d %q", score, reasoning)
	}

	long := "fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire fire desire higher wire"
	if score, _ := PreviewScore(long, words); score != 100 {
		t.Errorf("score = %d, want capped 100", score)
	}
}

func TestEmotionalWordsWholeWord(t *testing.T) {
	if got := EmotionalWords("Skill kill KILL killer illness ill"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestMatchedWordsSubstring(t *testing.T) {
	got := MatchedWords("Crashing the TRASH", []string{"Crash", "Trash", "Bash", "Flash"})
	if len(got) != 2 || got[0] != "Crash" || got[1] != "Trash" {
		t.Errorf("got %q", got)
	}
}
