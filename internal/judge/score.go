package judge

import (
	"fmt"
	"math"
	"strings"

	"raisebar/internal/domain"
)

const (
	wordBonusPerMatch = 3
	wordBonusCap      = 10
	maxTotal          = 100

	previewBase        = 30
	previewPerMatch    = 10
	previewPerEmotion  = 3
	aggregateRoundSlop = 1e-9
)

// Score is the aggregated outcome of a panel.
type Score struct {
	P1Total   int           `json:"p1Total"`
	P2Total   int           `json:"p2Total"`
	P1Bonus   int           `json:"p1Bonus"`
	P2Bonus   int           `json:"p2Bonus"`
	Winner    domain.Winner `json:"winner"`
	Breakdown []string      `json:"breakdown"`
}

// WordBonus is the capped bonus for using target words.
func WordBonus(matched int) int {
	return min(wordBonusCap, wordBonusPerMatch*max(0, matched))
}

// Aggregate weights scorer verdicts, adds the word bonus and clamps each
// total to 0..100. Advisor verdicts never contribute.
func Aggregate(verdicts []domain.Verdict, p1Matched, p2Matched int) Score {
	var p1, p2 float64
	var breakdown []string
	for _, v := range verdicts {
		if !v.IsScorer() {
			continue
		}
		c1 := float64(v.ScoreP1) * v.Weight
		c2 := float64(v.ScoreP2) * v.Weight
		p1 += c1
		p2 += c2
		breakdown = append(breakdown, fmt.Sprintf("  %s: P1=%d (×%.1f=%.1f) P2=%d (×%.1f=%.1f)",
			v.Name, v.ScoreP1, v.Weight, c1, v.ScoreP2, v.Weight, c2))
	}

	s := Score{
		P1Bonus: WordBonus(p1Matched),
		P2Bonus: WordBonus(p2Matched),
	}
	if s.P1Bonus > 0 || s.P2Bonus > 0 {
		breakdown = append(breakdown, fmt.Sprintf("  Word bonuses: P1=+%d (%d words) P2=+%d (%d words)",
			s.P1Bonus, p1Matched, s.P2Bonus, p2Matched))
	}
	s.P1Total = clampTotal(p1 + float64(s.P1Bonus))
	s.P2Total = clampTotal(p2 + float64(s.P2Bonus))
	s.Winner = domain.DecideWinner(s.P1Total, s.P2Total)
	s.Breakdown = breakdown
	return s
}

func clampTotal(v float64) int {
	total := int(math.Floor(v + aggregateRoundSlop))
	return max(0, min(maxTotal, total))
}

// PreviewScore is the instant heuristic shown after a turn, before any judge
// has run. It returns the score and a short reasoning line.
func PreviewScore(transcript string, words []string) (int, string) {
	matched := MatchedWords(transcript, words)
	emotional := EmotionalWords(transcript)
	score := min(maxTotal, previewBase+previewPerMatch*len(matched)+previewPerEmotion*emotional)

	reasoning := "Matched: none"
	if len(matched) > 0 {
		reasoning = "Matched: " + strings.Join(matched, ", ")
	}
	return score, reasoning
}
