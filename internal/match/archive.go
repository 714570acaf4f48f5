package match

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"raisebar/internal/domain"
)

const previewRunes = 50

// CombinedTranscript is the archived text of a match.
func CombinedTranscript(p1, p2 string) string {
	return fmt.Sprintf("P1: %s\nP2: %s", p1, p2)
}

// Grade is the archived one-line score summary.
func Grade(p1Total, p2Total int) string {
	return fmt.Sprintf("P1 %d vs P2 %d", p1Total, p2Total)
}

// FeedbackSummary flattens every verdict into one archived line.
func FeedbackSummary(verdicts []domain.Verdict) string {
	parts := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		parts = append(parts, fmt.Sprintf("%s: %s (P1 %d, P2 %d) - %s",
			v.Name, v.Comment, v.ScoreP1, v.ScoreP2, v.Advice))
	}
	return strings.Join(parts, " | ")
}

// preview truncates a transcript for the judge log.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}
