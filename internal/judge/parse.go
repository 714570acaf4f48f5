package judge

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore is used when a reply carries no parseable scores.
const DefaultScore = 50

const advisorCommentLines = 3

var (
	scoresPattern  = regexp.MustCompile(`(?s)P1\s+Score:\s*(\d+).*?P2\s+Score:\s*(\d+)`)
	verdictPattern = regexp.MustCompile(`(?s)Verdict:\s*(.+?)(?:\n\n|$)`)
)

// ParseStatus records whether a reply matched the expected format.
type ParseStatus string

const (
	ParseOK        ParseStatus = "ok"
	ParseDefaulted ParseStatus = "defaulted"
)

// Parsed is the structured form of a judge reply.
type Parsed struct {
	Status  ParseStatus
	ScoreP1 int
	ScoreP2 int
	Comment string
	Advice  string
}

// ParseScorer extracts both scores and the verdict line from a scorer reply.
// Missing scores default to DefaultScore; a missing verdict keeps the whole
// reply as the comment.
func ParseScorer(raw string) Parsed {
	out := Parsed{
		Status:  ParseDefaulted,
		ScoreP1: DefaultScore,
		ScoreP2: DefaultScore,
		Comment: strings.TrimSpace(raw),
	}
	if m := scoresPattern.FindStringSubmatch(raw); m != nil {
		out.Status = ParseOK
		out.ScoreP1 = clampScore(m[1])
		out.ScoreP2 = clampScore(m[2])
	}
	if m := verdictPattern.FindStringSubmatch(raw); m != nil {
		out.Comment = strings.TrimSpace(m[1])
	}
	return out
}

// ParseAdvisor splits an advisor reply into a short comment made of the first
// non-empty lines and the remainder as advice. Scores stay zero.
func ParseAdvisor(raw string) Parsed {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	out := Parsed{Status: ParseDefaulted}
	if len(lines) == 0 {
		return out
	}
	out.Status = ParseOK
	n := min(advisorCommentLines, len(lines))
	out.Comment = strings.Join(lines[:n], "\n")
	out.Advice = strings.Join(lines[n:], "\n")
	return out
}

func clampScore(digits string) int {
	v, err := strconv.Atoi(digits)
	if err != nil || v > 100 {
		// Overflowing digit runs are still "very high".
		return 100
	}
	return v
}
