package judge

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// emotionLexicon is the fixed set of high-intensity words counted toward a
// verse's emotional signal.
var emotionLexicon = []string{
	"hate", "love", "fire", "destroy", "kill", "slay", "ugly", "beautiful",
	"amazing", "terrible", "sick", "ill", "dope", "weak", "strong", "crush",
	"burn", "freeze", "explode", "rage", "fury", "passion", "intense", "fierce",
	"brutal", "savage", "vicious", "raw", "pure", "electric", "thunder",
}

var emotionPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(emotionLexicon))
	for i, word := range emotionLexicon {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return out
}()

var folder = cases.Fold()

// MatchedWords returns the target words that occur in the transcript,
// compared case-insensitively as substrings, in target order.
func MatchedWords(transcript string, words []string) []string {
	text := folder.String(transcript)
	matched := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if strings.Contains(text, folder.String(w)) {
			matched = append(matched, w)
		}
	}
	return matched
}

// EmotionalWords counts whole-word, case-insensitive occurrences of lexicon
// words in the transcript.
func EmotionalWords(transcript string) int {
	count := 0
	for _, re := range emotionPatterns {
		count += len(re.FindAllStringIndex(transcript, -1))
	}
	return count
}
