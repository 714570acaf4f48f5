package domain

import (
	"encoding/json"
	"strings"
)

// RoundWordCount is the number of target words assigned per turn
const RoundWordCount = 4

// NoAudioPlaceholder stands in for a turn where nothing was transcribed
const NoAudioPlaceholder = "(No audio detected)"

// RoundWords is the set of rhyme words a player is scored against for one turn.
// The zero value is empty; use NewRoundWords to build a valid set.
type RoundWords struct {
	words [RoundWordCount]string
	set   bool
}

// NewRoundWords validates and freezes a rhyme set
func NewRoundWords(words []string) (RoundWords, error) {
	var rw RoundWords
	if len(words) != RoundWordCount {
		return rw, ErrInvalidRhymeSet
	}
	for i, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return RoundWords{}, ErrInvalidRhymeSet
		}
		rw.words[i] = w
	}
	rw.set = true
	return rw, nil
}

// Words returns a copy of the words in draw order
func (rw RoundWords) Words() []string {
	if !rw.set {
		return nil
	}
	out := make([]string, RoundWordCount)
	copy(out, rw.words[:])
	return out
}

// IsZero reports whether no set has been drawn
func (rw RoundWords) IsZero() bool {
	return !rw.set
}

// MarshalJSON encodes the set as a plain list
func (rw RoundWords) MarshalJSON() ([]byte, error) {
	words := rw.Words()
	if words == nil {
		words = []string{}
	}
	return json.Marshal(words)
}

// RhymeSource supplies a fresh rhyme set for a turn
type RhymeSource interface {
	Draw(mode GameMode) (RoundWords, error)
}

// FinalizeTranscript chooses the best transcript for a turn: a non-blank
// refinement wins, then a non-blank live transcript, then the placeholder.
func FinalizeTranscript(live, refined string) string {
	if r := strings.TrimSpace(refined); r != "" {
		return r
	}
	if strings.TrimSpace(live) != "" {
		return live
	}
	return NoAudioPlaceholder
}

// Turn records one player's completed recording
type Turn struct {
	Player     Player     `json:"player"`
	Words      RoundWords `json:"words"`
	Transcript string     `json:"transcript"`
	Refined    bool       `json:"refined"`
}
