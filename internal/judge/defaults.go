package judge

import "raisebar/internal/domain"

// Backend names used by the default panel.
const (
	BackendFeatherless = "featherless"
	BackendK2          = "k2"
)

const passionPrompt = `
You are a rap battle judge evaluating two rappers' verses.

P1 ({{.P1.WordCount}} words): "{{.P1.Text}}"
P2 ({{.P2.WordCount}} words): "{{.P2.Text}}"

Score both 0-100 on their energy, delivery, and presence. Look for passion, confidence, and emotional impact in their raps. Longer verses with strong delivery should score higher.

Format: P1 Score: X, P2 Score: Y
Verdict: (brief analysis of their energy and delivery)
`

const flowPrompt = `
You are a rap battle judge evaluating two rappers' verses.

P1 ({{.P1.WordCount}} words, used {{.P1.MatchedCount}} rhyme words): "{{.P1.Text}}"
P2 ({{.P2.WordCount}} words, used {{.P2.MatchedCount}} rhyme words): "{{.P2.Text}}"

Score both 0-100 on their flow, rhyme scheme, and rhythm. Look for consistent rhyming, clever wordplay, and bars that fit the beat. Longer verses with tight rhymes and flow should score higher.

Format: P1 Score: X, P2 Score: Y
Verdict: (brief analysis of their flow and rhyme scheme)
`

const coachPrompt = `
You are a rap coach giving personalized feedback to two rappers about how they can improve next time.

Player 1's verse: "{{.P1.Text}}"
Player 2's verse: "{{.P2.Text}}"

Give 3 lines of personalized feedback for Player 1 about how they can do better next time, then 3 lines for Player 2. Focus on specific improvements they can make. Just write the feedback, nothing else.
`

// DefaultDefinitions returns the standard three-judge panel.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:      "passion",
			Name:    "Passion Meter",
			Role:    "Energy & Delivery",
			Avatar:  "🔥",
			Type:    domain.JudgeScorer,
			Weight:  0.2,
			Backend: BackendFeatherless,
			Prompt:  passionPrompt,
		},
		{
			ID:      "coherence",
			Name:    "Flow Check",
			Role:    "Rhyme & Rhythm",
			Avatar:  "🎯",
			Type:    domain.JudgeScorer,
			Weight:  0.8,
			Backend: BackendFeatherless,
			Prompt:  flowPrompt,
		},
		{
			ID:      "coach",
			Name:    "Coach K2",
			Role:    "Personalized Feedback",
			Avatar:  "🎓",
			Type:    domain.JudgeAdvisor,
			Backend: BackendK2,
			Model:   "k2-think-v2",
			Prompt:  coachPrompt,
		},
	}
}
