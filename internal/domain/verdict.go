package domain

// JudgeType decides whether a judge's scores count toward the total
type JudgeType string

const (
	JudgeScorer  JudgeType = "scorer"  // Numeric scores are weighted into the total
	JudgeAdvisor JudgeType = "advisor" // Free-text feedback only, scores are never aggregated
)

// Valid returns true for known judge types
func (t JudgeType) Valid() bool {
	return t == JudgeScorer || t == JudgeAdvisor
}

// Verdict is one judge's output for a single match
type Verdict struct {
	JudgeID  string    `json:"judgeId"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	Avatar   string    `json:"avatar"`
	Type     JudgeType `json:"judgeType"`
	Weight   float64   `json:"weight,omitempty"`
	ScoreP1  int       `json:"scoreP1"`
	ScoreP2  int       `json:"scoreP2"`
	Comment  string    `json:"comment"`
	Advice   string    `json:"advice"`
	Fallback bool      `json:"fallback,omitempty"`

	MatchedWordsP1   []string `json:"matchedWordsP1"`
	MatchedWordsP2   []string `json:"matchedWordsP2"`
	EmotionalWordsP1 int      `json:"emotionalWordsP1"`
	EmotionalWordsP2 int      `json:"emotionalWordsP2"`
}

// IsScorer returns true if the verdict participates in aggregation
func (v Verdict) IsScorer() bool {
	return v.Type == JudgeScorer
}

// clone copies the slices so callers cannot mutate a stored verdict
func (v Verdict) clone() Verdict {
	v.MatchedWordsP1 = append([]string(nil), v.MatchedWordsP1...)
	v.MatchedWordsP2 = append([]string(nil), v.MatchedWordsP2...)
	return v
}
