package domain

import "time"

// GameResult is the terminal aggregate of a match. It is produced once when
// judging completes and handed out by value.
type GameResult struct {
	MatchID      string    `json:"matchId"`
	Mode         GameMode  `json:"mode"`
	Winner       Winner    `json:"winner"`
	P1Total      int       `json:"p1TotalScore"`
	P2Total      int       `json:"p2TotalScore"`
	P1Transcript string    `json:"p1Transcript"`
	P2Transcript string    `json:"p2Transcript"`
	P1Words      []string  `json:"p1Words"`
	P2Words      []string  `json:"p2Words"`
	Judges       []Verdict `json:"judges"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Clone returns a deep copy of the result
func (r GameResult) Clone() GameResult {
	out := r
	out.P1Words = append([]string(nil), r.P1Words...)
	out.P2Words = append([]string(nil), r.P2Words...)
	out.Judges = make([]Verdict, len(r.Judges))
	for i, v := range r.Judges {
		out.Judges[i] = v.clone()
	}
	return out
}

// Transcript returns the final transcript of a player
func (r GameResult) Transcript(p Player) string {
	if p == P2 {
		return r.P2Transcript
	}
	return r.P1Transcript
}

// MatchSnapshot is a point-in-time view of a match for status queries
type MatchSnapshot struct {
	MatchID   string    `json:"matchId"`
	Mode      GameMode  `json:"mode"`
	Phase     TurnPhase `json:"phase"`
	Started   bool      `json:"started"`
	Finished  bool      `json:"finished"`
	Exited    bool      `json:"exited"`
	Words     []string  `json:"words"`
	CreatedAt time.Time `json:"createdAt"`
}
