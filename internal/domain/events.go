package domain

import "time"

// EventType represents the type of match event
type EventType string

const (
	EventPhaseChanged    EventType = "PHASE_CHANGED"
	EventCountdownTick   EventType = "COUNTDOWN_TICK"
	EventRecordingTick   EventType = "RECORDING_TICK"
	EventLiveTranscript  EventType = "LIVE_TRANSCRIPT"
	EventTurnScored      EventType = "TURN_SCORED"
	EventJudgeLog        EventType = "JUDGE_LOG"
	EventCue             EventType = "CUE"
	EventMatchFinished   EventType = "MATCH_FINISHED"
	EventMatchExited     EventType = "MATCH_EXITED"
	EventClientConnected EventType = "CLIENT_CONNECTED"
	EventError           EventType = "ERROR"
)

// MatchEvent represents an event that occurred in a match
type MatchEvent struct {
	Type      EventType   `json:"type"`
	MatchID   string      `json:"matchId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new match event
func NewEvent(eventType EventType, matchID string, payload interface{}, at time.Time) *MatchEvent {
	return &MatchEvent{
		Type:      eventType,
		MatchID:   matchID,
		Payload:   payload,
		Timestamp: at,
	}
}

// Payload types for different events

// PhaseChangedPayload is sent on every phase transition
type PhaseChangedPayload struct {
	Phase  TurnPhase `json:"phase"`
	Player Player    `json:"player,omitempty"`
	Words  []string  `json:"words,omitempty"`
}

// CountdownPayload is sent on each READY tick
type CountdownPayload struct {
	Player    Player `json:"player"`
	Remaining int    `json:"remaining"`
}

// RecordingTickPayload is sent every second while recording
type RecordingTickPayload struct {
	Player           Player `json:"player"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// LiveTranscriptPayload carries the current partial transcription
type LiveTranscriptPayload struct {
	Player Player `json:"player"`
	Text   string `json:"text"`
}

// TurnScoredPayload carries the live preview score for a finished turn
type TurnScoredPayload struct {
	Player     Player `json:"player"`
	Transcript string `json:"transcript"`
	Score      int    `json:"score"`
	Reasoning  string `json:"reasoning"`
}

// JudgeLogPayload is one progressive status line during judging
type JudgeLogPayload struct {
	Line string `json:"line"`
}

// CueKind names an audio cue for the presentation layer
type CueKind string

const (
	CueKick      CueKind = "KICK"
	CueSnare     CueKind = "SNARE"
	CueBeatStart CueKind = "BEAT_START"
	CueBeatStop  CueKind = "BEAT_STOP"
	CueWin       CueKind = "WIN"
)

// CuePayload asks the client to play a cue
type CuePayload struct {
	Cue     CueKind `json:"cue"`
	Seconds int     `json:"seconds,omitempty"`
}

// ErrorPayload is sent when an error occurs
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
