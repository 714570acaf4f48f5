package ws

import (
	"encoding/json"
	"time"

	"raisebar/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgStartMatch        MessageType = "start_match"
	MsgStopTurn          MessageType = "stop_turn"
	MsgExitMatch         MessageType = "exit_match"
	MsgCapabilities      MessageType = "capabilities"
	MsgPartialTranscript MessageType = "partial_transcript"
	MsgPing              MessageType = "ping"
)

// Server → Client message types. Match events are sent as they are,
// typed by their event type.
const (
	MsgConnected MessageType = "connected"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// StartMatchPayload is the payload for start_match message
type StartMatchPayload struct {
	Mode        string     `json:"mode,omitempty"`
	RhymeGroups [][]string `json:"rhymeGroups,omitempty"`
}

// CapabilitiesPayload is the payload for capabilities message
type CapabilitiesPayload struct {
	Audio    bool   `json:"audio"`
	Speech   bool   `json:"speech"`
	Denied   bool   `json:"denied"`
	MIMEType string `json:"mimeType,omitempty"`
}

// PartialTranscriptPayload is the payload for partial_transcript message
type PartialTranscriptPayload struct {
	Text string `json:"text"`
}

// Server message payloads

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	ClientID string               `json:"clientId"`
	MatchID  string               `json:"matchId"`
	State    domain.MatchSnapshot `json:"state"`
}

// StopTurnPayload answers stop_turn
type StopTurnPayload struct {
	Stopped bool `json:"stopped"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeMatchStarted   = "MATCH_STARTED"
	ErrCodeMatchClosed    = "MATCH_CLOSED"
	ErrCodeUnknownMode    = "UNKNOWN_MODE"
	ErrCodeInvalidRhymes  = "INVALID_RHYMES"
	ErrCodeInvalidAction  = "INVALID_ACTION"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
