// Package capture wraps one player's audio recording and live transcription
// as a single session.
//
// The microphone lives in the presentation client. Stream is the server-side
// half: the client reports what it can capture, then feeds audio chunks and
// partial transcripts over the match connection while a session is open.
package capture
