// Package stt re-transcribes a recorded turn with a hosted speech-to-text
// service. The result replaces the live transcript when it is non-empty.
package stt
