package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// DefaultMaxClipBytes caps a single turn's audio.
const DefaultMaxClipBytes = 10 << 20

const defaultMIMEType = "audio/webm"

// Capabilities is what the client reports it can capture.
type Capabilities struct {
	Audio    bool   `json:"audio"`
	Speech   bool   `json:"speech"`
	Denied   bool   `json:"denied"`
	MIMEType string `json:"mimeType,omitempty"`
}

// Stream is an Adapter fed by the presentation client.
type Stream struct {
	device   *Device
	logger   *slog.Logger
	maxBytes int

	mu        sync.Mutex
	caps      Capabilities
	open      bool
	chunks    [][]byte
	size      int
	truncated bool
	live      string
	onPartial func(string)
}

// NewStream creates a stream adapter that holds device while a session is open.
// A nil device gets a private one.
func NewStream(device *Device, maxBytes int, logger *slog.Logger) *Stream {
	if device == nil {
		device = &Device{}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxClipBytes
	}
	return &Stream{
		device:   device,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// SetCapabilities records what the client can do. It applies to the next Start.
func (s *Stream) SetCapabilities(caps Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = caps
}

// Capabilities returns the last reported capabilities.
func (s *Stream) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// Start opens a session.
func (s *Stream) Start(ctx context.Context, onPartial func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.caps.Denied {
		return ErrPermissionDenied
	}
	if !s.caps.Audio && !s.caps.Speech {
		return ErrUnsupported
	}
	if err := s.device.Acquire(); err != nil {
		return err
	}

	s.open = true
	s.chunks = nil
	s.size = 0
	s.truncated = false
	s.live = ""
	s.onPartial = onPartial
	return nil
}

// Stop closes the session and returns the recorded clip.
func (s *Stream) Stop(context.Context) (*Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, nil
	}
	s.open = false
	s.onPartial = nil
	defer s.device.Release()

	if s.truncated && s.logger != nil {
		s.logger.Warn("audio clip truncated", "maxBytes", s.maxBytes)
	}

	if !s.caps.Audio || s.size == 0 {
		s.chunks = nil
		return nil, nil
	}

	data := make([]byte, 0, s.size)
	for _, chunk := range s.chunks {
		data = append(data, chunk...)
	}
	s.chunks = nil

	mime := strings.TrimSpace(s.caps.MIMEType)
	if mime == "" {
		mime = defaultMIMEType
	}
	return &Clip{Data: data, MIMEType: mime}, nil
}

// LiveTranscript returns the latest partial transcript.
func (s *Stream) LiveTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Active reports whether a session is open.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// PushAudio appends a chunk to the open session. Chunks outside a session,
// or beyond the size cap, are dropped.
func (s *Stream) PushAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || !s.caps.Audio {
		return
	}
	if s.size+len(chunk) > s.maxBytes {
		s.truncated = true
		return
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	s.size += len(chunk)
}

// PushPartial replaces the live transcript of the open session.
func (s *Stream) PushPartial(text string) {
	s.mu.Lock()
	if !s.open || !s.caps.Speech {
		s.mu.Unlock()
		return
	}
	s.live = text
	notify := s.onPartial
	s.mu.Unlock()

	if notify != nil {
		notify(text)
	}
}
