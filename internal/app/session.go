package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"raisebar/internal/capture"
	"raisebar/internal/domain"
	"raisebar/internal/match"
	"raisebar/internal/schedule"
)

const eventQueueSize = 256

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetClientID() string
	Close() error
}

// MatchSession wraps one match with its capture stream and connected clients
type MatchSession struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	orch   *match.Orchestrator
	stream *capture.Stream
	cues   *cueService
	rhymes *RhymeBook

	mu   sync.RWMutex
	mode domain.GameMode

	clients   map[string]ClientConnection // clientID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	// Event channel for broadcasting
	events    chan *domain.MatchEvent
	done      chan struct{}
	closeOnce sync.Once
}

// SessionConfig holds what a session needs to build its orchestrator
type SessionConfig struct {
	ID      string
	Mode    domain.GameMode
	Deps    match.Deps
	Timings match.Timings
	Rhymes  *RhymeBook
	// MaxClipBytes caps recorded audio per turn
	MaxClipBytes int
}

// NewMatchSession creates a session and starts its event broadcaster
func NewMatchSession(ctx context.Context, cfg SessionConfig) (*MatchSession, error) {
	if cfg.Deps.Scheduler == nil {
		cfg.Deps.Scheduler = schedule.NewReal()
	}
	logger := cfg.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("matchID", cfg.ID)

	s := &MatchSession{
		id:      cfg.ID,
		mode:    cfg.Mode,
		now:     cfg.Deps.Scheduler.Now,
		rhymes:  cfg.Rhymes,
		clients: make(map[string]ClientConnection),
		logger:  logger,
		events:  make(chan *domain.MatchEvent, eventQueueSize),
		done:    make(chan struct{}),
	}
	s.createdAt = s.now()
	s.stream = capture.NewStream(nil, cfg.MaxClipBytes, logger)
	s.cues = newCueService(cfg.ID, s.now, s.queueEvent)

	deps := cfg.Deps
	deps.Capture = s.stream
	deps.Cues = s.cues
	deps.Emit = s.queueEvent
	deps.Logger = logger
	if cfg.Rhymes != nil {
		deps.Rhymes = cfg.Rhymes
	}

	orch, err := match.New(ctx, cfg.ID, deps, cfg.Timings)
	if err != nil {
		return nil, err
	}
	s.orch = orch

	go s.eventLoop()
	go s.watchMatch()

	return s, nil
}

// ID returns the match id
func (s *MatchSession) ID() string {
	return s.id
}

// Mode returns the mode the match was created with
func (s *MatchSession) Mode() domain.GameMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// CreatedAt returns when the session was created
func (s *MatchSession) CreatedAt() time.Time {
	return s.createdAt
}

// Snapshot returns the current match state
func (s *MatchSession) Snapshot() domain.MatchSnapshot {
	return s.orch.Snapshot()
}

// Result returns the final result once the match has finished
func (s *MatchSession) Result() (domain.GameResult, error) {
	result, ok := s.orch.Result()
	if !ok {
		return domain.GameResult{}, domain.ErrMatchNotFinished
	}
	return result, nil
}

// MatchDone is closed when the match finishes or is exited
func (s *MatchSession) MatchDone() <-chan struct{} {
	return s.orch.Done()
}

// RegisterClient registers a client connection
func (s *MatchSession) RegisterClient(clientID string, client ClientConnection) {
	s.clientsMu.Lock()
	s.clients[clientID] = client
	s.clientsMu.Unlock()

	s.queueEvent(domain.NewEvent(domain.EventClientConnected, s.id, s.orch.Snapshot(), s.now()))
}

// UnregisterClient removes a client connection
func (s *MatchSession) UnregisterClient(clientID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, clientID)
}

// ClientCount returns the number of connected clients
func (s *MatchSession) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Start begins the match. An empty mode keeps the session's mode; custom
// groups replace that mode's built-in rhyme groups for this match only.
func (s *MatchSession) Start(mode string, groups [][]string) error {
	m := s.Mode()
	if mode != "" {
		parsed, err := domain.ParseGameMode(mode)
		if err != nil {
			return err
		}
		m = parsed
	}

	var source domain.RhymeSource
	if len(groups) > 0 {
		if s.rhymes == nil {
			return domain.ErrNoRhymeGroups
		}
		book, err := s.rhymes.WithGroups(m, groups)
		if err != nil {
			return err
		}
		source = book
	}

	if err := s.orch.Begin(m, source); err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	return nil
}

// StopTurn ends the current recording early. It reports whether a
// recording was actually stopped.
func (s *MatchSession) StopTurn() bool {
	return s.orch.StopCurrentTurnEarly()
}

// Exit abandons the match
func (s *MatchSession) Exit() {
	s.orch.Exit()
}

// SetCapabilities records what the presentation client can capture
func (s *MatchSession) SetCapabilities(caps capture.Capabilities) {
	s.stream.SetCapabilities(caps)
}

// PushAudio feeds an audio chunk into the open capture session
func (s *MatchSession) PushAudio(chunk []byte) {
	s.stream.PushAudio(chunk)
}

// PushPartial feeds a live partial transcript into the open capture session
func (s *MatchSession) PushPartial(text string) {
	s.stream.PushPartial(text)
}

// watchMatch retires the cue service once the match is over
func (s *MatchSession) watchMatch() {
	select {
	case <-s.orch.Done():
		s.cues.dispose()
	case <-s.done:
	}
}

// queueEvent adds an event to the broadcast queue
func (s *MatchSession) queueEvent(event *domain.MatchEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *MatchSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to every client
func (s *MatchSession) broadcastEvent(event *domain.MatchEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for clientID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "clientID", clientID, "error", err)
		}
	}
}

// Close exits the match and shuts down the session
func (s *MatchSession) Close() {
	s.closeOnce.Do(func() {
		s.orch.Exit()
		s.cues.dispose()
		close(s.done)

		// Close all client connections
		s.clientsMu.Lock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clients = make(map[string]ClientConnection)
		s.clientsMu.Unlock()
	})
}
