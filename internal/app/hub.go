package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"raisebar/internal/domain"
	"raisebar/internal/match"
	"raisebar/internal/schedule"
)

const (
	// StaleMatchTimeout is how long an unattended match is kept
	StaleMatchTimeout = 30 * time.Minute

	// FinishedMatchRetention is how long a finished match with no clients is kept
	FinishedMatchRetention = 10 * time.Minute

	cleanupInterval = time.Minute
)

// HubConfig holds the collaborators shared by every match
type HubConfig struct {
	Scheduler    schedule.Scheduler
	Refiner      match.Refiner
	Judges       match.Judges
	Archive      match.Archive
	Rhymes       *RhymeBook
	Timings      match.Timings
	MaxClipBytes int
	Logger       *slog.Logger
}

// HubStats is a point-in-time summary of the hub
type HubStats struct {
	Matches  int `json:"matches"`
	Active   int `json:"active"`
	Finished int `json:"finished"`
	Clients  int `json:"clients"`
}

// MatchHub manages all live match sessions
type MatchHub struct {
	cfg      HubConfig
	sessions map[string]*MatchSession
	mu       sync.RWMutex
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewMatchHub creates a new hub and starts its cleanup loop
func NewMatchHub(cfg HubConfig) *MatchHub {
	if cfg.Scheduler == nil {
		cfg.Scheduler = schedule.NewReal()
	}
	if cfg.Rhymes == nil {
		cfg.Rhymes = NewRhymeBook(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	hub := &MatchHub{
		cfg:      cfg,
		sessions: make(map[string]*MatchSession),
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// CreateMatch creates a new match and returns its session
func (h *MatchHub) CreateMatch(mode domain.GameMode) (*MatchSession, error) {
	if !mode.Valid() {
		return nil, domain.ErrUnknownMode
	}

	id := uuid.NewString()
	session, err := NewMatchSession(h.ctx, SessionConfig{
		ID:   id,
		Mode: mode,
		Deps: match.Deps{
			Scheduler: h.cfg.Scheduler,
			Refiner:   h.cfg.Refiner,
			Judges:    h.cfg.Judges,
			Archive:   h.cfg.Archive,
			Logger:    h.logger,
		},
		Timings:      h.cfg.Timings,
		Rhymes:       h.cfg.Rhymes,
		MaxClipBytes: h.cfg.MaxClipBytes,
	})
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.sessions[id] = session
	h.mu.Unlock()

	h.logger.Info("match created", "matchID", id, "mode", mode)
	return session, nil
}

// GetSession returns a match session by id
func (h *MatchHub) GetSession(id string) (*MatchSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return session, nil
}

// DeleteSession removes a match session
func (h *MatchHub) DeleteSession(id string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok {
		session.Close()
		h.logger.Info("match deleted", "matchID", id)
	}
}

// Stats summarizes the hub
func (h *MatchHub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{Matches: len(h.sessions)}
	for _, session := range h.sessions {
		stats.Clients += session.ClientCount()
		snap := session.Snapshot()
		switch {
		case snap.Finished:
			stats.Finished++
		case !snap.Exited:
			stats.Active++
		}
	}
	return stats
}

// Close shuts down the hub and all sessions
func (h *MatchHub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.cancel()

		h.mu.Lock()
		sessions := h.sessions
		h.sessions = make(map[string]*MatchSession)
		h.mu.Unlock()

		for _, session := range sessions {
			session.Close()
		}
	})
}

// cleanupLoop periodically cleans up stale matches
func (h *MatchHub) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStale(h.cfg.Scheduler.Now())
		}
	}
}

// cleanupStale removes matches nobody is attached to any more
func (h *MatchHub) cleanupStale(now time.Time) int {
	h.mu.Lock()
	stale := make([]*MatchSession, 0)
	for id, session := range h.sessions {
		if session.ClientCount() > 0 {
			continue
		}
		age := now.Sub(session.CreatedAt())
		snap := session.Snapshot()
		over := snap.Finished || snap.Exited
		if age > StaleMatchTimeout || (over && age > FinishedMatchRetention) {
			stale = append(stale, session)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, session := range stale {
		session.Close()
		h.logger.Info("stale match cleaned up", "matchID", session.ID())
	}
	return len(stale)
}
