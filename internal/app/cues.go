package app

import (
	"sync/atomic"
	"time"

	"raisebar/internal/domain"
)

// cueService turns orchestrator cue calls into CUE events for one match.
// After dispose it ignores every call.
type cueService struct {
	matchID  string
	now      func() time.Time
	publish  func(*domain.MatchEvent)
	disposed atomic.Bool
}

func newCueService(matchID string, now func() time.Time, publish func(*domain.MatchEvent)) *cueService {
	return &cueService{matchID: matchID, now: now, publish: publish}
}

func (c *cueService) Kick()  { c.send(domain.CuePayload{Cue: domain.CueKick}) }
func (c *cueService) Snare() { c.send(domain.CuePayload{Cue: domain.CueSnare}) }
func (c *cueService) Win()   { c.send(domain.CuePayload{Cue: domain.CueWin}) }

func (c *cueService) StartBeat(seconds int) {
	c.send(domain.CuePayload{Cue: domain.CueBeatStart, Seconds: seconds})
}

func (c *cueService) StopBeat() {
	c.send(domain.CuePayload{Cue: domain.CueBeatStop})
}

func (c *cueService) dispose() {
	c.disposed.Store(true)
}

func (c *cueService) send(payload domain.CuePayload) {
	if c.disposed.Load() {
		return
	}
	c.publish(domain.NewEvent(domain.EventCue, c.matchID, payload, c.now()))
}
