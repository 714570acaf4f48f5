package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"raisebar/internal/app"
	"raisebar/internal/domain"
	"raisebar/internal/judge"
	"raisebar/internal/schedule"
)

type noJudges struct{}

func (noJudges) Evaluate(context.Context, judge.Input, func(string)) judge.Decision {
	return judge.Decision{}
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestSocket(t *testing.T) (*app.MatchHub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := app.NewMatchHub(app.HubConfig{
		Scheduler: schedule.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Judges:    noJudges{},
		Logger:    logger,
	})
	t.Cleanup(hub.Close)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", NewHandler(hub, nil, logger))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, matchID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?matchId=" + matchID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of type want arrives. Queued messages
// can share one websocket frame, separated by newlines.
func readUntil(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var f frame
			if err := json.Unmarshal(line, &f); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			if f.Type == want {
				return f
			}
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, payload any) {
	t.Helper()
	body := map[string]any{"type": msgType}
	if payload != nil {
		body["payload"] = payload
	}
	if err := conn.WriteJSON(body); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestSocketConnectAndPing(t *testing.T) {
	hub, srv := newTestSocket(t)
	session, err := hub.CreateMatch(domain.ModeBattle)
	if err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv, session.ID())

	connected := readUntil(t, conn, string(MsgConnected))
	var payload ConnectedPayload
	if err := json.Unmarshal(connected.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.MatchID != session.ID() || payload.ClientID == "" || payload.State.Started {
		t.Errorf("connected = %+v", payload)
	}

	send(t, conn, MsgPing, nil)
	readUntil(t, conn, string(MsgPong))

	send(t, conn, "dance", nil)
	f := readUntil(t, conn, string(MsgError))
	var e ErrorPayload
	json.Unmarshal(f.Payload, &e)
	if e.Code != ErrCodeInvalidMessage {
		t.Errorf("error = %+v", e)
	}
}

func TestSocketStartMatch(t *testing.T) {
	hub, srv := newTestSocket(t)
	session, _ := hub.CreateMatch(domain.ModeBattle)
	conn := dial(t, srv, session.ID())
	readUntil(t, conn, string(MsgConnected))

	send(t, conn, MsgStartMatch, StartMatchPayload{Mode: "opera"})
	f := readUntil(t, conn, string(MsgError))
	var e ErrorPayload
	json.Unmarshal(f.Payload, &e)
	if e.Code != ErrCodeUnknownMode {
		t.Errorf("bad mode error = %+v", e)
	}

	send(t, conn, MsgCapabilities, CapabilitiesPayload{Speech: true})
	send(t, conn, MsgStartMatch, StartMatchPayload{Mode: "kindness"})
	phase := readUntil(t, conn, string(domain.EventPhaseChanged))
	var changed domain.PhaseChangedPayload
	json.Unmarshal(phase.Payload, &changed)
	if changed.Phase != domain.PhaseIntro {
		t.Errorf("first phase = %s", changed.Phase)
	}
	if !session.Snapshot().Started || session.Mode() != domain.ModeKindness {
		t.Errorf("snapshot = %+v", session.Snapshot())
	}

	send(t, conn, MsgStartMatch, nil)
	f = readUntil(t, conn, string(MsgError))
	json.Unmarshal(f.Payload, &e)
	if e.Code != ErrCodeMatchStarted {
		t.Errorf("restart error = %+v", e)
	}

	send(t, conn, MsgStopTurn, nil)
	f = readUntil(t, conn, string(MsgStopTurn))
	var stop StopTurnPayload
	json.Unmarshal(f.Payload, &stop)
	if stop.Stopped {
		t.Error("stop during intro reported true")
	}
}

func TestSocketRejectsBadRequests(t *testing.T) {
	_, srv := newTestSocket(t)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing id status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ws?matchId=missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown match status = %d", resp.StatusCode)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrMatchStarted, ErrCodeMatchStarted},
		{fmt.Errorf("begin: %w", domain.ErrMatchClosed), ErrCodeMatchClosed},
		{domain.ErrUnknownMode, ErrCodeUnknownMode},
		{domain.ErrInvalidRhymeSet, ErrCodeInvalidRhymes},
		{domain.ErrNoRhymeGroups, ErrCodeInvalidRhymes},
		{domain.ErrInvalidPhase, ErrCodeInvalidAction},
		{errors.New("boom"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		if got, _ := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
