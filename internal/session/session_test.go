package session

import (
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return New(Config{
		Nickname: "alice",
	}, nil, nil, nil, log.New(io.Discard, "", 0))
}

// feed marshals v and routes it as an inbound frame on the current generation.
func feed(t *testing.T, c *Client, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	c.handleFrame(c.gen, b)
}

func players(names ...string) []protocol.PlayerSummary {
	out := make([]protocol.PlayerSummary, 0, len(names))
	for i, n := range names {
		out = append(out, protocol.PlayerSummary{PlayerID: i + 1, Nickname: n, Money: 10000})
	}
	return out
}

func welcomeFrame(code string, phase protocol.Phase, names ...string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:        protocol.TypeWelcome,
		SessionCode: code,
		Phase:       phase,
		Month:       1,
		Analytics:   protocol.Analytics{Players: players(names...)},
		Settings: protocol.Settings{
			MonthDurationSeconds: 60,
			TotalMonths:          12,
		},
	}
}

func statusFrame(phase protocol.Phase, remaining *int, names ...string) protocol.PhaseStatusMsg {
	return protocol.PhaseStatusMsg{
		Type:             protocol.TypePhaseStatus,
		Phase:            phase,
		Month:            1,
		RemainingSeconds: remaining,
		Analytics:        protocol.Analytics{Players: players(names...)},
	}
}

func intp(v int) *int { return &v }

func TestWelcomeAdoptsServerSessionCode(t *testing.T) {
	c := newTestClient(t)
	if c.joinCode() != "" {
		t.Fatalf("fresh client should join with empty code, got %q", c.joinCode())
	}

	feed(t, c, welcomeFrame("AB12", protocol.PhaseExpenses, "alice"))

	st := c.Snapshot()
	if st.SessionCode != "AB12" {
		t.Fatalf("session code = %q, want AB12", st.SessionCode)
	}
	if c.joinCode() != "AB12" {
		t.Fatalf("rejoin must reuse the assigned code, got %q", c.joinCode())
	}
}

func TestIdleStatusTracksPlayerCount(t *testing.T) {
	c := newTestClient(t)

	feed(t, c, welcomeFrame("AB12", protocol.PhaseExpenses, "alice"))
	if st := c.Snapshot(); st.Status != StatusWaiting {
		t.Fatalf("single player should wait, got %s", st.Status)
	}

	feed(t, c, statusFrame(protocol.PhaseExpenses, nil, "alice", "bob"))
	if st := c.Snapshot(); st.Status != StatusReady {
		t.Fatalf("two players should be ready, got %s", st.Status)
	}

	feed(t, c, statusFrame(protocol.PhaseExpenses, nil, "alice"))
	if st := c.Snapshot(); st.Status != StatusWaiting {
		t.Fatalf("dropping below two players should wait again, got %s", st.Status)
	}
}

func TestTickingStatusIsRunning(t *testing.T) {
	c := newTestClient(t)
	feed(t, c, welcomeFrame("AB12", protocol.PhaseExpenses, "alice", "bob"))

	feed(t, c, statusFrame(protocol.PhaseBuy, intp(42), "alice", "bob"))

	st := c.Snapshot()
	if st.Status != StatusRunning {
		t.Fatalf("status = %s, want running", st.Status)
	}
	if st.RemainingSeconds != 42 {
		t.Fatalf("remaining = %d, want 42", st.RemainingSeconds)
	}
}

func TestStartOnlyWhileReady(t *testing.T) {
	c := newTestClient(t)

	if err := c.Start(); err == nil {
		t.Fatal("start before welcome should be rejected")
	}

	feed(t, c, welcomeFrame("AB12", protocol.PhaseExpenses, "alice", "bob"))
	if err := c.Start(); err != nil {
		t.Fatalf("start while ready: %v", err)
	}
}

func TestSendWithoutConnectionSurfacesNotice(t *testing.T) {
	c := newTestClient(t)

	if err := c.send(protocol.NewStart()); err != nil {
		t.Fatalf("send never propagates transport errors, got %v", err)
	}
	if st := c.Snapshot(); st.Notice != noticeNotConnected {
		t.Fatalf("notice = %q, want %q", st.Notice, noticeNotConnected)
	}
}

func TestWSURLEncodesToken(t *testing.T) {
	c := New(Config{
		WSBaseURL:   "ws://localhost:8000/",
		AccessToken: "a b+c",
	}, nil, nil, nil, log.New(io.Discard, "", 0))

	u := c.wsURL()
	if !strings.HasPrefix(u, "ws://localhost:8000/ws/game?") {
		t.Fatalf("unexpected url %q", u)
	}
	if !strings.Contains(u, "token=a+b%2Bc") {
		t.Fatalf("token not encoded in %q", u)
	}
}

func TestGhostFramesAreDiscarded(t *testing.T) {
	c := newTestClient(t)
	feed(t, c, welcomeFrame("AB12", protocol.PhaseExpenses, "alice", "bob"))

	c.mu.Lock()
	c.gen++ // a replacement connection became canonical
	c.mu.Unlock()

	stale, _ := json.Marshal(statusFrame(protocol.PhaseBuy, intp(10), "alice", "bob"))
	c.handleFrame(c.gen-1, stale)

	if st := c.Snapshot(); st.Phase != protocol.PhaseExpenses {
		t.Fatalf("stale frame applied: phase = %s", st.Phase)
	}
}

func TestCloseBeforeOpen(t *testing.T) {
	c := newTestClient(t)
	c.Close()
	select {
	case <-c.Done():
	default:
		t.Fatal("done must be closed after Close")
	}
	if st := c.Snapshot(); st.Status != StatusClosed {
		t.Fatalf("status = %s, want closed", st.Status)
	}
}
