package session

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

// gameServer is a minimal fake of the authoritative endpoint. The first
// connection is closed with a credential-rejected code after join; later
// connections are welcomed into session AB12.
type gameServer struct {
	t *testing.T

	mu     sync.Mutex
	tokens []string
	joins  []protocol.JoinMsg

	conns int32
}

func (g *gameServer) handler(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&g.conns, 1)

	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		g.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var join protocol.JoinMsg
	if err := json.Unmarshal(raw, &join); err != nil {
		g.t.Errorf("bad join frame: %v", err)
		return
	}

	g.mu.Lock()
	g.tokens = append(g.tokens, r.URL.Query().Get("token"))
	g.joins = append(g.joins, join)
	g.mu.Unlock()

	if n == 1 {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(protocol.CloseUnauthorized, "Invalid token")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		return
	}

	_ = conn.WriteJSON(welcomeFrame("AB12", protocol.PhaseExpenses, "alice", "bob"))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestCredentialRejectedCloseRefreshesAndRejoins(t *testing.T) {
	g := &gameServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(g.handler))
	defer srv.Close()

	ref := &fakeRefresher{fresh: "fresh"}
	store := &fakeStore{}
	c := New(Config{
		WSBaseURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		AccessToken: "stale",
		SessionCode: "AB12",
		Nickname:    "alice",
		RejoinWait:  5 * time.Second,
	}, ref, store, nil, log.New(io.Discard, "", 0))

	c.Open()
	defer c.Close()

	waitFor(t, func() bool {
		st := c.Snapshot()
		return st.SessionCode == "AB12" && st.Status == StatusReady
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.tokens) != 2 {
		t.Fatalf("server saw %d connections, want 2", len(g.tokens))
	}
	if g.tokens[0] != "stale" || g.tokens[1] != "fresh" {
		t.Fatalf("tokens = %v, want [stale fresh]", g.tokens)
	}
	for i, join := range g.joins {
		if join.SessionCode == nil || *join.SessionCode != "AB12" {
			t.Fatalf("connection %d joined %v, want AB12", i+1, join.SessionCode)
		}
	}
	if got := atomic.LoadInt32(&ref.calls); got != 1 {
		t.Fatalf("refresh called %d times, want 1", got)
	}
}

func TestRefreshFailureAbandonsSession(t *testing.T) {
	g := &gameServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(g.handler))
	defer srv.Close()

	ref := &fakeRefresher{err: errors.New("invalid token")}
	store := &fakeStore{}
	c := New(Config{
		WSBaseURL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		AccessToken: "stale",
		SessionCode: "AB12",
		Nickname:    "alice",
	}, ref, store, nil, log.New(io.Discard, "", 0))

	c.Open()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish after failed refresh")
	}

	if !c.AuthExpired() {
		t.Fatal("auth not marked expired")
	}
	if store.cleared != 1 {
		t.Fatalf("store cleared %d times, want 1", store.cleared)
	}
	if atomic.LoadInt32(&g.conns) != 1 {
		t.Fatalf("server saw %d connections, want 1", g.conns)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
