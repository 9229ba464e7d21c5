package session

import "github.com/bloodlaac/fabricat/internal/protocol"

// Status is the connection lifecycle state. closed and error are absorbing.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusReady      Status = "ready"
	StatusRunning    Status = "running"
	StatusWaiting    Status = "waiting"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// maxJournalEntries bounds the locally retained report journal.
const maxJournalEntries = 64

// State is the single authoritative local mirror of server-pushed simulation
// state. Mutated only by the message router and the connection lifecycle.
type State struct {
	Status      Status
	SessionCode string

	Phase            protocol.Phase
	Month            int
	RemainingSeconds int

	Analytics protocol.Analytics
	Settings  protocol.Settings

	FinalResults []protocol.FinalResult
	Bankrupt     bool

	Journal []protocol.JournalEntry

	// LastError carries the latest server-sent error banner; Notice carries
	// client-side notices (unreadable frames, send while not connected).
	LastError string
	Notice    string
}

// Terminal reports whether the session accepts no further actions.
func (s State) Terminal() bool {
	return len(s.FinalResults) > 0
}

// Snapshot returns a copy of the current state. The returned value does not
// alias router-owned slices.
func (c *Client) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := c.state
	st.FinalResults = append([]protocol.FinalResult(nil), c.state.FinalResults...)
	st.Journal = append([]protocol.JournalEntry(nil), c.state.Journal...)
	st.Analytics.Players = append([]protocol.PlayerSummary(nil), c.state.Analytics.Players...)
	return st
}

// setPhaseLocked applies a phase value change and resets every category lock.
// The reset keys off the value change, not the message type that carried it.
func (c *Client) setPhaseLocked(p protocol.Phase) {
	if p == "" || p == c.state.Phase {
		return
	}
	c.state.Phase = p
	for k := range c.locks {
		delete(c.locks, k)
	}
}

// applyAnalyticsLocked replaces the analytics snapshot wholesale and mirrors
// the local player's bankrupt flag.
func (c *Client) applyAnalyticsLocked(a protocol.Analytics) {
	c.state.Analytics = a
	for _, p := range a.Players {
		if p.Nickname == c.cfg.Nickname {
			c.state.Bankrupt = p.Bankrupt
			break
		}
	}
}

// recomputeIdleStatusLocked picks ready vs waiting while the session is not
// actively ticking: a session with fewer than two players cannot start.
func (c *Client) recomputeIdleStatusLocked() {
	if c.state.Terminal() {
		return
	}
	if len(c.state.Analytics.Players) < 2 {
		c.state.Status = StatusWaiting
		return
	}
	c.state.Status = StatusReady
}
