package session

import (
	"encoding/json"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

// handleFrame decodes one inbound frame and applies it to session state.
// Frames that fail to parse are dropped with a client-visible notice and
// leave state untouched. Frames from a superseded connection generation are
// discarded.
func (c *Client) handleFrame(gen uint64, raw []byte) {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		c.setNotice(noticeUnreadable)
		return
	}

	switch base.Type {
	case protocol.TypeWelcome:
		var m protocol.WelcomeMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyWelcome(gen, m)

	case protocol.TypePhaseTick:
		var m protocol.PhaseTickMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyPhaseTick(gen, m)

	case protocol.TypePhaseStatus:
		var m protocol.PhaseStatusMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyPhaseStatus(gen, m)

	case protocol.TypePhaseReport:
		var m protocol.PhaseReportMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyPhaseReport(gen, m)

	case protocol.TypeActionAck:
		c.applyActionAck(gen)

	case protocol.TypeSessionControlAck:
		var m protocol.SessionControlAckMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applySessionControlAck(gen, m)

	case protocol.TypeGameFinished:
		var m protocol.GameFinishedMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyGameFinished(gen, m)

	case protocol.TypeError:
		var m protocol.ErrorMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			c.setNotice(noticeUnreadable)
			return
		}
		c.applyErrorFrame(gen, m)

	default:
		// Unknown types are ignored; the connection stays open.
	}
}

func (c *Client) applyWelcome(gen uint64, m protocol.WelcomeMsg) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.SessionCode = m.SessionCode
	c.setPhaseLocked(m.Phase)
	c.state.Month = m.Month
	c.state.Settings = m.Settings
	if c.draft == nil {
		c.draft = newDraft(m.Settings)
	}
	c.state.FinalResults = nil
	c.state.Bankrupt = false
	c.applyAnalyticsLocked(m.Analytics)
	c.state.LastError = ""
	c.recomputeIdleStatusLocked()
	welcomed := c.welcomed
	c.mu.Unlock()

	if welcomed != nil {
		select {
		case welcomed <- struct{}{}:
		default:
		}
	}
	c.logger.Printf("joined session %s (phase=%s month=%d)", m.SessionCode, m.Phase, m.Month)
}

func (c *Client) applyPhaseTick(gen uint64, m protocol.PhaseTickMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.state.RemainingSeconds = m.Tick.RemainingSeconds
	c.setPhaseLocked(m.Tick.Phase)
}

func (c *Client) applyPhaseStatus(gen uint64, m protocol.PhaseStatusMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.setPhaseLocked(m.Phase)
	c.state.Month = m.Month
	c.applyAnalyticsLocked(m.Analytics)
	if m.RemainingSeconds != nil {
		c.state.RemainingSeconds = *m.RemainingSeconds
		if !c.state.Terminal() {
			c.state.Status = StatusRunning
		}
		return
	}
	c.recomputeIdleStatusLocked()
}

func (c *Client) applyPhaseReport(gen uint64, m protocol.PhaseReportMsg) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.Month = m.Report.Month
	c.setPhaseLocked(m.Report.Phase)
	c.applyAnalyticsLocked(m.Report.Analytics)
	c.state.Journal = append(c.state.Journal, m.Report.Journal...)
	if n := len(c.state.Journal); n > maxJournalEntries {
		c.state.Journal = append([]protocol.JournalEntry(nil), c.state.Journal[n-maxJournalEntries:]...)
	}
	if !c.state.Terminal() {
		c.state.Status = StatusRunning
	}
	code := c.state.SessionCode
	c.mu.Unlock()

	if c.journal != nil {
		for _, e := range m.Report.Journal {
			if err := c.journal.Record(code, e); err != nil {
				c.logger.Printf("journal write: %v", err)
				break
			}
		}
	}
}

func (c *Client) applyActionAck(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.state.LastError = ""
}

func (c *Client) applySessionControlAck(gen uint64, m protocol.SessionControlAckMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.state.Terminal() {
		return
	}
	if m.Started {
		c.state.Status = StatusRunning
		return
	}
	c.recomputeIdleStatusLocked()
}

func (c *Client) applyGameFinished(gen uint64, m protocol.GameFinishedMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.state.FinalResults = append([]protocol.FinalResult(nil), m.Results...)
	c.state.Bankrupt = false
	c.state.Status = StatusClosed
}

// applyErrorFrame surfaces an application error. The credential-invalid
// sentinel additionally hands the connection to the refresh coordinator by
// closing it with the flag set.
func (c *Client) applyErrorFrame(gen uint64, m protocol.ErrorMsg) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.LastError = m.Message
	sentinel := protocol.IsCredentialInvalidError(m.Message)
	if sentinel {
		c.credInvalid = true
	}
	conn := c.conn
	c.mu.Unlock()

	if sentinel && conn != nil {
		_ = conn.Close()
	}
}
