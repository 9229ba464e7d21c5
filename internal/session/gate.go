package session

import (
	"errors"
	"fmt"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

// Gate refusals. These are client-side validation errors: they block the
// action locally and never reach the network.
var (
	errGameFinished     = errors.New("game is finished")
	errBankrupt         = errors.New("player is bankrupt")
	errAlreadySubmitted = errors.New("already submitted this phase")
	errNoSettings       = errors.New("no settings received yet")
)

// CanSubmit reports whether kind would currently pass the phase action gate.
func (c *Client) CanSubmit(kind protocol.ActionKind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canSubmitLocked(kind) == nil
}

func (c *Client) canSubmitLocked(kind protocol.ActionKind) error {
	if c.state.Terminal() {
		return errGameFinished
	}
	if c.state.Bankrupt {
		return errBankrupt
	}
	if !protocol.AllowedIn(c.state.Phase, kind) {
		return fmt.Errorf("action %s is not permitted during phase %s", kind, c.state.Phase)
	}
	cat, ok := protocol.CategoryFor(c.state.Phase, kind)
	if !ok {
		return fmt.Errorf("no action category for phase %s", c.state.Phase)
	}
	if c.locks[cat] {
		return errAlreadySubmitted
	}
	return nil
}

// SubmitAction passes payload through the gate and, if accepted, locks the
// action's category immediately (optimistic, without waiting for the ack)
// and sends the phase_action envelope.
func (c *Client) SubmitAction(payload protocol.ActionPayload) error {
	kind := payload.ActionKind()

	c.mu.Lock()
	if err := c.canSubmitLocked(kind); err != nil {
		c.mu.Unlock()
		return err
	}
	phase := c.state.Phase
	cat, _ := protocol.CategoryFor(phase, kind)
	c.locks[cat] = true
	c.mu.Unlock()

	return c.send(protocol.PhaseActionMsg{
		Type:    protocol.TypePhaseAction,
		Phase:   phase,
		Payload: payload,
	})
}

// Skip submits the empty decision for the current phase.
func (c *Client) Skip() error {
	return c.SubmitAction(protocol.NewSkip())
}

// Locks returns a copy of the per-category submission locks.
func (c *Client) Locks() map[protocol.Category]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[protocol.Category]bool, len(c.locks))
	for k, v := range c.locks {
		out[k] = v
	}
	return out
}

// AllowedActions returns the action kinds the current phase permits, in table
// order.
func (c *Client) AllowedActions() []protocol.ActionKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]protocol.ActionKind(nil), protocol.ActionsByPhase[c.state.Phase]...)
}
