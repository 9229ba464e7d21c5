package protocol

import "encoding/json"

// Inbound message types (server -> client).
const (
	TypeWelcome           = "welcome"
	TypePhaseTick         = "phase_tick"
	TypePhaseStatus       = "phase_status"
	TypePhaseReport       = "phase_report"
	TypeActionAck         = "action_ack"
	TypeSessionControlAck = "session_control_ack"
	TypeGameFinished      = "game_finished"
	TypeError             = "error"
)

// Outbound message types (client -> server).
const (
	TypeJoin           = "join"
	TypePhaseAction    = "phase_action"
	TypeSessionControl = "session_control"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
