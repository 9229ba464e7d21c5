package protocol

// join (client -> server): sent immediately on connection open. A null
// session_code asks the server to create a fresh session.
type JoinMsg struct {
	Type        string  `json:"type"`
	SessionCode *string `json:"session_code"`
}

func NewJoin(sessionCode string) JoinMsg {
	m := JoinMsg{Type: TypeJoin}
	if sessionCode != "" {
		m.SessionCode = &sessionCode
	}
	return m
}

// phase_action (client -> server).
type PhaseActionMsg struct {
	Type    string        `json:"type"`
	Phase   Phase         `json:"phase"`
	Payload ActionPayload `json:"payload"`
}

// ActionPayload is the tagged variant carried by phase_action.
type ActionPayload interface {
	ActionKind() ActionKind
}

type BuyBid struct {
	Kind     ActionKind `json:"kind"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
}

func NewBuyBid(quantity int, price float64) BuyBid {
	return BuyBid{Kind: KindSubmitBuyBid, Quantity: quantity, Price: price}
}

func (b BuyBid) ActionKind() ActionKind { return b.Kind }

type SellBid struct {
	Kind     ActionKind `json:"kind"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
}

func NewSellBid(quantity int, price float64) SellBid {
	return SellBid{Kind: KindSubmitSellBid, Quantity: quantity, Price: price}
}

func (b SellBid) ActionKind() ActionKind { return b.Kind }

type ProductionPlan struct {
	Kind  ActionKind `json:"kind"`
	Basic int        `json:"basic"`
	Auto  int        `json:"auto"`
}

func NewProductionPlan(basic, auto int) ProductionPlan {
	return ProductionPlan{Kind: KindProductionPlan, Basic: basic, Auto: auto}
}

func (p ProductionPlan) ActionKind() ActionKind { return p.Kind }

// Loan decisions.
const (
	LoanDecisionCall = "call"
	LoanDecisionSkip = "skip"
)

type LoanDecision struct {
	Kind     ActionKind `json:"kind"`
	Slot     int        `json:"slot"`
	Decision string     `json:"decision"`
}

func NewLoanDecision(slot int, decision string) LoanDecision {
	return LoanDecision{Kind: KindLoanDecision, Slot: slot, Decision: decision}
}

func (l LoanDecision) ActionKind() ActionKind { return l.Kind }

// Construction projects.
const (
	ProjectIdle       = "idle"
	ProjectBuildBasic = "build_basic"
	ProjectBuildAuto  = "build_auto"
	ProjectUpgrade    = "upgrade"
)

type ConstructionRequest struct {
	Kind    ActionKind `json:"kind"`
	Project string     `json:"project"`
}

func NewConstructionRequest(project string) ConstructionRequest {
	return ConstructionRequest{Kind: KindConstructionRequest, Project: project}
}

func (c ConstructionRequest) ActionKind() ActionKind { return c.Kind }

// Skip counts as a submission for its phase but carries no decision payload.
type Skip struct {
	Kind ActionKind `json:"kind"`
}

func NewSkip() Skip { return Skip{Kind: KindSkip} }

func (s Skip) ActionKind() ActionKind { return s.Kind }

// session_control (client -> server).
const (
	CommandStart          = "start"
	CommandUpdateSettings = "update_settings"
)

type SessionControlMsg struct {
	Type     string          `json:"type"`
	Command  string          `json:"command"`
	Settings *SettingsUpdate `json:"settings,omitempty"`
}

func NewStart() SessionControlMsg {
	return SessionControlMsg{Type: TypeSessionControl, Command: CommandStart}
}

func NewUpdateSettings(s SettingsUpdate) SessionControlMsg {
	return SessionControlMsg{Type: TypeSessionControl, Command: CommandUpdateSettings, Settings: &s}
}
