package protocol

// Phase is the simulation's current decision stage.
type Phase string

const (
	PhaseExpenses     Phase = "expenses"
	PhaseMarket       Phase = "market"
	PhaseBuy          Phase = "buy"
	PhaseProduction   Phase = "production"
	PhaseSell         Phase = "sell"
	PhaseLoans        Phase = "loans"
	PhaseConstruction Phase = "construction"
	PhaseEndMonth     Phase = "end_month"
)

// ActionKind discriminates phase_action payloads.
type ActionKind string

const (
	KindSubmitBuyBid        ActionKind = "submit_buy_bid"
	KindSubmitSellBid       ActionKind = "submit_sell_bid"
	KindProductionPlan      ActionKind = "production_plan"
	KindLoanDecision        ActionKind = "loan_decision"
	KindConstructionRequest ActionKind = "construction_request"
	KindSkip                ActionKind = "skip"
)

// Category is one of the five decision kinds gated independently per phase.
type Category string

const (
	CategoryBuy          Category = "buy"
	CategorySell         Category = "sell"
	CategoryProduction   Category = "production"
	CategoryLoan         Category = "loan"
	CategoryConstruction Category = "construction"
)

// ActionsByPhase is static configuration: which action kinds the client may
// initiate in each phase. Administrative phases (expenses, market, end_month)
// permit none.
var ActionsByPhase = map[Phase][]ActionKind{
	PhaseBuy:          {KindSubmitBuyBid, KindSkip},
	PhaseProduction:   {KindProductionPlan, KindSkip},
	PhaseSell:         {KindSubmitSellBid, KindSkip},
	PhaseLoans:        {KindLoanDecision, KindSkip},
	PhaseConstruction: {KindConstructionRequest, KindSkip},
}

// categoryByPhase maps each decision phase to the lock bucket its submissions
// consume. skip shares the bucket of the phase it was sent in.
var categoryByPhase = map[Phase]Category{
	PhaseBuy:          CategoryBuy,
	PhaseSell:         CategorySell,
	PhaseProduction:   CategoryProduction,
	PhaseLoans:        CategoryLoan,
	PhaseConstruction: CategoryConstruction,
}

var categoryByKind = map[ActionKind]Category{
	KindSubmitBuyBid:        CategoryBuy,
	KindSubmitSellBid:       CategorySell,
	KindProductionPlan:      CategoryProduction,
	KindLoanDecision:        CategoryLoan,
	KindConstructionRequest: CategoryConstruction,
}

// PhaseLabels maps phases to display labels; kept as pure data for the UI layer.
var PhaseLabels = map[Phase]string{
	PhaseExpenses:     "Expenses",
	PhaseMarket:       "Market",
	PhaseBuy:          "Buy",
	PhaseProduction:   "Production",
	PhaseSell:         "Sell",
	PhaseLoans:        "Loans",
	PhaseConstruction: "Construction",
	PhaseEndMonth:     "End of month",
}

// AllowedIn reports whether kind may be initiated during phase.
func AllowedIn(phase Phase, kind ActionKind) bool {
	for _, k := range ActionsByPhase[phase] {
		if k == kind {
			return true
		}
	}
	return false
}

// CategoryFor resolves the lock bucket for a submission of kind during phase.
// For skip the bucket comes from the phase; for concrete kinds from the kind.
func CategoryFor(phase Phase, kind ActionKind) (Category, bool) {
	if kind == KindSkip {
		c, ok := categoryByPhase[phase]
		return c, ok
	}
	c, ok := categoryByKind[kind]
	return c, ok
}

// IsDecisionPhase reports whether the client may speak at all during phase.
func IsDecisionPhase(phase Phase) bool {
	_, ok := categoryByPhase[phase]
	return ok
}
