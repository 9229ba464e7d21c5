package protocol

// welcome (server -> client): first authoritative push after join.
type WelcomeMsg struct {
	Type        string    `json:"type"`
	SessionCode string    `json:"session_code"`
	Phase       Phase     `json:"phase"`
	Month       int       `json:"month"`
	Analytics   Analytics `json:"analytics"`
	Settings    Settings  `json:"settings"`
}

// phase_tick (server -> client): countdown heartbeat for the active phase.
type PhaseTickMsg struct {
	Type string   `json:"type"`
	Tick TickInfo `json:"tick"`
}

type TickInfo struct {
	Phase            Phase `json:"phase"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// phase_status (server -> client): periodic full status push. RemainingSeconds
// is absent when the session is not actively ticking.
type PhaseStatusMsg struct {
	Type             string    `json:"type"`
	Phase            Phase     `json:"phase"`
	Month            int       `json:"month"`
	RemainingSeconds *int      `json:"remaining_seconds,omitempty"`
	Analytics        Analytics `json:"analytics"`
}

// phase_report (server -> client): end-of-phase summary with a journal of
// recent events.
type PhaseReportMsg struct {
	Type   string      `json:"type"`
	Report PhaseReport `json:"report"`
}

type PhaseReport struct {
	Month     int            `json:"month"`
	Phase     Phase          `json:"phase"`
	Analytics Analytics      `json:"analytics"`
	Journal   []JournalEntry `json:"journal"`
}

type JournalEntry struct {
	Month   int    `json:"month"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// action_ack (server -> client): the last phase_action was accepted.
type ActionAckMsg struct {
	Type string `json:"type"`
}

// session_control_ack (server -> client).
type SessionControlAckMsg struct {
	Type    string `json:"type"`
	Started bool   `json:"started"`
}

// game_finished (server -> client): terminal message with the final table.
type GameFinishedMsg struct {
	Type    string        `json:"type"`
	Results []FinalResult `json:"results"`
}

type FinalResult struct {
	PlayerID   int     `json:"player_id"`
	Nickname   string  `json:"nickname"`
	Capital    float64 `json:"capital"`
	Place      int     `json:"place"`
	IsTop1     bool    `json:"is_top1"`
	IsBankrupt bool    `json:"is_bankrupt"`
}

// error (server -> client): application-level error text.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Analytics is the latest authoritative summary of bank and player state.
// Replaced wholesale on each push, never merged field by field.
type Analytics struct {
	BankRawMaterialVolume    int     `json:"bank_raw_material_volume"`
	BankRawMaterialMinPrice  float64 `json:"bank_raw_material_min_price"`
	BankFinishedGoodVolume   int     `json:"bank_finished_good_volume"`
	BankFinishedGoodMaxPrice float64 `json:"bank_finished_good_max_price"`

	BankLoanNominals   []float64 `json:"bank_loan_nominals"`
	BankLoanTerms      []int     `json:"bank_loan_terms"`
	BankAvailableLoans []int     `json:"bank_available_loans"`

	Players []PlayerSummary `json:"players"`
}

type PlayerSummary struct {
	PlayerID       int     `json:"player_id"`
	Nickname       string  `json:"nickname"`
	Money          float64 `json:"money"`
	RawMaterials   int     `json:"raw_materials"`
	FinishedGoods  int     `json:"finished_goods"`
	FactoriesBasic int     `json:"factories_basic"`
	FactoriesAuto  int     `json:"factories_auto"`
	ActiveLoans    int     `json:"active_loans"`
	Bankrupt       bool    `json:"bankrupt"`
}

// Settings is the authoritative session configuration as pushed by the server.
// Ranged fields are [min, max] pairs; entries may be null until the host has
// confirmed them, so they decode as pointers.
type Settings struct {
	MonthDurationSeconds int `json:"month_duration_seconds"`
	TotalMonths          int `json:"total_months"`

	BankRawMaterialSellVolumeRange []*float64 `json:"bank_raw_material_sell_volume_range"`
	BankRawMaterialPriceRange      []*float64 `json:"bank_raw_material_price_range"`
	BankFinishedGoodBuyVolumeRange []*float64 `json:"bank_finished_good_buy_volume_range"`
	BankFinishedGoodPriceRange     []*float64 `json:"bank_finished_good_price_range"`

	BankLoanNominals []float64 `json:"bank_loan_nominals"`
	BankLoanTerms    []int     `json:"bank_loan_terms"`
}

// SettingsUpdate is the normalized wire shape submitted via
// session_control/update_settings: every range is exactly [min, max] with
// missing entries defaulted to 0, every list purely numeric.
type SettingsUpdate struct {
	MonthDurationSeconds int `json:"month_duration_seconds"`
	TotalMonths          int `json:"total_months"`

	BankRawMaterialSellVolumeRange [2]float64 `json:"bank_raw_material_sell_volume_range"`
	BankRawMaterialPriceRange      [2]float64 `json:"bank_raw_material_price_range"`
	BankFinishedGoodBuyVolumeRange [2]float64 `json:"bank_finished_good_buy_volume_range"`
	BankFinishedGoodPriceRange     [2]float64 `json:"bank_finished_good_price_range"`

	BankLoanNominals []float64 `json:"bank_loan_nominals"`
	BankLoanTerms    []int     `json:"bank_loan_terms"`
}
