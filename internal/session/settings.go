package session

import (
	"strconv"
	"strings"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

// Draft is the user-editable working copy of session settings. It is
// initialized from the first authoritative push and never overwritten by
// later pushes; it only reaches the wire through SubmitSettings, as one
// normalized batch.
type Draft struct {
	MonthDurationSeconds int
	TotalMonths          int

	RawMaterialSellVolumeRange RangeDraft
	RawMaterialPriceRange      RangeDraft
	FinishedGoodBuyVolumeRange RangeDraft
	FinishedGoodPriceRange     RangeDraft

	// Comma-separated text fields; non-numeric tokens are discarded on submit.
	LoanNominals string
	LoanTerms    string
}

// RangeDraft is an editable [min, max] pair. Entries may be unset.
type RangeDraft [2]*float64

func (r *RangeDraft) Set(min, max float64) {
	r[0] = &min
	r[1] = &max
}

func newDraft(s protocol.Settings) *Draft {
	return &Draft{
		MonthDurationSeconds:       s.MonthDurationSeconds,
		TotalMonths:                s.TotalMonths,
		RawMaterialSellVolumeRange: rangeDraftFrom(s.BankRawMaterialSellVolumeRange),
		RawMaterialPriceRange:      rangeDraftFrom(s.BankRawMaterialPriceRange),
		FinishedGoodBuyVolumeRange: rangeDraftFrom(s.BankFinishedGoodBuyVolumeRange),
		FinishedGoodPriceRange:     rangeDraftFrom(s.BankFinishedGoodPriceRange),
		LoanNominals:               joinFloats(s.BankLoanNominals),
		LoanTerms:                  joinInts(s.BankLoanTerms),
	}
}

// normalize produces the wire shape: every range a concrete [min, max] with
// missing or invalid entries defaulted to 0, every list purely numeric.
func (d *Draft) normalize() protocol.SettingsUpdate {
	terms := make([]int, 0)
	for _, v := range parseNumberList(d.LoanTerms) {
		terms = append(terms, int(v))
	}
	return protocol.SettingsUpdate{
		MonthDurationSeconds:           d.MonthDurationSeconds,
		TotalMonths:                    d.TotalMonths,
		BankRawMaterialSellVolumeRange: normalizeRange(d.RawMaterialSellVolumeRange),
		BankRawMaterialPriceRange:      normalizeRange(d.RawMaterialPriceRange),
		BankFinishedGoodBuyVolumeRange: normalizeRange(d.FinishedGoodBuyVolumeRange),
		BankFinishedGoodPriceRange:     normalizeRange(d.FinishedGoodPriceRange),
		BankLoanNominals:               parseNumberList(d.LoanNominals),
		BankLoanTerms:                  terms,
	}
}

func rangeDraftFrom(pair []*float64) RangeDraft {
	var r RangeDraft
	for i := 0; i < len(pair) && i < 2; i++ {
		if pair[i] != nil {
			v := *pair[i]
			r[i] = &v
		}
	}
	return r
}

func normalizeRange(r RangeDraft) [2]float64 {
	var out [2]float64
	for i := 0; i < 2; i++ {
		if r[i] != nil {
			out[i] = *r[i]
		}
	}
	return out
}

// parseNumberList splits a comma-separated field into numbers, discarding
// unparsable tokens.
func parseNumberList(s string) []float64 {
	out := make([]float64, 0)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func joinFloats(vals []float64) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func joinInts(vals []int) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

// EditSettings runs fn against the settings draft. It is a no-op until the
// first authoritative settings push has seeded the draft.
func (c *Client) EditSettings(fn func(*Draft)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return false
	}
	fn(c.draft)
	c.editingSettings = true
	return true
}

// SubmitSettings normalizes the draft and sends it as one
// session_control/update_settings batch. Settings changes are all-or-nothing
// per submission; the edit-mode flag is discarded either way.
func (c *Client) SubmitSettings() error {
	c.mu.Lock()
	if c.draft == nil {
		c.mu.Unlock()
		return errNoSettings
	}
	update := c.draft.normalize()
	c.editingSettings = false
	c.mu.Unlock()

	return c.send(protocol.NewUpdateSettings(update))
}
