// Package stocks tracks stock records, keeps them in sync with the quote
// providers and serves them to the HTTP layer.
package stocks

import (
	"strings"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
)

// StockRecord is a tracked symbol with its latest quote and trailing history.
// Change and ChangePercent are derived from Price and PreviousPrice on every
// write and cannot be set directly.
type StockRecord struct {
	Symbol         string                   `json:"symbol"`
	Name           string                   `json:"name"`
	Price          float64                  `json:"price"`
	PreviousPrice  float64                  `json:"previous_price"`
	Change         float64                  `json:"change"`
	ChangePercent  float64                  `json:"change_percent"`
	Sector         string                   `json:"sector"`
	LastUpdated    time.Time                `json:"last_updated"`
	CreatedAt      time.Time                `json:"created_at"`
	HistoricalData []domain.HistoricalPoint `json:"historical_data"`
}

// DeriveFields returns a copy of rec with change, changePercent, sector
// default and lastUpdated computed. rec itself is not modified.
func DeriveFields(rec *StockRecord, now time.Time) *StockRecord {
	out := *rec

	out.Symbol = domain.NormalizeSymbol(rec.Symbol)
	out.Change = formulas.Change(rec.Price, rec.PreviousPrice)
	out.ChangePercent = formulas.PercentChange(out.Change, rec.PreviousPrice)
	if strings.TrimSpace(out.Sector) == "" {
		out.Sector = domain.DefaultSector
	}
	out.LastUpdated = now.UTC()

	if rec.HistoricalData != nil {
		out.HistoricalData = make([]domain.HistoricalPoint, len(rec.HistoricalData))
		copy(out.HistoricalData, rec.HistoricalData)
	} else {
		out.HistoricalData = []domain.HistoricalPoint{}
	}

	return &out
}

// StockUpdate is an admin edit. Nil fields are left unchanged.
type StockUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Sector        *string  `json:"sector,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PreviousPrice *float64 `json:"previous_price,omitempty"`
	UseAPIRefresh bool     `json:"use_api_refresh"`
}

// Validate rejects negative prices and blank names
func (u StockUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return domain.NewValidationError("name must not be empty")
	}
	if u.Price != nil && *u.Price < 0 {
		return domain.NewValidationError("price must be >= 0")
	}
	if u.PreviousPrice != nil && *u.PreviousPrice < 0 {
		return domain.NewValidationError("previous_price must be >= 0")
	}
	return nil
}

// Refresh triggers recorded with each batch run
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCLI       = "cli"
)

// RefreshFailure is one symbol a batch could not refresh
type RefreshFailure struct {
	Symbol string `json:"symbol" msgpack:"symbol"`
	Error  string `json:"error" msgpack:"error"`
}

// RefreshReport is the outcome of a batch refresh. Every input symbol appears
// exactly once across Succeeded and Failed.
type RefreshReport struct {
	RunID      string           `json:"run_id" msgpack:"run_id"`
	Trigger    string           `json:"trigger" msgpack:"trigger"`
	StartedAt  time.Time        `json:"started_at" msgpack:"started_at"`
	FinishedAt time.Time        `json:"finished_at" msgpack:"finished_at"`
	Succeeded  []string         `json:"succeeded" msgpack:"succeeded"`
	Failed     []RefreshFailure `json:"failed" msgpack:"failed"`
}

// Total returns the number of symbols the run covered
func (r *RefreshReport) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Duration returns the wall time of the run
func (r *RefreshReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SeedResult summarizes a seed run
type SeedResult struct {
	Created  []string         `json:"created"`
	Existing []string         `json:"existing"`
	Failed   []RefreshFailure `json:"failed"`
}
