// Package domain provides core domain models and types shared by the provider
// clients and the stocks module.
package domain

import (
	"strings"
	"time"
)

// ProviderKind identifies which upstream market-data source serves a symbol
type ProviderKind string

const (
	// ProviderGlobal is the global quote API (Alpha Vantage)
	ProviderGlobal ProviderKind = "global"
	// ProviderRegional is the regional exchange API (NSE India)
	ProviderRegional ProviderKind = "regional"
)

// Regional symbol suffixes. Anything else routes to the global provider.
const (
	RegionalSuffix      = ".NSE"
	RegionalShortSuffix = ".NS"
)

// DefaultSector is stored when neither the caller nor the provider supply one
const DefaultSector = "Unknown"

// HistoryWindow is the number of trailing points kept per symbol
const HistoryWindow = 10

// NormalizeSymbol trims and uppercases a symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Quote is a normalized current price snapshot as returned by a provider.
// Name and Sector may be empty; the caller supplies fallbacks.
type Quote struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	Price         float64   `json:"price"`
	PreviousPrice float64   `json:"previous_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	Volume        int64     `json:"volume,omitempty"`
}

// HistoricalPoint is one day in a symbol's trailing series.
// Change and ChangePercent are relative to the chronologically preceding point;
// the earliest point in a window carries zeros.
type HistoricalPoint struct {
	Date          time.Time `json:"date" msgpack:"date"`
	Price         float64   `json:"price" msgpack:"price"`
	Open          float64   `json:"open" msgpack:"open"`
	High          float64   `json:"high" msgpack:"high"`
	Low           float64   `json:"low" msgpack:"low"`
	Volume        int64     `json:"volume" msgpack:"volume"`
	Change        float64   `json:"change" msgpack:"change"`
	ChangePercent float64   `json:"change_percent" msgpack:"change_percent"`
	// Estimated marks open/high/low as synthetic offsets around the close
	// rather than measured values.
	Estimated bool `json:"estimated,omitempty" msgpack:"estimated,omitempty"`
}

// DateKey returns the point's calendar date in UTC as YYYY-MM-DD
func (p HistoricalPoint) DateKey() string {
	return p.Date.UTC().Format("2006-01-02")
}
