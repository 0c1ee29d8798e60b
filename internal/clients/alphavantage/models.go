package alphavantage

import "time"

// GlobalQuote is the GLOBAL_QUOTE payload
type GlobalQuote struct {
	Symbol           string
	Open             float64
	High             float64
	Low              float64
	Price            float64
	Volume           int64
	LatestTradingDay time.Time
	PreviousClose    float64
}

// DailyPrice is one TIME_SERIES_DAILY bar
type DailyPrice struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// CompanyOverview is the part of OVERVIEW used to name new symbols
type CompanyOverview struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
}

// CacheTTL configures how long each response category stays cached
type CacheTTL struct {
	Fundamentals time.Duration
	PriceData    time.Duration
}

// DefaultCacheTTL returns the default cache lifetimes
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		Fundamentals: 24 * time.Hour,
		PriceData:    15 * time.Minute,
	}
}
