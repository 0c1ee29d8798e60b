package alphavantage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

func isNullValue(s string) bool {
	switch s {
	case "", "None", "null", "-":
		return true
	}
	return false
}

// parseFloat64 parses an API number, treating null markers and garbage as 0
func parseFloat64(s string) float64 {
	s = strings.TrimSpace(s)
	if isNullValue(s) {
		return 0
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFloat64Ptr is parseFloat64 for nullable fields
func parseFloat64Ptr(s string) *float64 {
	s = strings.TrimSpace(s)
	if isNullValue(s) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseInt64 accepts plain integers as well as decimal and exponent notation
func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if isNullValue(s) {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseGlobalQuote parses GLOBAL_QUOTE. An empty quote object yields a
// GlobalQuote with an empty Symbol, which callers treat as unknown symbol.
// Price and previous close are required.
func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	var raw struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Quote == nil {
		return nil, fmt.Errorf("%w: response has no Global Quote object", ErrMalformedResponse)
	}

	q := raw.Quote
	if len(q) == 0 {
		return &GlobalQuote{}, nil
	}

	price := parseFloat64Ptr(q["05. price"])
	previousClose := parseFloat64Ptr(q["08. previous close"])
	if price == nil || previousClose == nil {
		return nil, fmt.Errorf("%w: Global Quote missing 05. price or 08. previous close", ErrMalformedResponse)
	}

	return &GlobalQuote{
		Symbol:           q["01. symbol"],
		Open:             parseFloat64(q["02. open"]),
		High:             parseFloat64(q["03. high"]),
		Low:              parseFloat64(q["04. low"]),
		Price:            *price,
		Volume:           parseInt64(q["06. volume"]),
		LatestTradingDay: parseDate(q["07. latest trading day"]),
		PreviousClose:    *previousClose,
	}, nil
}

// parseDailyTimeSeries parses TIME_SERIES_DAILY, newest first. Every bar
// must carry a close.
func parseDailyTimeSeries(body []byte) ([]DailyPrice, error) {
	var raw struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Series == nil {
		return nil, fmt.Errorf("%w: response has no Time Series (Daily) object", ErrMalformedResponse)
	}

	prices := make([]DailyPrice, 0, len(raw.Series))
	for date, bar := range raw.Series {
		d := parseDate(date)
		if d.IsZero() {
			continue
		}
		closePrice := parseFloat64Ptr(bar["4. close"])
		if closePrice == nil {
			return nil, fmt.Errorf("%w: daily bar %s missing 4. close", ErrMalformedResponse, date)
		}
		prices = append(prices, DailyPrice{
			Date:   d,
			Open:   parseFloat64(bar["1. open"]),
			High:   parseFloat64(bar["2. high"]),
			Low:    parseFloat64(bar["3. low"]),
			Close:  *closePrice,
			Volume: parseInt64(bar["5. volume"]),
		})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.After(prices[j].Date)
	})

	return prices, nil
}

func parseCompanyOverview(body []byte) (*CompanyOverview, error) {
	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode company overview: %w", err)
	}

	return &CompanyOverview{
		Symbol:   raw["Symbol"],
		Name:     raw["Name"],
		Sector:   raw["Sector"],
		Industry: raw["Industry"],
	}, nil
}
