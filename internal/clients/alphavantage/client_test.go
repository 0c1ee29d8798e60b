package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyLimit(t *testing.T) {
	t.Run("unlimited by default", func(t *testing.T) {
		client := NewClient("test-key", zerolog.Nop())

		for i := 0; i < 30; i++ {
			require.NoError(t, client.checkRateLimit(), "request %d", i)
		}
		_, limited := client.RemainingRequests()
		assert.False(t, limited)
	})

	t.Run("configured limit", func(t *testing.T) {
		client := NewClient("test-key", zerolog.Nop(), WithDailyLimit(3))

		for i := 0; i < 3; i++ {
			require.NoError(t, client.checkRateLimit())
		}
		remaining, limited := client.RemainingRequests()
		assert.True(t, limited)
		assert.Equal(t, 0, remaining)

		assert.IsType(t, ErrRateLimitExceeded{}, client.checkRateLimit())
	})

	t.Run("new day restores quota", func(t *testing.T) {
		client := NewClient("test-key", zerolog.Nop(), WithDailyLimit(1))
		require.NoError(t, client.checkRateLimit())

		client.resetAt = time.Now().UTC().Add(-time.Minute)

		remaining, _ := client.RemainingRequests()
		assert.Equal(t, 1, remaining)
		assert.NoError(t, client.checkRateLimit())
	})

	t.Run("negative limit ignored", func(t *testing.T) {
		client := NewClient("test-key", zerolog.Nop(), WithDailyLimit(-5))
		_, limited := client.RemainingRequests()
		assert.False(t, limited)
	})
}

func TestUnlimitedClientServesManySymbols(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		symbol := r.URL.Query().Get("symbol")
		_, _ = w.Write([]byte(`{"Global Quote": {"01. symbol": "` + symbol + `", "05. price": "10.00", "08. previous close": "9.00"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient("test-key", zerolog.Nop(), WithBaseURL(server.URL))
	for i := 0; i < 30; i++ {
		symbol := string(rune('A'+i%26)) + string(rune('A'+i/26))
		_, err := client.GetGlobalQuote(context.Background(), symbol)
		require.NoError(t, err, symbol)
	}
	assert.Equal(t, int32(30), atomic.LoadInt32(&calls))
}

func TestCacheExpiry(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	client.setCache("GLOBAL_QUOTE:symbol=ACME", "fresh", time.Hour)
	client.setCache("GLOBAL_QUOTE:symbol=OLD", "stale", -time.Second)

	data, ok := client.getFromCache("GLOBAL_QUOTE:symbol=ACME")
	assert.True(t, ok)
	assert.Equal(t, "fresh", data)

	_, ok = client.getFromCache("GLOBAL_QUOTE:symbol=OLD")
	assert.False(t, ok)
	_, ok = client.getFromCache("missing")
	assert.False(t, ok)
}

func TestBuildCacheKey(t *testing.T) {
	a := buildCacheKey("TIME_SERIES_DAILY", map[string]string{"symbol": "ACME", "outputsize": "compact"})
	b := buildCacheKey("TIME_SERIES_DAILY", map[string]string{"outputsize": "compact", "symbol": "ACME"})
	assert.Equal(t, a, b)
	assert.Equal(t, "TIME_SERIES_DAILY:outputsize=compact:symbol=ACME", a)

	withKey := buildCacheKey("OVERVIEW", map[string]string{"symbol": "ACME", "apikey": "secret"})
	assert.Equal(t, "OVERVIEW:symbol=ACME", withKey)
}

func TestNumberParsing(t *testing.T) {
	floats := map[string]float64{
		"100.25":   100.25,
		" 5.2632%": 5.2632,
		"None":     0,
		"-":        0,
		"abc":      0,
	}
	for in, want := range floats {
		assert.Equal(t, want, parseFloat64(in), in)
	}

	assert.Nil(t, parseFloat64Ptr("None"))
	assert.Nil(t, parseFloat64Ptr("12,5"))
	require.NotNil(t, parseFloat64Ptr("0"))
	assert.Equal(t, 0.0, *parseFloat64Ptr("0"))

	assert.Equal(t, int64(120000), parseInt64("120000"))
	assert.Equal(t, int64(1500), parseInt64("1.5e3"))
	assert.Equal(t, int64(0), parseInt64("null"))

	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), parseDate("2024-01-15"))
	assert.True(t, parseDate("15/01/2024").IsZero())
}

func TestParseGlobalQuote(t *testing.T) {
	q, err := parseGlobalQuote([]byte(acmeQuote))
	require.NoError(t, err)
	assert.Equal(t, "ACME", q.Symbol)
	assert.Equal(t, 100.0, q.Price)
	assert.Equal(t, 95.0, q.PreviousClose)
	assert.Equal(t, 95.5, q.Low)
	assert.Equal(t, "2024-01-15", q.LatestTradingDay.Format("2006-01-02"))

	empty, err := parseGlobalQuote([]byte(`{"Global Quote": {}}`))
	require.NoError(t, err)
	assert.Empty(t, empty.Symbol)

	tests := map[string]string{
		"no quote object":        `{"Meta": {}}`,
		"not json":               `<html>`,
		"missing previous close": `{"Global Quote": {"01. symbol": "ACME", "05. price": "100.00"}}`,
		"garbage price":          `{"Global Quote": {"01. symbol": "ACME", "05. price": "n/a", "08. previous close": "95.00"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseGlobalQuote([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseDailyTimeSeries(t *testing.T) {
	prices, err := parseDailyTimeSeries([]byte(dailySeries(3)))
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, "2024-01-03", prices[0].Date.Format("2006-01-02"))
	assert.Equal(t, 102.0, prices[0].Close)
	assert.Equal(t, int64(1000), prices[2].Volume)

	_, err = parseDailyTimeSeries([]byte(`{"Time Series (Daily)": {"2024-01-02": {"1. open": "1.00"}}}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = parseDailyTimeSeries([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAPIErrorDocuments(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	tests := []struct {
		name string
		body string
		want error
	}{
		{"throttle note", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, ErrRateLimitExceeded{}},
		{"information rate limit", `{"Information": "You have reached the rate limit for your key"}`, ErrRateLimitExceeded{}},
		{"information other", `{"Information": "This is a premium endpoint"}`, ErrAPI{Message: "This is a premium endpoint"}},
		{"bad key", `{"Error Message": "the parameter apikey is invalid or missing"}`, ErrInvalidAPIKey{}},
		{"bad call", `{"Error Message": "Invalid API call"}`, ErrAPI{Message: "Invalid API call"}},
		{"normal payload", acmeQuote, nil},
		{"non-object payload", `[1, 2]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.checkAPIError([]byte(tt.body))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestNextMidnightUTC(t *testing.T) {
	next := nextMidnightUTC()
	now := time.Now().UTC()

	assert.True(t, next.After(now))
	assert.LessOrEqual(t, next.Sub(now), 24*time.Hour)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
}
