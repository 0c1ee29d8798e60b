// Package alphavantage provides a client for the Alpha Vantage market data API
// and an adapter exposing it as the global quote provider.
package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	defaultTimeout = 15 * time.Second
)

// ClientInterface is the subset of the client the quote adapter depends on
type ClientInterface interface {
	GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error)
	GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error)
	GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error)
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client for the Alpha Vantage API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	// Daily quota tracking; a zero limit disables it
	limitMu    sync.Mutex
	dailyLimit int
	usedToday  int
	resetAt    time.Time

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL CacheTTL
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithDailyLimit caps the requests made per UTC day. 0 means unlimited.
func WithDailyLimit(limit int) Option {
	return func(c *Client) {
		if limit >= 0 {
			c.dailyLimit = limit
		}
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: defaultTimeout},
		log:      log.With().Str("client", "alphavantage").Logger(),
		resetAt:  nextMidnightUTC(),
		cache:    make(map[string]cacheEntry),
		cacheTTL: DefaultCacheTTL(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetGlobalQuote fetches the latest quote for symbol
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	params := map[string]string{"symbol": symbol}

	if cached, ok := c.getFromCache(buildCacheKey("GLOBAL_QUOTE", params)); ok {
		if q, ok := cached.(*GlobalQuote); ok {
			return q, nil
		}
	}

	body, err := c.doRequest(ctx, "GLOBAL_QUOTE", params)
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(buildCacheKey("GLOBAL_QUOTE", params), quote, c.cacheTTL.PriceData)
	return quote, nil
}

// GetDailyPrices fetches daily bars for symbol, newest first.
// full requests the complete history instead of the last 100 days.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error) {
	outputSize := "compact"
	if full {
		outputSize = "full"
	}
	params := map[string]string{"symbol": symbol, "outputsize": outputSize}
	cacheKey := buildCacheKey("TIME_SERIES_DAILY", params)

	if cached, ok := c.getFromCache(cacheKey); ok {
		if prices, ok := cached.([]DailyPrice); ok {
			return prices, nil
		}
	}

	body, err := c.doRequest(ctx, "TIME_SERIES_DAILY", params)
	if err != nil {
		return nil, err
	}

	prices, err := parseDailyTimeSeries(body)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(cacheKey, prices, c.cacheTTL.PriceData)
	return prices, nil
}

// GetCompanyOverview fetches company fundamentals for symbol
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	params := map[string]string{"symbol": symbol}
	cacheKey := buildCacheKey("OVERVIEW", params)

	if cached, ok := c.getFromCache(cacheKey); ok {
		if ov, ok := cached.(*CompanyOverview); ok {
			return ov, nil
		}
	}

	body, err := c.doRequest(ctx, "OVERVIEW", params)
	if err != nil {
		return nil, err
	}

	overview, err := parseCompanyOverview(body)
	if err != nil {
		return nil, err
	}
	if overview.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(cacheKey, overview, c.cacheTTL.Fundamentals)
	return overview, nil
}

// doRequest performs one API call, counting it against the daily quota
func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("function", function)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().
		Str("function", function).
		Str("symbol", params["symbol"]).
		Msg("Calling Alpha Vantage")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects the error documents Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	if bytes.Contains(body, []byte("Thank you for using Alpha Vantage")) {
		return ErrRateLimitExceeded{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		// Not an object; the caller's parser reports the malformed payload
		return nil
	}

	if _, ok := doc["Note"]; ok {
		return ErrRateLimitExceeded{}
	}

	if raw, ok := doc["Information"]; ok {
		msg := rawString(raw)
		if strings.Contains(strings.ToLower(msg), "rate limit") {
			return ErrRateLimitExceeded{}
		}
		return ErrAPI{Message: msg}
	}

	if raw, ok := doc["Error Message"]; ok {
		msg := rawString(raw)
		if strings.Contains(strings.ToLower(msg), "apikey") {
			return ErrInvalidAPIKey{}
		}
		return ErrAPI{Message: msg}
	}

	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

// checkRateLimit consumes one request from the daily quota
func (c *Client) checkRateLimit() error {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	if c.dailyLimit == 0 {
		return nil
	}

	if time.Now().UTC().After(c.resetAt) {
		c.usedToday = 0
		c.resetAt = nextMidnightUTC()
	}

	if c.usedToday >= c.dailyLimit {
		c.log.Warn().
			Int("limit", c.dailyLimit).
			Time("reset_at", c.resetAt).
			Msg("Daily request quota exhausted")
		return ErrRateLimitExceeded{}
	}

	c.usedToday++
	return nil
}

// RemainingRequests returns the requests left in today's quota. limited is
// false when no daily limit is configured.
func (c *Client) RemainingRequests() (remaining int, limited bool) {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	if c.dailyLimit == 0 {
		return 0, false
	}
	if time.Now().UTC().After(c.resetAt) {
		return c.dailyLimit, true
	}
	return c.dailyLimit - c.usedToday, true
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// buildCacheKey derives a stable key from the function and its parameters.
// The API key never becomes part of a cache key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}
