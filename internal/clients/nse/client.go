// Package nse provides a client for the NSE India public equity API and an
// adapter exposing it as the regional quote provider.
package nse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL    = "https://www.nseindia.com/api"
	defaultSessionURL = "https://www.nseindia.com"
	defaultTimeout    = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	referer   = "https://www.nseindia.com/get-quotes/equity?symbol=TCS"
)

// ErrMalformedResponse is returned when an expected field is missing
var ErrMalformedResponse = errors.New("malformed NSE response")

// Client for the NSE India API
type Client struct {
	baseURL    string
	sessionURL string
	client     *http.Client
	log        zerolog.Logger

	primeMu sync.Mutex
	primed  bool
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithSessionURL sets the page visited once to obtain session cookies.
// An empty URL disables priming.
func WithSessionURL(sessionURL string) Option {
	return func(c *Client) {
		c.sessionURL = sessionURL
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient creates a new NSE client with its own cookie jar
func NewClient(log zerolog.Logger, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL:    defaultBaseURL,
		sessionURL: defaultSessionURL,
		client:     &http.Client{Timeout: defaultTimeout, Jar: jar},
		log:        log.With().Str("client", "nse").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StripSuffix removes the .NSE or .NS suffix from a system symbol
func StripSuffix(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, suffix := range []string{".NSE", ".NS"} {
		if strings.HasSuffix(upper, suffix) {
			return symbol[:len(symbol)-len(suffix)]
		}
	}
	return symbol
}

// GetQuote fetches the equity quote for an exchange symbol such as "TCS"
func (c *Client) GetQuote(ctx context.Context, symbol string) (*EquityQuote, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var raw quoteEquityResponse
	if err := c.getJSON(ctx, "/quote-equity", query, &raw); err != nil {
		return nil, err
	}

	p := raw.PriceInfo
	if p == nil || p.LastPrice == nil || p.PreviousClose == nil {
		return nil, fmt.Errorf("%w: priceInfo missing lastPrice or previousClose", ErrMalformedResponse)
	}

	quote := &EquityQuote{
		Symbol:        symbol,
		LastPrice:     *p.LastPrice,
		PreviousClose: *p.PreviousClose,
		FetchedAt:     time.Now().UTC(),
	}
	if raw.Info != nil {
		quote.CompanyName = raw.Info.CompanyName
	}
	if raw.Metadata != nil {
		quote.Industry = raw.Metadata.Industry
	}
	if p.Change != nil {
		quote.Change = *p.Change
	}
	if p.PChange != nil {
		quote.PChange = *p.PChange
	}
	if p.Open != nil {
		quote.Open = *p.Open
	}
	if p.IntraDayHighLow != nil {
		quote.High = p.IntraDayHighLow.Max
		quote.Low = p.IntraDayHighLow.Min
	}
	if raw.SecurityWiseDP != nil && raw.SecurityWiseDP.QuantityTraded != nil {
		quote.QuantityTraded = int64(*raw.SecurityWiseDP.QuantityTraded)
	}

	return quote, nil
}

// GetChart fetches the intraday/daily chart series for an exchange symbol
func (c *Client) GetChart(ctx context.Context, symbol string) ([]ChartPoint, error) {
	query := url.Values{}
	query.Set("index", symbol)
	query.Set("indices", "false")

	var raw chartResponse
	if err := c.getJSON(ctx, "/chart-databyindex", query, &raw); err != nil {
		return nil, err
	}

	if raw.GraphData == nil {
		return nil, fmt.Errorf("%w: grapthData missing", ErrMalformedResponse)
	}

	points := make([]ChartPoint, 0, len(raw.GraphData))
	for _, pair := range raw.GraphData {
		points = append(points, ChartPoint{
			Time:  time.UnixMilli(int64(pair[0])).UTC(),
			Price: pair[1],
		})
	}

	return points, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	c.primeSession(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// primeSession visits the session page once so the jar holds the cookies the
// API expects. Failures are logged and retried on the next call.
func (c *Client) primeSession(ctx context.Context) {
	if c.sessionURL == "" {
		return
	}

	c.primeMu.Lock()
	defer c.primeMu.Unlock()
	if c.primed {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to build session request")
		return
	}
	setBrowserHeaders(req)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to prime NSE session")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.primed = true
	c.log.Debug().Int("status", resp.StatusCode).Msg("NSE session primed")
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", referer)
}
