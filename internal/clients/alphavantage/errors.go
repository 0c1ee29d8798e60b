package alphavantage

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a required field is missing or unparseable
var ErrMalformedResponse = errors.New("malformed alpha vantage response")

// ErrRateLimitExceeded is returned when the daily request quota is used up
// or the API answers with a throttling note.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the configured key
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alpha vantage rejected the API key as invalid"
}

// ErrSymbolNotFound is returned when the API has no data for a symbol
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alpha vantage has no data for symbol %s", e.Symbol)
}

// ErrAPI is any other error document returned by the API
type ErrAPI struct {
	Message string
}

func (e ErrAPI) Error() string {
	return fmt.Sprintf("alpha vantage API error: %s", e.Message)
}
