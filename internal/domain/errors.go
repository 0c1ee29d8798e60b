package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the stable, client-visible category of an error
type ErrorKind string

const (
	KindDuplicateSymbol ErrorKind = "duplicate_symbol"
	KindNotFound        ErrorKind = "not_found"
	KindProvider        ErrorKind = "provider_error"
	KindValidation      ErrorKind = "validation_error"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindUnavailable     ErrorKind = "unavailable"
	KindInternal        ErrorKind = "internal"
)

// Error is a categorized error with a human-readable message
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDuplicateSymbol reports a create on an already tracked symbol
func NewDuplicateSymbol(symbol string) *Error {
	return &Error{Kind: KindDuplicateSymbol, Message: fmt.Sprintf("stock %s already exists", symbol)}
}

// NewNotFound reports an operation on an untracked symbol
func NewNotFound(symbol string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("stock %s not found", symbol)}
}

// NewValidationError reports missing or malformed input
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ProviderError is an upstream fetch failure: network, timeout, non-2xx,
// malformed payload or an error document returned by the provider.
type ProviderError struct {
	Provider ProviderKind
	Symbol   string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider failed for %s: %s", e.Provider, e.Symbol, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError for symbol
func NewProviderError(provider ProviderKind, symbol, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Symbol: symbol, Message: message, Err: err}
}

// KindOf returns the ErrorKind carried anywhere in err's chain, or
// KindInternal for uncategorized errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return KindProvider
	}

	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}

	return KindInternal
}

// IsKind reports whether err carries kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its response status code
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateSymbol:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a client-safe description of err. Wrapped causes
// and uncategorized errors are not exposed.
func PublicMessage(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return fmt.Sprintf("%s provider failed for %s: %s", perr.Provider, perr.Symbol, perr.Message)
	}

	var derr *Error
	if errors.As(err, &derr) {
		return derr.Message
	}

	return "internal server error"
}
