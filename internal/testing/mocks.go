package testing

import (
	"context"
	"sync"

	"github.com/aristath/stockwatch/internal/domain"
)

// MockQuoteProvider is an in-memory domain.QuoteProvider for tests.
// Unknown symbols fail with a ProviderError.
type MockQuoteProvider struct {
	mu         sync.RWMutex
	kind       domain.ProviderKind
	quotes     map[string]*domain.Quote
	history    map[string][]domain.HistoricalPoint
	quoteErr   map[string]error
	historyErr map[string]error

	quoteCalls   map[string]int
	historyCalls map[string]int
	callOrder    []string

	// OnFetch runs before every fetch (quote or history), outside the lock
	OnFetch func(symbol string)
}

// NewMockQuoteProvider creates an empty mock for the given routing slot
func NewMockQuoteProvider(kind domain.ProviderKind) *MockQuoteProvider {
	return &MockQuoteProvider{
		kind:         kind,
		quotes:       make(map[string]*domain.Quote),
		history:      make(map[string][]domain.HistoricalPoint),
		quoteErr:     make(map[string]error),
		historyErr:   make(map[string]error),
		quoteCalls:   make(map[string]int),
		historyCalls: make(map[string]int),
	}
}

// SetQuote sets the quote returned for symbol
func (m *MockQuoteProvider) SetQuote(symbol string, q *domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = q
	delete(m.quoteErr, symbol)
}

// SetHistory sets the history returned for symbol
func (m *MockQuoteProvider) SetHistory(symbol string, points []domain.HistoricalPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[symbol] = points
	delete(m.historyErr, symbol)
}

// SetQuoteError makes FetchQuote fail for symbol
func (m *MockQuoteProvider) SetQuoteError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteErr[symbol] = err
}

// SetHistoryError makes FetchHistory fail for symbol
func (m *MockQuoteProvider) SetHistoryError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyErr[symbol] = err
}

// QuoteCalls returns how many times FetchQuote ran for symbol
func (m *MockQuoteProvider) QuoteCalls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quoteCalls[symbol]
}

// HistoryCalls returns how many times FetchHistory ran for symbol
func (m *MockQuoteProvider) HistoryCalls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.historyCalls[symbol]
}

// CallOrder returns the symbols passed to FetchQuote in call order
func (m *MockQuoteProvider) CallOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.callOrder...)
}

// Kind implements domain.QuoteProvider
func (m *MockQuoteProvider) Kind() domain.ProviderKind {
	return m.kind
}

// FetchQuote implements domain.QuoteProvider
func (m *MockQuoteProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if m.OnFetch != nil {
		m.OnFetch(symbol)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewProviderError(m.kind, symbol, "request cancelled", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls[symbol]++
	m.callOrder = append(m.callOrder, symbol)

	if err, ok := m.quoteErr[symbol]; ok {
		return nil, err
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return nil, domain.NewProviderError(m.kind, symbol, "no quote configured", nil)
	}
	copied := *q
	return &copied, nil
}

// FetchHistory implements domain.QuoteProvider
func (m *MockQuoteProvider) FetchHistory(ctx context.Context, symbol string) ([]domain.HistoricalPoint, error) {
	if m.OnFetch != nil {
		m.OnFetch(symbol)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewProviderError(m.kind, symbol, "request cancelled", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls[symbol]++

	if err, ok := m.historyErr[symbol]; ok {
		return nil, err
	}
	points, ok := m.history[symbol]
	if !ok {
		return nil, domain.NewProviderError(m.kind, symbol, "no history configured", nil)
	}
	return append([]domain.HistoricalPoint(nil), points...), nil
}

var _ domain.QuoteProvider = (*MockQuoteProvider)(nil)
