package domain

import "context"

// QuoteProvider is the capability set every market-data adapter implements.
// Implementations are read-only against the network and never return a
// partially populated Quote: any failure is a *ProviderError.
type QuoteProvider interface {
	// Kind reports which routing slot the provider fills
	Kind() ProviderKind

	// FetchQuote returns the current snapshot for symbol
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)

	// FetchHistory returns up to HistoryWindow points, oldest first
	FetchHistory(ctx context.Context, symbol string) ([]HistoricalPoint, error)
}
