package nse

import (
	"context"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// Chart data carries closes only; open/high/low are synthesized around the
// close and flagged as estimated.
const (
	estimatedOpenFactor = 0.99
	estimatedHighFactor = 1.01
	estimatedLowFactor  = 0.98
)

// QuoteAdapter adapts the NSE client to domain.QuoteProvider.
// It fills the regional routing slot.
type QuoteAdapter struct {
	client *Client
	log    zerolog.Logger
}

// NewQuoteAdapter creates the regional quote provider
func NewQuoteAdapter(client *Client, log zerolog.Logger) *QuoteAdapter {
	return &QuoteAdapter{
		client: client,
		log:    log.With().Str("provider", string(domain.ProviderRegional)).Logger(),
	}
}

// Kind implements domain.QuoteProvider
func (a *QuoteAdapter) Kind() domain.ProviderKind {
	return domain.ProviderRegional
}

// FetchQuote implements domain.QuoteProvider
func (a *QuoteAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	nseQuote, err := a.client.GetQuote(ctx, StripSuffix(symbol))
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderRegional, symbol, "quote request failed", err)
	}

	change := formulas.Change(nseQuote.LastPrice, nseQuote.PreviousClose)
	return &domain.Quote{
		Timestamp:     nseQuote.FetchedAt,
		Symbol:        symbol,
		Name:          nseQuote.CompanyName,
		Sector:        nseQuote.Industry,
		Price:         nseQuote.LastPrice,
		PreviousPrice: nseQuote.PreviousClose,
		Change:        change,
		ChangePercent: formulas.PercentChange(change, nseQuote.PreviousClose),
		Open:          nseQuote.Open,
		High:          nseQuote.High,
		Low:           nseQuote.Low,
		Volume:        nseQuote.QuantityTraded,
	}, nil
}

// FetchHistory implements domain.QuoteProvider
func (a *QuoteAdapter) FetchHistory(ctx context.Context, symbol string) ([]domain.HistoricalPoint, error) {
	chart, err := a.client.GetChart(ctx, StripSuffix(symbol))
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderRegional, symbol, "chart request failed", err)
	}
	if len(chart) == 0 {
		return nil, domain.NewProviderError(domain.ProviderRegional, symbol, "chart has no data points", nil)
	}

	return transformChartToDomain(chart), nil
}

// transformChartToDomain keeps the last HistoryWindow points in the order
// the API returned them, which is chronological.
func transformChartToDomain(chart []ChartPoint) []domain.HistoricalPoint {
	if len(chart) > domain.HistoryWindow {
		chart = chart[len(chart)-domain.HistoryWindow:]
	}

	points := make([]domain.HistoricalPoint, 0, len(chart))
	for _, c := range chart {
		points = append(points, domain.HistoricalPoint{
			Date:      c.Time,
			Price:     c.Price,
			Open:      formulas.Round2(c.Price * estimatedOpenFactor),
			High:      formulas.Round2(c.Price * estimatedHighFactor),
			Low:       formulas.Round2(c.Price * estimatedLowFactor),
			Estimated: true,
		})
	}

	return domain.ChainHistory(points)
}

var _ domain.QuoteProvider = (*QuoteAdapter)(nil)
