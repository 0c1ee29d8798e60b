package alphavantage

import (
	"context"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
	"github.com/rs/zerolog"
)

// QuoteAdapter adapts the Alpha Vantage client to domain.QuoteProvider.
// It fills the global routing slot.
type QuoteAdapter struct {
	client         ClientInterface
	enrichOverview bool
	log            zerolog.Logger
}

// NewQuoteAdapter creates the global quote provider.
// enrichOverview adds an OVERVIEW call per quote to fill name and sector.
func NewQuoteAdapter(client ClientInterface, enrichOverview bool, log zerolog.Logger) *QuoteAdapter {
	return &QuoteAdapter{
		client:         client,
		enrichOverview: enrichOverview,
		log:            log.With().Str("provider", string(domain.ProviderGlobal)).Logger(),
	}
}

// Kind implements domain.QuoteProvider
func (a *QuoteAdapter) Kind() domain.ProviderKind {
	return domain.ProviderGlobal
}

// FetchQuote implements domain.QuoteProvider
func (a *QuoteAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	avQuote, err := a.client.GetGlobalQuote(ctx, symbol)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderGlobal, symbol, "quote request failed", err)
	}

	quote, err := transformQuoteToDomain(symbol, avQuote)
	if err != nil {
		return nil, err
	}

	if a.enrichOverview {
		overview, err := a.client.GetCompanyOverview(ctx, symbol)
		if err != nil {
			a.log.Warn().Err(err).Str("symbol", symbol).Msg("Overview enrichment failed")
		} else {
			quote.Name = overview.Name
			quote.Sector = overview.Sector
		}
	}

	return quote, nil
}

// FetchHistory implements domain.QuoteProvider
func (a *QuoteAdapter) FetchHistory(ctx context.Context, symbol string) ([]domain.HistoricalPoint, error) {
	prices, err := a.client.GetDailyPrices(ctx, symbol, false)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderGlobal, symbol, "daily series request failed", err)
	}

	return transformDailyPricesToDomain(prices), nil
}

func transformQuoteToDomain(symbol string, q *GlobalQuote) (*domain.Quote, error) {
	if q == nil || q.Price <= 0 {
		return nil, domain.NewProviderError(domain.ProviderGlobal, symbol, "quote has no price", nil)
	}

	ts := q.LatestTradingDay
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	change := formulas.Change(q.Price, q.PreviousClose)
	return &domain.Quote{
		Timestamp:     ts,
		Symbol:        symbol,
		Price:         q.Price,
		PreviousPrice: q.PreviousClose,
		Change:        change,
		ChangePercent: formulas.PercentChange(change, q.PreviousClose),
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		Volume:        q.Volume,
	}, nil
}

// transformDailyPricesToDomain keeps the trailing window, oldest first
func transformDailyPricesToDomain(prices []DailyPrice) []domain.HistoricalPoint {
	points := make([]domain.HistoricalPoint, 0, len(prices))
	for _, p := range prices {
		points = append(points, domain.HistoricalPoint{
			Date:   p.Date,
			Price:  p.Close,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Volume: p.Volume,
		})
	}
	return domain.ChainHistory(points)
}

var _ domain.QuoteProvider = (*QuoteAdapter)(nil)
