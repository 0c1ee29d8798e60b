package testing

import (
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
)

// NewQuoteFixture returns a complete quote as a provider would normalize it
func NewQuoteFixture(symbol string, price, previous float64, name string) *domain.Quote {
	change := formulas.Change(price, previous)
	return &domain.Quote{
		Timestamp:     time.Now().UTC(),
		Symbol:        symbol,
		Name:          name,
		Price:         price,
		PreviousPrice: previous,
		Change:        change,
		ChangePercent: formulas.PercentChange(change, previous),
	}
}

// NewHistoryFixture builds one point per close on consecutive days ending at
// last, oldest first, with change fields relative to the preceding close.
func NewHistoryFixture(last time.Time, closes []float64) []domain.HistoricalPoint {
	points := make([]domain.HistoricalPoint, len(closes))
	start := last.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(len(closes) - 1))

	for i, c := range closes {
		p := domain.HistoricalPoint{
			Date:   start.AddDate(0, 0, i),
			Price:  c,
			Open:   c,
			High:   c,
			Low:    c,
			Volume: 1000,
		}
		if i > 0 {
			p.Change = formulas.Change(c, closes[i-1])
			p.ChangePercent = formulas.PercentChange(p.Change, closes[i-1])
		}
		points[i] = p
	}

	return points
}
