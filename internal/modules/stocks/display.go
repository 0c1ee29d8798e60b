package stocks

import (
	"github.com/Rhymond/go-money"
	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
)

// DefaultUSDToINR is the static display rate for global quotes
const DefaultUSDToINR = 83.5

// DisplayPrices holds formatted prices in a display currency
type DisplayPrices struct {
	Currency      string  `json:"currency"`
	Rate          float64 `json:"rate"`
	Price         string  `json:"price"`
	PreviousPrice string  `json:"previous_price"`
	Change        string  `json:"change"`
}

// StockView is a record as listed by the API, with optional display prices
type StockView struct {
	StockRecord
	Display *DisplayPrices `json:"display,omitempty"`
}

// DisplayConverter formats records in INR. Regional quotes are already in
// INR; global quotes are converted at a fixed rate. Stored values are
// never changed.
type DisplayConverter struct {
	usdToINR float64
}

// NewDisplayConverter creates a converter; a non-positive rate uses the default
func NewDisplayConverter(usdToINR float64) *DisplayConverter {
	if usdToINR <= 0 {
		usdToINR = DefaultUSDToINR
	}
	return &DisplayConverter{usdToINR: usdToINR}
}

// Currency returns the currency a symbol is quoted in
func Currency(symbol string) string {
	if Route(symbol) == domain.ProviderRegional {
		return money.INR
	}
	return money.USD
}

// FormatAmount renders amount in currency, e.g. "₹3,850.50"
func FormatAmount(amount float64, currency string) string {
	return money.NewFromFloat(formulas.Round2(amount), currency).Display()
}

// ToINR returns rec with INR display prices attached
func (c *DisplayConverter) ToINR(rec StockRecord) StockView {
	rate := 1.0
	if Currency(rec.Symbol) != money.INR {
		rate = c.usdToINR
	}

	return StockView{
		StockRecord: rec,
		Display: &DisplayPrices{
			Currency:      money.INR,
			Rate:          rate,
			Price:         FormatAmount(rec.Price*rate, money.INR),
			PreviousPrice: FormatAmount(rec.PreviousPrice*rate, money.INR),
			Change:        FormatAmount(rec.Change*rate, money.INR),
		},
	}
}

// Views wraps records, attaching display prices when currency is INR
func (c *DisplayConverter) Views(records []StockRecord, currency string) []StockView {
	views := make([]StockView, 0, len(records))
	for _, rec := range records {
		if currency == money.INR {
			views = append(views, c.ToINR(rec))
			continue
		}
		views = append(views, StockView{StockRecord: rec})
	}
	return views
}
