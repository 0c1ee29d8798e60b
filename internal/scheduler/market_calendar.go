package scheduler

import (
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/scmhub/calendar"
)

// Exchange MICs per routing slot
var providerMICs = map[domain.ProviderKind]string{
	domain.ProviderGlobal:   "xnys",
	domain.ProviderRegional: "xnse",
}

// Timezones used when the calendar library has no entry for a MIC
var fallbackZones = map[domain.ProviderKind]*time.Location{
	domain.ProviderGlobal:   time.FixedZone("EST", -5*3600),
	domain.ProviderRegional: time.FixedZone("IST", 5*3600+1800),
}

type exchangeCalendar struct {
	cal *calendar.Calendar
	loc *time.Location
}

// MarketCalendar answers whether the exchanges behind each provider trade
// on a given day. Exchanges the calendar library does not know fall back
// to Monday to Friday in the exchange timezone.
type MarketCalendar struct {
	exchanges map[domain.ProviderKind]exchangeCalendar
}

// NewMarketCalendar loads calendars for both providers
func NewMarketCalendar(log zerolog.Logger) *MarketCalendar {
	mc := &MarketCalendar{exchanges: make(map[domain.ProviderKind]exchangeCalendar)}

	for kind, mic := range providerMICs {
		cal := calendar.GetCalendar(mic)
		if cal == nil {
			log.Warn().Str("mic", mic).Msg("No exchange calendar, using weekday fallback")
			mc.exchanges[kind] = exchangeCalendar{loc: fallbackZones[kind]}
			continue
		}
		mc.exchanges[kind] = exchangeCalendar{cal: cal, loc: cal.Loc}
	}

	return mc
}

// IsTradingDay reports whether the provider's exchange trades on t's local date
func (m *MarketCalendar) IsTradingDay(kind domain.ProviderKind, t time.Time) bool {
	ex, ok := m.exchanges[kind]
	if !ok {
		return true
	}

	if ex.loc != nil {
		t = t.In(ex.loc)
	}

	if ex.cal == nil {
		weekday := t.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return ex.cal.IsBusinessDay(t)
}

// AnyTradingDay reports whether at least one exchange trades on t
func (m *MarketCalendar) AnyTradingDay(t time.Time) bool {
	for kind := range m.exchanges {
		if m.IsTradingDay(kind, t) {
			return true
		}
	}
	return false
}
