package stocks

import (
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
)

// Indicator lengths used by the history summary. The window holds at most
// ten points, so both stay short.
const (
	summarySMALength = 5
	summaryRSILength = 5
)

// HistorySummary is a small set of indicators over a history window.
// SMA and RSI are nil when the window is too short.
type HistorySummary struct {
	Symbol              string    `json:"symbol"`
	Points              int       `json:"points"`
	From                time.Time `json:"from,omitempty"`
	To                  time.Time `json:"to,omitempty"`
	LastClose           float64   `json:"last_close"`
	SMA                 *float64  `json:"sma_5"`
	RSI                 *float64  `json:"rsi_5"`
	MeanChangePercent   float64   `json:"mean_change_percent"`
	StdDevChangePercent float64   `json:"stddev_change_percent"`
	High                float64   `json:"high"`
	Low                 float64   `json:"low"`
	Estimated           bool      `json:"estimated"`
}

// Summarize computes indicators over a chronological window
func Summarize(symbol string, history []domain.HistoricalPoint) HistorySummary {
	summary := HistorySummary{
		Symbol: symbol,
		Points: len(history),
	}
	if len(history) == 0 {
		return summary
	}

	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Price
		if p.Estimated {
			summary.Estimated = true
		}
	}

	// The earliest point has no predecessor, so its change is not a return
	changes := make([]float64, 0, len(history)-1)
	for _, p := range history[1:] {
		changes = append(changes, p.ChangePercent)
	}

	summary.From = history[0].Date
	summary.To = history[len(history)-1].Date
	summary.LastClose = closes[len(closes)-1]
	summary.SMA = formulas.CalculateSMA(closes, summarySMALength)
	summary.RSI = formulas.CalculateRSI(closes, summaryRSILength)
	summary.MeanChangePercent = formulas.Round2(formulas.Mean(changes))
	summary.StdDevChangePercent = formulas.Round2(formulas.StdDev(changes))
	summary.Low, summary.High = formulas.MinMax(closes)

	return summary
}
