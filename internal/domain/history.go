package domain

import (
	"sort"

	"github.com/aristath/stockwatch/pkg/formulas"
)

// ChainHistory sorts points oldest first, keeps the trailing HistoryWindow
// entries and recomputes each point's change against its predecessor.
// The earliest point in the result carries zero change.
func ChainHistory(points []HistoricalPoint) []HistoricalPoint {
	if len(points) == 0 {
		return []HistoricalPoint{}
	}

	sorted := make([]HistoricalPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	if len(sorted) > HistoryWindow {
		sorted = sorted[len(sorted)-HistoryWindow:]
	}

	for i := range sorted {
		if i == 0 {
			sorted[i].Change = 0
			sorted[i].ChangePercent = 0
			continue
		}
		prev := sorted[i-1].Price
		sorted[i].Change = formulas.Change(sorted[i].Price, prev)
		sorted[i].ChangePercent = formulas.PercentChange(sorted[i].Change, prev)
	}

	return sorted
}

// LatestPoint returns the freshest point of a chronological window
func LatestPoint(points []HistoricalPoint) (HistoricalPoint, bool) {
	if len(points) == 0 {
		return HistoricalPoint{}, false
	}
	return points[len(points)-1], true
}
