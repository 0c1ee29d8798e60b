package stocks

import (
	"context"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/pacing"
)

// StockRepositoryInterface defines the contract for stock persistence
type StockRepositoryInterface interface {
	Find(symbol string) (*StockRecord, error)
	FindAll() ([]StockRecord, error)
	Symbols() ([]string, error)
	Create(rec *StockRecord) error
	Save(rec *StockRecord) error
	Delete(symbol string) error
}

// RefreshRunRepositoryInterface defines the contract for the batch run log
type RefreshRunRepositoryInterface interface {
	Record(report *RefreshReport) error
	Recent(limit int) ([]RefreshReport, error)
	Prune(keep int) (int64, error)
}

// Pacer schedules per-provider batches. Wait paces a second call made for
// the same symbol inside a batch.
type Pacer interface {
	ForEachSequential(ctx context.Context, provider domain.ProviderKind, symbols []string, work pacing.WorkFunc) ([]string, error)
	Wait(ctx context.Context, provider domain.ProviderKind) error
}

var (
	_ StockRepositoryInterface      = (*StockRepository)(nil)
	_ RefreshRunRepositoryInterface = (*RefreshRunRepository)(nil)
	_ Pacer                         = (*pacing.Pacer)(nil)
)
