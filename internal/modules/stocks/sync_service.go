package stocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncService keeps tracked records in sync with the quote providers.
// Interactive operations call providers directly; batch operations go
// through the pacer.
type SyncService struct {
	repo      StockRepositoryInterface
	runs      RefreshRunRepositoryInterface
	pacer     Pacer
	providers map[domain.ProviderKind]domain.QuoteProvider
	log       zerolog.Logger
	now       func() time.Time
}

// NewSyncService creates a sync service. Providers are keyed by their Kind.
func NewSyncService(
	repo StockRepositoryInterface,
	runs RefreshRunRepositoryInterface,
	pacer Pacer,
	providers []domain.QuoteProvider,
	log zerolog.Logger,
) *SyncService {
	byKind := make(map[domain.ProviderKind]domain.QuoteProvider, len(providers))
	for _, p := range providers {
		byKind[p.Kind()] = p
	}

	return &SyncService{
		repo:      repo,
		runs:      runs,
		pacer:     pacer,
		providers: byKind,
		log:       log.With().Str("service", "stock_sync").Logger(),
		now:       time.Now,
	}
}

func (s *SyncService) providerFor(symbol string) (domain.QuoteProvider, error) {
	kind := Route(symbol)
	p, ok := s.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no %s provider configured for %s", kind, symbol)
	}
	return p, nil
}

// CreateTracked starts tracking symbol. The quote must succeed; history is
// best effort and the record is kept with an empty window if it fails.
func (s *SyncService) CreateTracked(ctx context.Context, symbol, name, sector string) (*StockRecord, error) {
	return s.createTracked(ctx, symbol, name, sector, false)
}

// createTracked is CreateTracked; paced waits for a pacer slot before the
// history call
func (s *SyncService) createTracked(ctx context.Context, symbol, name, sector string, paced bool) (*StockRecord, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewValidationError("symbol is required")
	}

	existing, err := s.repo.Find(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", symbol, err)
	}
	if existing != nil {
		return nil, domain.NewDuplicateSymbol(symbol)
	}

	provider, err := s.providerFor(symbol)
	if err != nil {
		return nil, err
	}

	quote, err := provider.FetchQuote(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, stock not created")
		return nil, err
	}

	rec := &StockRecord{
		Symbol:        symbol,
		Name:          firstNonEmpty(name, quote.Name, symbol),
		Sector:        firstNonEmpty(sector, quote.Sector, domain.DefaultSector),
		Price:         quote.Price,
		PreviousPrice: quote.PreviousPrice,
	}
	if err := s.repo.Create(rec); err != nil {
		return nil, err
	}

	history, err := s.fetchHistory(ctx, provider, symbol, paced)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed, keeping empty history")
		return rec, nil
	}

	rec.HistoricalData = history
	if err := s.repo.Save(rec); err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store history")
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("provider", string(provider.Kind())).
		Float64("price", rec.Price).
		Int("history_points", len(rec.HistoricalData)).
		Msg("Stock tracked")

	return rec, nil
}

// RefreshOne fetches a fresh quote for a tracked symbol and, when
// useHistoryRefresh is set, replaces a stale history window.
func (s *SyncService) RefreshOne(ctx context.Context, symbol string, useHistoryRefresh bool) (*StockRecord, error) {
	return s.refreshOne(ctx, symbol, useHistoryRefresh, false)
}

func (s *SyncService) refreshOne(ctx context.Context, symbol string, useHistoryRefresh, paced bool) (*StockRecord, error) {
	rec, err := s.GetStock(symbol)
	if err != nil {
		return nil, err
	}

	if err := s.refreshRecord(ctx, rec, useHistoryRefresh, paced); err != nil {
		return nil, err
	}

	if err := s.repo.Save(rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// refreshRecord applies a quote and, if stale, a new history window to rec
// in memory. Only a quote failure is returned.
func (s *SyncService) refreshRecord(ctx context.Context, rec *StockRecord, useHistoryRefresh, paced bool) error {
	provider, err := s.providerFor(rec.Symbol)
	if err != nil {
		return err
	}

	quote, err := provider.FetchQuote(ctx, rec.Symbol)
	if err != nil {
		return err
	}
	rec.Price = quote.Price
	rec.PreviousPrice = quote.PreviousPrice

	if !useHistoryRefresh || !historyStale(rec.HistoricalData, s.now()) {
		return nil
	}

	history, err := s.fetchHistory(ctx, provider, rec.Symbol, paced)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("History refresh failed, keeping previous window")
		return nil
	}
	rec.HistoricalData = history

	return nil
}

// fetchHistory fetches symbol's window. Batch callers already hold a slot
// for the quote, so paced takes a second one for this request.
func (s *SyncService) fetchHistory(ctx context.Context, provider domain.QuoteProvider, symbol string, paced bool) ([]domain.HistoricalPoint, error) {
	if paced {
		if err := s.pacer.Wait(ctx, provider.Kind()); err != nil {
			return nil, fmt.Errorf("history not paced: %w", err)
		}
	}
	return provider.FetchHistory(ctx, symbol)
}

// historyStale reports whether the freshest point is not from today (UTC)
func historyStale(history []domain.HistoricalPoint, now time.Time) bool {
	latest, ok := domain.LatestPoint(history)
	if !ok {
		return true
	}
	return latest.DateKey() != now.UTC().Format("2006-01-02")
}

// RefreshAll refreshes every tracked symbol as a manual run
func (s *SyncService) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	return s.RefreshAllWithTrigger(ctx, TriggerManual)
}

// RefreshAllWithTrigger refreshes every tracked symbol. The provider
// partitions run concurrently, each paced. Per-symbol failures never stop
// the batch and earlier successes stay committed. On cancellation the
// symbols not yet visited are reported as failed.
func (s *SyncService) RefreshAllWithTrigger(ctx context.Context, trigger string) (*RefreshReport, error) {
	symbols, err := s.repo.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	report := &RefreshReport{
		RunID:     uuid.New().String(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
		Succeeded: []string{},
		Failed:    []RefreshFailure{},
	}

	s.log.Info().
		Str("run_id", report.RunID).
		Str("trigger", trigger).
		Int("symbols", len(symbols)).
		Msg("Starting batch refresh")

	var mu sync.Mutex
	succeed := func(symbol string) {
		mu.Lock()
		defer mu.Unlock()
		report.Succeeded = append(report.Succeeded, symbol)
	}
	fail := func(symbol string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed = append(report.Failed, RefreshFailure{Symbol: symbol, Error: err.Error()})
	}

	var wg sync.WaitGroup
	for kind, batch := range partitionByProvider(symbols) {
		wg.Add(1)
		go func(kind domain.ProviderKind, batch []string) {
			defer wg.Done()

			skipped, err := s.pacer.ForEachSequential(ctx, kind, batch, func(ctx context.Context, symbol string) {
				if _, err := s.refreshOne(ctx, symbol, true, true); err != nil {
					s.log.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed")
					fail(symbol, err)
					return
				}
				succeed(symbol)
			})

			for _, symbol := range skipped {
				fail(symbol, fmt.Errorf("refresh cancelled: %w", err))
			}
		}(kind, batch)
	}
	wg.Wait()

	sort.Strings(report.Succeeded)
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Symbol < report.Failed[j].Symbol
	})
	report.FinishedAt = s.now().UTC()

	if s.runs != nil {
		if err := s.runs.Record(report); err != nil {
			s.log.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to record refresh run")
		}
	}

	s.log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration()).
		Msg("Batch refresh finished")

	return report, nil
}

// RecentRuns returns the latest batch reports, newest first
func (s *SyncService) RecentRuns(limit int) ([]RefreshReport, error) {
	if s.runs == nil {
		return []RefreshReport{}, nil
	}
	return s.runs.Recent(limit)
}

// GetHistory returns the stored window, fetching and caching it when empty
func (s *SyncService) GetHistory(ctx context.Context, symbol string) ([]domain.HistoricalPoint, error) {
	rec, err := s.GetStock(symbol)
	if err != nil {
		return nil, err
	}

	if len(rec.HistoricalData) > 0 {
		return rec.HistoricalData, nil
	}

	provider, err := s.providerFor(rec.Symbol)
	if err != nil {
		return nil, err
	}

	history, err := provider.FetchHistory(ctx, rec.Symbol)
	if err != nil {
		return nil, err
	}

	rec.HistoricalData = history
	if err := s.repo.Save(rec); err != nil {
		return nil, err
	}

	return rec.HistoricalData, nil
}

// GetSummary computes indicators over the symbol's history window
func (s *SyncService) GetSummary(ctx context.Context, symbol string) (*HistorySummary, error) {
	history, err := s.GetHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}

	summary := Summarize(domain.NormalizeSymbol(symbol), history)
	return &summary, nil
}

// UpdateStock applies an admin edit, optionally refreshing from the provider
// first. Derived fields are recomputed on save.
func (s *SyncService) UpdateStock(ctx context.Context, symbol string, update StockUpdate) (*StockRecord, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.GetStock(symbol)
	if err != nil {
		return nil, err
	}

	if update.UseAPIRefresh {
		if err := s.refreshRecord(ctx, rec, true, false); err != nil {
			return nil, err
		}
	}

	if update.Name != nil {
		rec.Name = strings.TrimSpace(*update.Name)
	}
	if update.Sector != nil {
		rec.Sector = firstNonEmpty(*update.Sector, domain.DefaultSector)
	}
	if update.Price != nil {
		rec.Price = *update.Price
	}
	if update.PreviousPrice != nil {
		rec.PreviousPrice = *update.PreviousPrice
	}

	if err := s.repo.Save(rec); err != nil {
		return nil, err
	}

	s.log.Info().Str("symbol", rec.Symbol).Bool("api_refresh", update.UseAPIRefresh).Msg("Stock updated")
	return rec, nil
}

// DeleteStock stops tracking symbol
func (s *SyncService) DeleteStock(symbol string) error {
	return s.repo.Delete(symbol)
}

// ListStocks returns every tracked record ordered by symbol
func (s *SyncService) ListStocks() ([]StockRecord, error) {
	return s.repo.FindAll()
}

// GetStock returns a tracked record or NotFound
func (s *SyncService) GetStock(symbol string) (*StockRecord, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewValidationError("symbol is required")
	}

	rec, err := s.repo.Find(symbol)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewNotFound(symbol)
	}

	return rec, nil
}

// Seed tracks every entry not already tracked, pacing provider calls.
// Repeated symbols in entries are created once and reported as existing
// for every later occurrence.
func (s *SyncService) Seed(ctx context.Context, entries []SeedEntry) (*SeedResult, error) {
	result := &SeedResult{
		Created:  []string{},
		Existing: []string{},
		Failed:   []RefreshFailure{},
	}

	bySymbol := make(map[string]SeedEntry, len(entries))
	var pending []string
	for _, e := range entries {
		symbol := domain.NormalizeSymbol(e.Symbol)
		existing, err := s.repo.Find(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", symbol, err)
		}
		if existing != nil {
			result.Existing = append(result.Existing, symbol)
			continue
		}
		if _, dup := bySymbol[symbol]; dup {
			result.Existing = append(result.Existing, symbol)
			continue
		}
		bySymbol[symbol] = e
		pending = append(pending, symbol)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for kind, batch := range partitionByProvider(pending) {
		wg.Add(1)
		go func(kind domain.ProviderKind, batch []string) {
			defer wg.Done()

			skipped, err := s.pacer.ForEachSequential(ctx, kind, batch, func(ctx context.Context, symbol string) {
				e := bySymbol[symbol]
				_, err := s.createTracked(ctx, symbol, e.Name, e.Sector, true)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					result.Created = append(result.Created, symbol)
				case domain.IsKind(err, domain.KindDuplicateSymbol):
					result.Existing = append(result.Existing, symbol)
				default:
					result.Failed = append(result.Failed, RefreshFailure{Symbol: symbol, Error: err.Error()})
				}
			})

			mu.Lock()
			defer mu.Unlock()
			for _, symbol := range skipped {
				result.Failed = append(result.Failed, RefreshFailure{Symbol: symbol, Error: fmt.Sprintf("seed cancelled: %v", err)})
			}
		}(kind, batch)
	}
	wg.Wait()

	sort.Strings(result.Created)
	sort.Strings(result.Existing)
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Symbol < result.Failed[j].Symbol
	})

	s.log.Info().
		Int("created", len(result.Created)).
		Int("existing", len(result.Existing)).
		Int("failed", len(result.Failed)).
		Msg("Seed finished")

	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
