package stocks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/pacing"
	testingpkg "github.com/aristath/stockwatch/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	svc      *SyncService
	repo     *StockRepository
	runs     *RefreshRunRepository
	global   *testingpkg.MockQuoteProvider
	regional *testingpkg.MockQuoteProvider
}

func newSyncFixture(t *testing.T, interval time.Duration) *syncFixture {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "stocks")
	t.Cleanup(cleanup)

	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	runs := NewRefreshRunRepository(db.Conn(), zerolog.Nop())
	global := testingpkg.NewMockQuoteProvider(domain.ProviderGlobal)
	regional := testingpkg.NewMockQuoteProvider(domain.ProviderRegional)
	pacer := pacing.New(map[domain.ProviderKind]time.Duration{
		domain.ProviderGlobal:   interval,
		domain.ProviderRegional: interval,
	}, zerolog.Nop())

	svc := NewSyncService(repo, runs, pacer, []domain.QuoteProvider{global, regional}, zerolog.Nop())

	return &syncFixture{svc: svc, repo: repo, runs: runs, global: global, regional: regional}
}

func tenCloses() []float64 {
	return []float64{3800, 3810, 3795, 3820, 3835, 3830, 3842, 3851, 3847, 3850.5}
}

// TestCreateTrackedDerivesAndDefaults covers the Acme example: provider
// name, default sector and derived change fields.
func TestCreateTrackedDerivesAndDefaults(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp"))

	rec, err := f.svc.CreateTracked(context.Background(), "acme", "", "")
	require.NoError(t, err)

	assert.Equal(t, "ACME", rec.Symbol)
	assert.Equal(t, "Acme Corp", rec.Name)
	assert.Equal(t, "Unknown", rec.Sector)
	assert.Equal(t, 5.0, rec.Change)
	assert.Equal(t, 5.26, rec.ChangePercent)
	assert.Empty(t, rec.HistoricalData)

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 5.26, stored.ChangePercent)
	assert.Equal(t, "Unknown", stored.Sector)
}

func TestCreateTrackedNameAndSectorPrecedence(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)

	quote := testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp")
	quote.Sector = "Industrials"
	f.global.SetQuote("ACME", quote)
	f.global.SetQuote("BARE", testingpkg.NewQuoteFixture("BARE", 10, 10, ""))

	rec, err := f.svc.CreateTracked(context.Background(), "ACME", "Acme Holdings", "Conglomerate")
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", rec.Name)
	assert.Equal(t, "Conglomerate", rec.Sector)

	rec, err = f.svc.CreateTracked(context.Background(), "BARE", "", "")
	require.NoError(t, err)
	assert.Equal(t, "BARE", rec.Name)
	assert.Equal(t, "Unknown", rec.Sector)
}

// TestCreateTrackedWithHistory covers a fresh regional symbol with ten closes
func TestCreateTrackedWithHistory(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	f.regional.SetQuote("TCS.NSE", testingpkg.NewQuoteFixture("TCS.NSE", 3850.5, 3825, "Tata Consultancy Services"))
	f.regional.SetHistory("TCS.NSE", testingpkg.NewHistoryFixture(time.Now(), tenCloses()))

	_, err := f.svc.CreateTracked(context.Background(), "TCS.NSE", "", "Technology")
	require.NoError(t, err)

	stored, err := f.repo.Find("TCS.NSE")
	require.NoError(t, err)
	require.Len(t, stored.HistoricalData, 10)

	assert.Equal(t, 0.0, stored.HistoricalData[0].Change)
	assert.Equal(t, 0.0, stored.HistoricalData[0].ChangePercent)
	for i := 1; i < len(stored.HistoricalData); i++ {
		assert.True(t, stored.HistoricalData[i].Date.After(stored.HistoricalData[i-1].Date))
	}
	assert.Equal(t, 3850.5, stored.HistoricalData[9].Price)
	assert.Equal(t, 0, f.global.QuoteCalls("TCS.NSE"))
}

func TestCreateTrackedDuplicate(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp"))

	_, err := f.svc.CreateTracked(context.Background(), "ACME", "", "")
	require.NoError(t, err)

	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 1, 1, "Changed"))
	_, err = f.svc.CreateTracked(context.Background(), "acme", "Other", "Other")
	assert.True(t, domain.IsKind(err, domain.KindDuplicateSymbol))

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", stored.Name)
	assert.Equal(t, 100.0, stored.Price)
	assert.Equal(t, 1, f.global.QuoteCalls("ACME"))
}

func TestCreateTrackedProviderFailurePersistsNothing(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	f.global.SetQuoteError("ACME", domain.NewProviderError(domain.ProviderGlobal, "ACME", "unexpected status 503", nil))

	rec, err := f.svc.CreateTracked(context.Background(), "ACME", "", "")
	assert.Nil(t, rec)
	assert.True(t, domain.IsKind(err, domain.KindProvider))

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCreateTrackedValidation(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)

	_, err := f.svc.CreateTracked(context.Background(), "   ", "", "")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

// TestRefreshOneHistoryPolicy covers the freshness rule for history refetches
func TestRefreshOneHistoryPolicy(t *testing.T) {
	today := time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		historyEnd    time.Time
		emptyHistory  bool
		useHistory    bool
		expectHistory int
	}{
		{name: "fresh today", historyEnd: today, useHistory: true, expectHistory: 0},
		{name: "fresh today early hour", historyEnd: time.Date(2024, time.March, 5, 0, 5, 0, 0, time.UTC), useHistory: true, expectHistory: 0},
		{name: "stale yesterday", historyEnd: today.AddDate(0, 0, -1), useHistory: true, expectHistory: 1},
		{name: "stale last week", historyEnd: today.AddDate(0, 0, -7), useHistory: true, expectHistory: 1},
		{name: "empty history", emptyHistory: true, useHistory: true, expectHistory: 1},
		{name: "history refresh disabled", historyEnd: today.AddDate(0, 0, -1), useHistory: false, expectHistory: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, time.Millisecond)
			f.svc.now = func() time.Time { return today }

			rec := &StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 90, PreviousPrice: 90}
			if !tt.emptyHistory {
				rec.HistoricalData = testingpkg.NewHistoryFixture(tt.historyEnd, []float64{88, 89, 90})
			}
			require.NoError(t, f.repo.Create(rec))

			f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp"))
			f.global.SetHistory("ACME", testingpkg.NewHistoryFixture(today, tenCloses()))

			updated, err := f.svc.RefreshOne(context.Background(), "acme", tt.useHistory)
			require.NoError(t, err)

			assert.Equal(t, 1, f.global.QuoteCalls("ACME"))
			assert.Equal(t, tt.expectHistory, f.global.HistoryCalls("ACME"))
			assert.Equal(t, 100.0, updated.Price)
			assert.Equal(t, 5.26, updated.ChangePercent)

			if tt.expectHistory == 1 {
				assert.Len(t, updated.HistoricalData, 10)
			}
		})
	}
}

func TestRefreshOneHistoryFailureStillCommitsQuote(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 90, PreviousPrice: 90}))

	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp"))
	f.global.SetHistoryError("ACME", domain.NewProviderError(domain.ProviderGlobal, "ACME", "timeout", context.DeadlineExceeded))

	_, err := f.svc.RefreshOne(context.Background(), "ACME", true)
	require.NoError(t, err)

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Price)
	assert.Empty(t, stored.HistoricalData)
}

func TestRefreshOneErrors(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)

	_, err := f.svc.RefreshOne(context.Background(), "GHOST", true)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 90, PreviousPrice: 80}))
	f.global.SetQuoteError("ACME", domain.NewProviderError(domain.ProviderGlobal, "ACME", "bad payload", nil))

	_, err = f.svc.RefreshOne(context.Background(), "ACME", true)
	assert.True(t, domain.IsKind(err, domain.KindProvider))

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Equal(t, 90.0, stored.Price)
	assert.Equal(t, 10.0, stored.Change)
}

// TestRefreshAllPartitionsEverySymbol checks that each symbol lands in
// exactly one of succeeded or failed and successes stay committed.
func TestRefreshAllPartitionsEverySymbol(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	today := time.Now()

	symbols := []string{"AAPL", "IBM", "MSFT", "TCS.NSE", "INFY.NSE"}
	for _, s := range symbols {
		require.NoError(t, f.repo.Create(&StockRecord{Symbol: s, Name: s, Price: 1, PreviousPrice: 1,
			HistoricalData: testingpkg.NewHistoryFixture(today, []float64{1, 1})}))
	}

	f.global.SetQuote("AAPL", testingpkg.NewQuoteFixture("AAPL", 190, 185, "Apple"))
	f.global.SetQuoteError("IBM", domain.NewProviderError(domain.ProviderGlobal, "IBM", "rate limit", nil))
	f.global.SetQuote("MSFT", testingpkg.NewQuoteFixture("MSFT", 410, 400, "Microsoft"))
	f.regional.SetQuote("TCS.NSE", testingpkg.NewQuoteFixture("TCS.NSE", 3850.5, 3825, "TCS"))
	f.regional.SetQuoteError("INFY.NSE", domain.NewProviderError(domain.ProviderRegional, "INFY.NSE", "blocked", nil))

	report, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, TriggerManual, report.Trigger)
	assert.Equal(t, len(symbols), report.Total())
	assert.Equal(t, []string{"AAPL", "MSFT", "TCS.NSE"}, report.Succeeded)
	require.Len(t, report.Failed, 2)
	assert.Equal(t, "IBM", report.Failed[0].Symbol)
	assert.Contains(t, report.Failed[0].Error, "rate limit")
	assert.Equal(t, "INFY.NSE", report.Failed[1].Symbol)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	aapl, err := f.repo.Find("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.0, aapl.Price)

	ibm, err := f.repo.Find("IBM")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ibm.Price)

	// Calls stay on their own provider
	assert.Equal(t, []string{"AAPL", "IBM", "MSFT"}, f.global.CallOrder())
	assert.Equal(t, []string{"INFY.NSE", "TCS.NSE"}, f.regional.CallOrder())

	runs, err := f.svc.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, report.Succeeded, runs[0].Succeeded)
}

func TestRefreshAllCancellationReportsUnvisitedAsFailed(t *testing.T) {
	f := newSyncFixture(t, time.Hour)

	symbols := []string{"AAPL", "IBM", "MSFT", "TCS.NSE", "INFY.NSE"}
	for _, s := range symbols {
		require.NoError(t, f.repo.Create(&StockRecord{Symbol: s, Name: s, Price: 1}))
		f.global.SetQuote(s, testingpkg.NewQuoteFixture(s, 2, 1, s))
		f.regional.SetQuote(s, testingpkg.NewQuoteFixture(s, 2, 1, s))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	hook := func(string) { once.Do(cancel) }
	f.global.OnFetch = hook
	f.regional.OnFetch = hook

	done := make(chan *RefreshReport)
	go func() {
		report, err := f.svc.RefreshAll(ctx)
		assert.NoError(t, err)
		done <- report
	}()

	var report *RefreshReport
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not stop after cancellation")
	}

	assert.Equal(t, len(symbols), report.Total())
	assert.Empty(t, report.Succeeded)
	for _, failure := range report.Failed {
		assert.NotEmpty(t, failure.Error)
	}
}

type mockRunRepository struct {
	mock.Mock
}

func (m *mockRunRepository) Record(report *RefreshReport) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *mockRunRepository) Recent(limit int) ([]RefreshReport, error) {
	args := m.Called(limit)
	return args.Get(0).([]RefreshReport), args.Error(1)
}

func (m *mockRunRepository) Prune(keep int) (int64, error) {
	args := m.Called(keep)
	return args.Get(0).(int64), args.Error(1)
}

func TestRefreshAllRunLogFailureIsNotFatal(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "stocks")
	defer cleanup()

	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Create(&StockRecord{Symbol: "AAPL", Name: "Apple", Price: 1}))

	global := testingpkg.NewMockQuoteProvider(domain.ProviderGlobal)
	global.SetQuote("AAPL", testingpkg.NewQuoteFixture("AAPL", 190, 185, "Apple"))
	global.SetHistory("AAPL", testingpkg.NewHistoryFixture(time.Now(), []float64{185, 190}))

	runs := new(mockRunRepository)
	runs.On("Record", mock.AnythingOfType("*stocks.RefreshReport")).Return(errors.New("disk full")).Once()

	pacer := pacing.New(map[domain.ProviderKind]time.Duration{domain.ProviderGlobal: time.Millisecond}, zerolog.Nop())
	svc := NewSyncService(repo, runs, pacer, []domain.QuoteProvider{global}, zerolog.Nop())

	report, err := svc.RefreshAllWithTrigger(context.Background(), TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, report.Succeeded)
	assert.Equal(t, TriggerScheduled, report.Trigger)

	runs.AssertExpectations(t)
}

func TestGetHistoryFetchesAndCaches(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "TCS.NSE", Name: "TCS", Price: 1}))
	f.regional.SetHistory("TCS.NSE", testingpkg.NewHistoryFixture(time.Now(), tenCloses()))

	history, err := f.svc.GetHistory(context.Background(), "tcs.nse")
	require.NoError(t, err)
	assert.Len(t, history, 10)

	history, err = f.svc.GetHistory(context.Background(), "TCS.NSE")
	require.NoError(t, err)
	assert.Len(t, history, 10)
	assert.Equal(t, 1, f.regional.HistoryCalls("TCS.NSE"))

	_, err = f.svc.GetHistory(context.Background(), "GHOST")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestGetHistoryProviderFailure(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "AAPL", Name: "Apple", Price: 1}))

	_, err := f.svc.GetHistory(context.Background(), "AAPL")
	assert.True(t, domain.IsKind(err, domain.KindProvider))
}

func TestGetSummary(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "AAPL", Name: "Apple", Price: 1,
		HistoricalData: testingpkg.NewHistoryFixture(time.Now(), []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})}))

	summary, err := f.svc.GetSummary(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", summary.Symbol)
	require.NotNil(t, summary.SMA)
	assert.Equal(t, 8.0, *summary.SMA)
	assert.Equal(t, 10.0, summary.High)
	assert.Equal(t, 1.0, summary.Low)
}

func TestUpdateStock(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Sector: "Industrials", Price: 100, PreviousPrice: 95}))

	name := "  Acme Holdings "
	sector := ""
	price := 120.0
	rec, err := f.svc.UpdateStock(context.Background(), "acme", StockUpdate{Name: &name, Sector: &sector, Price: &price})
	require.NoError(t, err)

	assert.Equal(t, "Acme Holdings", rec.Name)
	assert.Equal(t, "Unknown", rec.Sector)
	assert.Equal(t, 120.0, rec.Price)
	assert.Equal(t, 25.0, rec.Change)
	assert.Equal(t, 26.32, rec.ChangePercent)
	assert.Equal(t, 0, f.global.QuoteCalls("ACME"))

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Equal(t, 26.32, stored.ChangePercent)
}

func TestUpdateStockWithAPIRefresh(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 100, PreviousPrice: 95}))
	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 110, 100, "Acme Corp"))
	f.global.SetHistory("ACME", testingpkg.NewHistoryFixture(time.Now(), tenCloses()))

	sector := "Industrials"
	rec, err := f.svc.UpdateStock(context.Background(), "ACME", StockUpdate{Sector: &sector, UseAPIRefresh: true})
	require.NoError(t, err)

	assert.Equal(t, 110.0, rec.Price)
	assert.Equal(t, 10.0, rec.ChangePercent)
	assert.Equal(t, "Industrials", rec.Sector)
	assert.Len(t, rec.HistoricalData, 10)
	assert.Equal(t, 1, f.global.HistoryCalls("ACME"))
}

func TestUpdateStockErrors(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)

	price := 1.0
	_, err := f.svc.UpdateStock(context.Background(), "GHOST", StockUpdate{Price: &price})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	neg := -5.0
	_, err = f.svc.UpdateStock(context.Background(), "GHOST", StockUpdate{PreviousPrice: &neg})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 100}))
	f.global.SetQuoteError("ACME", domain.NewProviderError(domain.ProviderGlobal, "ACME", "down", nil))
	_, err = f.svc.UpdateStock(context.Background(), "ACME", StockUpdate{Price: &price, UseAPIRefresh: true})
	assert.True(t, domain.IsKind(err, domain.KindProvider))

	stored, err := f.repo.Find("ACME")
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Price)
}

func TestDeleteListAndGet(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "IBM", Name: "IBM", Price: 1}))
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "AAPL", Name: "Apple", Price: 1}))

	list, err := f.svc.ListStocks()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAPL", list[0].Symbol)

	rec, err := f.svc.GetStock("ibm")
	require.NoError(t, err)
	assert.Equal(t, "IBM", rec.Symbol)

	require.NoError(t, f.svc.DeleteStock("IBM"))
	_, err = f.svc.GetStock("IBM")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	err = f.svc.DeleteStock("IBM")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestSeed(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "TCS.NSE", Name: "TCS", Price: 1}))

	f.regional.SetQuote("INFY.NSE", testingpkg.NewQuoteFixture("INFY.NSE", 1500, 1490, "Infosys Limited"))
	f.regional.SetQuote("SBIN.NSE", testingpkg.NewQuoteFixture("SBIN.NSE", 600, 610, ""))
	f.global.SetQuote("AAPL", testingpkg.NewQuoteFixture("AAPL", 190, 185, "Apple"))

	entries := []SeedEntry{
		{Symbol: "TCS.NSE", Name: "Tata Consultancy Services Ltd.", Sector: "Technology"},
		{Symbol: "INFY.NSE", Name: "Infosys Ltd.", Sector: "Technology"},
		{Symbol: "SBIN.NSE", Name: "State Bank of India", Sector: "Financial Services"},
		{Symbol: "HDFCBANK.NSE", Name: "HDFC Bank Ltd.", Sector: "Financial Services"},
		{Symbol: "AAPL"},
	}

	result, err := f.svc.Seed(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "INFY.NSE", "SBIN.NSE"}, result.Created)
	assert.Equal(t, []string{"TCS.NSE"}, result.Existing)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "HDFCBANK.NSE", result.Failed[0].Symbol)

	infy, err := f.repo.Find("INFY.NSE")
	require.NoError(t, err)
	assert.Equal(t, "Infosys Ltd.", infy.Name)
	assert.Equal(t, "Technology", infy.Sector)

	tcs, err := f.repo.Find("TCS.NSE")
	require.NoError(t, err)
	assert.Equal(t, "TCS", tcs.Name)
}

// TestRefreshAllPacesHistoryCalls checks that a stale symbol's history
// request takes its own pacer slot in a batch.
func TestRefreshAllPacesHistoryCalls(t *testing.T) {
	const interval = 40 * time.Millisecond
	f := newSyncFixture(t, interval)

	for _, s := range []string{"AAPL", "MSFT"} {
		require.NoError(t, f.repo.Create(&StockRecord{Symbol: s, Name: s, Price: 1, PreviousPrice: 1}))
		f.global.SetQuote(s, testingpkg.NewQuoteFixture(s, 2, 1, s))
		f.global.SetHistory(s, testingpkg.NewHistoryFixture(time.Now(), tenCloses()))
	}

	var mu sync.Mutex
	var starts []time.Time
	f.global.OnFetch = func(string) {
		mu.Lock()
		defer mu.Unlock()
		starts = append(starts, time.Now())
	}

	report, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, report.Succeeded)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 4)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), interval-2*time.Millisecond, "gap %d", i)
	}
	assert.Equal(t, 1, f.global.HistoryCalls("AAPL"))
	assert.Equal(t, 1, f.global.HistoryCalls("MSFT"))
}

func TestRefreshOneIsNotPaced(t *testing.T) {
	f := newSyncFixture(t, time.Hour)
	require.NoError(t, f.repo.Create(&StockRecord{Symbol: "ACME", Name: "Acme Corp", Price: 90, PreviousPrice: 90}))
	f.global.SetQuote("ACME", testingpkg.NewQuoteFixture("ACME", 100, 95, "Acme Corp"))
	f.global.SetHistory("ACME", testingpkg.NewHistoryFixture(time.Now(), tenCloses()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Use up the global lane's only slot for the next hour
	require.NoError(t, f.svc.pacer.Wait(ctx, domain.ProviderGlobal))

	rec, err := f.svc.RefreshOne(ctx, "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.Price)
	assert.Equal(t, 1, f.global.HistoryCalls("ACME"))
	assert.Len(t, rec.HistoricalData, 10)
}

func TestSeedRepeatedSymbols(t *testing.T) {
	f := newSyncFixture(t, time.Millisecond)
	f.global.SetQuote("AAPL", testingpkg.NewQuoteFixture("AAPL", 190, 185, "Apple"))

	entries := []SeedEntry{
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "aapl", Name: "Apple Lowercase"},
		{Symbol: " AAPL "},
	}

	result, err := f.svc.Seed(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, result.Created)
	assert.Equal(t, []string{"AAPL", "AAPL"}, result.Existing)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, f.global.QuoteCalls("AAPL"))

	rec, err := f.repo.Find("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", rec.Name)
}
