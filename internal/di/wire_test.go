package di

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:   filepath.Join(t.TempDir(), "data", "stockwatch.db"),
		DatabaseDriver: "sqlite",
		AdminToken:     "admin-token",
		AlphaVantage: config.AlphaVantageConfig{
			APIKey:  "test-key",
			Timeout: 5 * time.Second,
		},
		NSE: config.NSEConfig{Timeout: 5 * time.Second},
		Sync: config.SyncConfig{
			GlobalInterval:    12 * time.Second,
			RegionalInterval:  time.Second,
			RefreshSchedule:   "0 0 */4 * * *",
			RefreshTimeout:    time.Minute,
			SkipClosedMarkets: true,
		},
		Backup:     &config.BackupConfig{},
		USDINRRate: 83.5,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.StockRepo)
	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.AlphaVantageClient)
	assert.NotNil(t, container.NSEClient)
	assert.NotNil(t, container.Pacer)
	assert.NotNil(t, container.SyncService)
	assert.NotNil(t, container.DisplayConverter)
	assert.NotNil(t, container.MarketCalendar)

	// Backups stay off without R2 credentials
	assert.Nil(t, container.R2Client)
	assert.Nil(t, container.BackupService)

	assert.Equal(t, 12*time.Second, container.Pacer.Interval("global"))
	assert.Equal(t, time.Second, container.Pacer.Interval("regional"))

	symbols, err := container.StockRepo.Symbols()
	require.NoError(t, err)
	assert.Empty(t, symbols)

	_, limited := container.AlphaVantageClient.RemainingRequests()
	assert.False(t, limited)
}

func TestWireAppliesDailyLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.AlphaVantage.DailyLimit = 25

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	remaining, limited := container.AlphaVantageClient.RemainingRequests()
	assert.True(t, limited)
	assert.Equal(t, 25, remaining)
}

func TestWireRejectsBadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = "postgres"

	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	sched := scheduler.New(zerolog.Nop())
	jobs, err := RegisterJobs(container, sched, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, jobs.RefreshAll)
	assert.NotNil(t, jobs.Maintenance)
	assert.Nil(t, jobs.Backup)
}

func TestRegisterJobsInvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.RefreshSchedule = "every now and then"

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	_, err = RegisterJobs(container, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(nil, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	assert.Error(t, err)
}
