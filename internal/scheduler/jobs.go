package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/aristath/stockwatch/internal/reliability"
	"github.com/rs/zerolog"
)

// Refresher runs a batch refresh
type Refresher interface {
	RefreshAllWithTrigger(ctx context.Context, trigger string) (*stocks.RefreshReport, error)
}

// TradingDayChecker reports whether any tracked market trades on a day
type TradingDayChecker interface {
	AnyTradingDay(t time.Time) bool
}

// Backuper creates and rotates backups
type Backuper interface {
	Run(ctx context.Context) (*reliability.BackupResult, error)
}

// RefreshAllJob refreshes every tracked stock
type RefreshAllJob struct {
	refresher         Refresher
	calendar          TradingDayChecker
	skipClosedMarkets bool
	timeout           time.Duration
	now               func() time.Time
	log               zerolog.Logger
}

// RefreshAllJobConfig holds configuration for the refresh job
type RefreshAllJobConfig struct {
	Refresher         Refresher
	Calendar          TradingDayChecker
	SkipClosedMarkets bool
	Timeout           time.Duration
	Log               zerolog.Logger
}

// NewRefreshAllJob creates a new refresh job
func NewRefreshAllJob(cfg RefreshAllJobConfig) *RefreshAllJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &RefreshAllJob{
		refresher:         cfg.Refresher,
		calendar:          cfg.Calendar,
		skipClosedMarkets: cfg.SkipClosedMarkets,
		timeout:           timeout,
		now:               time.Now,
		log:               cfg.Log.With().Str("job", "refresh_all").Logger(),
	}
}

// Name returns the job name
func (j *RefreshAllJob) Name() string {
	return "refresh_all"
}

// Run refreshes all stocks unless every market is closed for the day.
// Per-symbol failures are part of the report, not job errors.
func (j *RefreshAllJob) Run() error {
	if j.skipClosedMarkets && j.calendar != nil && !j.calendar.AnyTradingDay(j.now()) {
		j.log.Info().Msg("All markets closed today, skipping refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.refresher.RefreshAllWithTrigger(ctx, stocks.TriggerScheduled)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	j.log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("Scheduled refresh finished")

	return nil
}

// BackupJob uploads a database backup and rotates old ones
type BackupJob struct {
	backup  Backuper
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backup Backuper, timeout time.Duration, log zerolog.Logger) *BackupJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BackupJob{
		backup:  backup,
		timeout: timeout,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.backup.Run(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	j.log.Info().
		Str("archive", result.Archive).
		Int64("size_bytes", result.SizeBytes).
		Int("rotated", result.Deleted).
		Msg("Scheduled backup finished")

	return nil
}
