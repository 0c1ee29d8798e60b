package reliability

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// DefaultRunsToKeep is how many refresh reports survive pruning
	DefaultRunsToKeep = 200

	minFreeDiskBytes = 500 * 1024 * 1024
)

// MaintainedDB is the database surface maintenance needs
type MaintainedDB interface {
	Name() string
	Path() string
	HealthCheck(ctx context.Context) error
	WALCheckpoint(mode string) error
}

// RunPruner trims the refresh run log
type RunPruner interface {
	Prune(keep int) (int64, error)
}

// MaintenanceJob checks integrity, checkpoints the WAL, verifies free disk
// space and prunes the refresh run log
type MaintenanceJob struct {
	db        MaintainedDB
	runs      RunPruner
	keepRuns  int
	timeout   time.Duration
	diskUsage func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(db MaintainedDB, runs RunPruner, keepRuns int, log zerolog.Logger) *MaintenanceJob {
	if keepRuns <= 0 {
		keepRuns = DefaultRunsToKeep
	}
	return &MaintenanceJob{
		db:        db,
		runs:      runs,
		keepRuns:  keepRuns,
		timeout:   2 * time.Minute,
		diskUsage: disk.Usage,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance steps. Integrity and disk space failures
// abort the run; checkpoint and prune failures are logged.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Integrity check failed")
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if j.runs != nil {
		pruned, err := j.runs.Prune(j.keepRuns)
		if err != nil {
			j.log.Warn().Err(err).Msg("Failed to prune refresh runs")
		} else if pruned > 0 {
			j.log.Info().Int64("pruned", pruned).Msg("Pruned refresh runs")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed")

	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

func (j *MaintenanceJob) checkDiskSpace() error {
	dir := filepath.Dir(j.db.Path())

	usage, err := j.diskUsage(dir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", dir).Msg("Failed to read disk usage")
		return nil
	}

	j.log.Debug().
		Uint64("free_bytes", usage.Free).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	if usage.Free < minFreeDiskBytes {
		j.log.Error().Uint64("free_bytes", usage.Free).Msg("Insufficient disk space")
		return fmt.Errorf("only %d MB free on %s", usage.Free/1024/1024, dir)
	}

	return nil
}
