package di

import (
	"fmt"
	"time"

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/reliability"
	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/rs/zerolog"
)

// Schedule for database maintenance (daily, 02:30)
const maintenanceSchedule = "0 30 2 * * *"

// RegisterJobs creates the background jobs and registers the scheduled ones.
// Empty schedules leave a job registered for manual runs only.
func RegisterJobs(container *Container, sched *scheduler.Scheduler, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		RefreshAll: scheduler.NewRefreshAllJob(scheduler.RefreshAllJobConfig{
			Refresher:         container.SyncService,
			Calendar:          container.MarketCalendar,
			SkipClosedMarkets: cfg.Sync.SkipClosedMarkets,
			Timeout:           cfg.Sync.RefreshTimeout,
			Log:               log,
		}),
		Maintenance: reliability.NewMaintenanceJob(container.DB, container.RunRepo, reliability.DefaultRunsToKeep, log),
	}

	if cfg.Sync.RefreshSchedule != "" {
		if err := sched.AddJob(cfg.Sync.RefreshSchedule, instances.RefreshAll); err != nil {
			return nil, fmt.Errorf("failed to register refresh job: %w", err)
		}
	}

	if err := sched.AddJob(maintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		instances.Backup = scheduler.NewBackupJob(container.BackupService, 10*time.Minute, log)
		if cfg.Backup.Schedule != "" {
			if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
				return nil, fmt.Errorf("failed to register backup job: %w", err)
			}
		}
	}

	return instances, nil
}
