// Package di provides dependency injection wiring and initialization.
//
// The Container holds every long-lived dependency. It is built once by Wire
// and handed to the HTTP server and the scheduler.
package di

import (
	"github.com/aristath/stockwatch/internal/clients/alphavantage"
	"github.com/aristath/stockwatch/internal/clients/nse"
	"github.com/aristath/stockwatch/internal/database"
	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/aristath/stockwatch/internal/pacing"
	"github.com/aristath/stockwatch/internal/reliability"
	"github.com/aristath/stockwatch/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Database
	DB *database.DB

	// Repositories
	StockRepo *stocks.StockRepository
	RunRepo   *stocks.RefreshRunRepository

	// Provider clients
	AlphaVantageClient *alphavantage.Client
	NSEClient          *nse.Client

	// Services
	Pacer            *pacing.Pacer
	SyncService      *stocks.SyncService
	DisplayConverter *stocks.DisplayConverter
	MarketCalendar   *scheduler.MarketCalendar

	// Backups; nil when R2 is not configured
	R2Client      *reliability.R2Client
	BackupService *reliability.BackupService
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	RefreshAll  *scheduler.RefreshAllJob
	Maintenance *reliability.MaintenanceJob
	Backup      *scheduler.BackupJob // nil when backups are disabled
}
