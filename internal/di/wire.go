package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/stockwatch/internal/clients/alphavantage"
	"github.com/aristath/stockwatch/internal/clients/nse"
	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/database"
	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/aristath/stockwatch/internal/pacing"
	"github.com/aristath/stockwatch/internal/reliability"
	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open and migrate the database
// 2. Initialize repositories
// 3. Initialize provider clients and services
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	InitializeRepositories(container, log)

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// InitializeDatabase opens the stock database and applies its schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:   cfg.DatabasePath,
		Driver: cfg.DatabaseDriver,
		Name:   "stocks",
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().
		Str("path", db.Path()).
		Str("driver", db.Driver()).
		Msg("Database ready")

	return &Container{DB: db}, nil
}

// InitializeRepositories creates the repositories over the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.StockRepo = stocks.NewStockRepository(container.DB.Conn(), log)
	container.RunRepo = stocks.NewRefreshRunRepository(container.DB.Conn(), log)
}

// InitializeServices creates provider clients, the pacer, the sync service
// and, when configured, the backup service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if cfg.AlphaVantage.APIKey == "" {
		log.Warn().Msg("ALPHAVANTAGE_API_KEY not set, global symbols will fail to refresh")
	}

	container.AlphaVantageClient = alphavantage.NewClient(cfg.AlphaVantage.APIKey, log,
		alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
		alphavantage.WithTimeout(cfg.AlphaVantage.Timeout),
		alphavantage.WithDailyLimit(cfg.AlphaVantage.DailyLimit),
	)
	container.NSEClient = nse.NewClient(log,
		nse.WithBaseURL(cfg.NSE.BaseURL),
		nse.WithTimeout(cfg.NSE.Timeout),
	)

	providers := []domain.QuoteProvider{
		alphavantage.NewQuoteAdapter(container.AlphaVantageClient, cfg.AlphaVantage.Overview, log),
		nse.NewQuoteAdapter(container.NSEClient, log),
	}

	container.Pacer = pacing.New(map[domain.ProviderKind]time.Duration{
		domain.ProviderGlobal:   cfg.Sync.GlobalInterval,
		domain.ProviderRegional: cfg.Sync.RegionalInterval,
	}, log)

	container.SyncService = stocks.NewSyncService(
		container.StockRepo,
		container.RunRepo,
		container.Pacer,
		providers,
		log,
	)
	container.DisplayConverter = stocks.NewDisplayConverter(cfg.USDINRRate)
	container.MarketCalendar = scheduler.NewMarketCalendar(log)

	if !cfg.Backup.Enabled() {
		log.Info().Msg("R2 backups disabled")
		return nil
	}

	r2Client, err := reliability.NewR2Client(context.Background(), reliability.R2Config{
		AccountID:       cfg.Backup.AccountID,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
		BucketName:      cfg.Backup.BucketName,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create r2 client: %w", err)
	}
	container.R2Client = r2Client
	container.BackupService = reliability.NewBackupService(
		r2Client,
		container.DB,
		filepath.Join(filepath.Dir(container.DB.Path()), "backups"),
		cfg.Backup.RetentionDays,
		log,
	)

	return nil
}
