package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/stockwatch/internal/clients/alphavantage"
	"github.com/aristath/stockwatch/internal/database"
	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/reliability"
	"github.com/aristath/stockwatch/internal/version"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SymbolLister counts tracked stocks for the status report
type SymbolLister interface {
	Symbols() ([]string, error)
}

// BackupRunner creates and rotates backups
type BackupRunner interface {
	Run(ctx context.Context) (*reliability.BackupResult, error)
}

// QuotaReporter reports a provider's remaining daily requests
type QuotaReporter interface {
	RemainingRequests() (remaining int, limited bool)
}

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	db          *database.DB
	symbols     SymbolLister
	backup      BackupRunner
	globalQuota QuotaReporter
	startupTime time.Time
	hostStats   func() (float64, float64)
}

// NewSystemHandlers creates system handlers. backup may be nil when
// backups are not configured.
func NewSystemHandlers(
	log zerolog.Logger,
	db *database.DB,
	symbols SymbolLister,
	backup *reliability.BackupService,
	globalClient *alphavantage.Client,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		db:          db,
		symbols:     symbols,
		startupTime: time.Now(),
	}
	if backup != nil {
		h.backup = backup
	}
	if globalClient != nil {
		h.globalQuota = globalClient
	}
	h.hostStats = h.getSystemStats
	return h
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status               string          `json:"status"`
	Version              string          `json:"version"`
	UptimeSeconds        int64           `json:"uptime_seconds"`
	CPUPercent           float64         `json:"cpu_percent"`
	RAMPercent           float64         `json:"ram_percent"`
	TrackedStocks        int             `json:"tracked_stocks"`
	Database             *database.Stats `json:"database,omitempty"`
	BackupEnabled        bool            `json:"backup_enabled"`
	GlobalQuotaRemaining *int            `json:"global_quota_remaining,omitempty"` // nil without a daily limit
	Timestamp            string          `json:"timestamp"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.hostStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		BackupEnabled: h.backup != nil,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.db != nil {
		if err := h.db.QuickCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("Database ping failed")
			response.Status = "degraded"
		}

		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
		} else {
			response.Database = stats
		}
	}

	if h.symbols != nil {
		symbols, err := h.symbols.Symbols()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count tracked stocks")
			response.Status = "degraded"
		} else {
			response.TrackedStocks = len(symbols)
		}
	}

	if h.globalQuota != nil {
		if remaining, limited := h.globalQuota.RemainingRequests(); limited {
			response.GlobalQuotaRemaining = &remaining
		}
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleTriggerBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		writeDomainError(w, &domain.Error{Kind: domain.KindUnavailable, Message: "backups are not configured"}, h.log)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), backupTimeout)
	defer cancel()

	result, err := h.backup.Run(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeDomainError(w, err, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}, h.log)
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled
// over 100ms to keep the endpoint fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
