// Package handlers provides HTTP handlers for stock operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StockService is the subset of stocks.SyncService the handlers use
type StockService interface {
	CreateTracked(ctx context.Context, symbol, name, sector string) (*stocks.StockRecord, error)
	GetStock(symbol string) (*stocks.StockRecord, error)
	ListStocks() ([]stocks.StockRecord, error)
	GetHistory(ctx context.Context, symbol string) ([]domain.HistoricalPoint, error)
	GetSummary(ctx context.Context, symbol string) (*stocks.HistorySummary, error)
	UpdateStock(ctx context.Context, symbol string, update stocks.StockUpdate) (*stocks.StockRecord, error)
	DeleteStock(symbol string) error
	RefreshAllWithTrigger(ctx context.Context, trigger string) (*stocks.RefreshReport, error)
	RecentRuns(limit int) ([]stocks.RefreshReport, error)
}

var _ StockService = (*stocks.SyncService)(nil)

// Handler handles stock HTTP requests
type Handler struct {
	service        StockService
	converter      *stocks.DisplayConverter
	refreshTimeout time.Duration
	log            zerolog.Logger
}

// NewHandler creates a new stocks handler
func NewHandler(
	service StockService,
	converter *stocks.DisplayConverter,
	refreshTimeout time.Duration,
	log zerolog.Logger,
) *Handler {
	if refreshTimeout <= 0 {
		refreshTimeout = 30 * time.Minute
	}
	return &Handler{
		service:        service,
		converter:      converter,
		refreshTimeout: refreshTimeout,
		log:            log.With().Str("handler", "stocks").Logger(),
	}
}

// CreateStockRequest represents a request to start tracking a symbol
type CreateStockRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector,omitempty"`
}

// HandleListStocks handles GET /api/stocks
func (h *Handler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListStocks()
	if err != nil {
		h.writeError(w, err)
		return
	}

	var data interface{} = records
	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency != "" {
		if currency != "INR" {
			h.writeError(w, domain.NewValidationError("unsupported display currency %q", currency))
			return
		}
		data = h.converter.Views(records, currency)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"count":     len(records),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetStock handles GET /api/stocks/{symbol}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetStock(chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, rec)
}

// HandleGetHistory handles GET /api/stocks/{symbol}/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	history, err := h.service.GetHistory(r.Context(), symbol)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": history,
		"metadata": map[string]interface{}{
			"symbol":    domain.NormalizeSymbol(symbol),
			"points":    len(history),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSummary handles GET /api/stocks/{symbol}/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, summary)
}

// HandleCreateStock handles POST /api/stocks
func (h *Handler) HandleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req CreateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}

	rec, err := h.service.CreateTracked(r.Context(), req.Symbol, req.Name, req.Sector)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("symbol", rec.Symbol).Msg("Stock created")
	h.writeData(w, http.StatusCreated, rec)
}

// HandleUpdateStock handles PUT /api/stocks/{symbol}
func (h *Handler) HandleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var update stocks.StockUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}

	rec, err := h.service.UpdateStock(r.Context(), chi.URLParam(r, "symbol"), update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, rec)
}

// HandleDeleteStock handles DELETE /api/stocks/{symbol}
func (h *Handler) HandleDeleteStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.service.DeleteStock(symbol); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"symbol":  domain.NormalizeSymbol(symbol),
		"deleted": true,
	})
}

// HandleRefreshAll handles POST /api/stocks/refresh
//
// The batch outlives the request: it runs on a detached context bounded by
// the refresh timeout so a dropped client does not cancel it.
func (h *Handler) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.refreshTimeout)
	defer cancel()

	report, err := h.service.RefreshAllWithTrigger(ctx, stocks.TriggerManual)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"total":       report.Total(),
			"succeeded":   len(report.Succeeded),
			"failed":      len(report.Failed),
			"duration_ms": report.Duration().Milliseconds(),
		},
	})
}

// HandleListRuns handles GET /api/stocks/refresh/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, domain.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.service.RecentRuns(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, runs)
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps err to its status code and writes the error envelope
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := kind.HTTPStatus()

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
	} else {
		h.log.Debug().Err(err).Str("kind", string(kind)).Msg("Request rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    string(kind),
			"message": domain.PublicMessage(err),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
