package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stock routes. Mutating routes are wrapped
// with requireAdmin.
func (h *Handler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleListStocks)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.HandleCreateStock)
			r.Post("/refresh", h.HandleRefreshAll)
			r.Get("/refresh/runs", h.HandleListRuns)
			r.Put("/{symbol}", h.HandleUpdateStock)
			r.Delete("/{symbol}", h.HandleDeleteStock)
		})

		r.Get("/{symbol}", h.HandleGetStock)
		r.Get("/{symbol}/history", h.HandleGetHistory)
		r.Get("/{symbol}/summary", h.HandleGetSummary)
	})
}
