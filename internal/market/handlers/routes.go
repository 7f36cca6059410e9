package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market routes
func (h *MarketHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/market", func(r chi.Router) {
		r.Get("/snapshot", h.HandleGetSnapshot)
		r.Get("/trades", h.HandleGetTrades)
		r.Get("/stats", h.HandleGetMarketData)
		r.Get("/portfolio", h.HandleGetPortfolio)
		r.Post("/trades", h.HandlePostTrade)
		r.Post("/reset", h.HandleReset)
	})
}
