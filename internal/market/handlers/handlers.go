// Package handlers provides HTTP handlers for the energy market API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gridmate/gridmate/internal/market"
)

// memberHeader carries the member identifier resolved by the auth layer.
// The core trusts it as-is and performs no authorization of its own.
const memberHeader = "X-Member-Id"

// MarketHandlers contains HTTP handlers for the market API.
type MarketHandlers struct {
	service *market.Service
	log     zerolog.Logger
}

// NewMarketHandlers creates a new market handlers instance.
func NewMarketHandlers(service *market.Service, log zerolog.Logger) *MarketHandlers {
	return &MarketHandlers{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetSnapshot returns the drift-applied, persisted snapshot.
// GET /api/market/snapshot
func (h *MarketHandlers) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Header.Get(memberHeader))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load snapshot")
		http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleGetTrades returns filtered trade history, newest first.
// GET /api/market/trades?communityId=&memberId=&status=
func (h *MarketHandlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	filter := market.TradeFilter{
		CommunityID: r.URL.Query().Get("communityId"),
		MemberID:    r.URL.Query().Get("memberId"),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		switch market.TradeStatus(status) {
		case market.StatusPending, market.StatusSettled, market.StatusCancelled:
			filter.Status = market.TradeStatus(status)
		default:
			http.Error(w, "Invalid status filter", http.StatusBadRequest)
			return
		}
	}

	trades, err := h.service.TradeHistory(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get trade history")
		http.Error(w, "Failed to get trade history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// HandleGetMarketData returns market statistics.
// GET /api/market/stats
func (h *MarketHandlers) HandleGetMarketData(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MarketData()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute market data")
		http.Error(w, "Failed to compute market data", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleGetPortfolio returns a member's trade roll-up. The member comes
// from the memberId query parameter, falling back to the identity header.
// GET /api/market/portfolio?memberId=
func (h *MarketHandlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("memberId")
	if memberID == "" {
		memberID = r.Header.Get(memberHeader)
	}
	if memberID == "" {
		http.Error(w, "memberId is required", http.StatusBadRequest)
		return
	}

	portfolio, err := h.service.Portfolio(memberID)
	if err != nil {
		h.writeDomainError(w, err, "Failed to compute portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, portfolio)
}

// tradeActionRequest is the POST /api/market/trades payload.
type tradeActionRequest struct {
	Action string `json:"action"` // create | execute | cancel
	Trade  struct {
		ID          string  `json:"id"`
		BuyerID     string  `json:"buyerId"`
		SellerID    string  `json:"sellerId"`
		AmountKwh   float64 `json:"amountKwh"`
		PricePerKwh float64 `json:"pricePerKwh"`
	} `json:"trade"`
}

// HandlePostTrade creates, executes, or cancels a trade and returns the
// affected trade plus the persisted snapshot.
// POST /api/market/trades
func (h *MarketHandlers) HandlePostTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var trade *market.Trade
	var err error

	switch req.Action {
	case "create":
		trade, err = h.service.CreateTrade(market.TradeDraft{
			BuyerID:     req.Trade.BuyerID,
			SellerID:    req.Trade.SellerID,
			AmountKwh:   req.Trade.AmountKwh,
			PricePerKwh: req.Trade.PricePerKwh,
		})
	case "execute":
		if req.Trade.ID == "" {
			http.Error(w, "trade.id is required", http.StatusBadRequest)
			return
		}
		trade, err = h.service.ExecuteTrade(req.Trade.ID)
	case "cancel":
		if req.Trade.ID == "" {
			http.Error(w, "trade.id is required", http.StatusBadRequest)
			return
		}
		trade, err = h.service.CancelTrade(req.Trade.ID)
	default:
		http.Error(w, "Unknown action (expected create, execute, or cancel)", http.StatusBadRequest)
		return
	}

	if err != nil {
		h.writeDomainError(w, err, "Trade operation failed")
		return
	}

	snapshot, err := h.service.Current()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to reload snapshot after trade operation")
		http.Error(w, "Failed to reload snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trade":    trade,
		"snapshot": snapshot,
	})
}

// HandleReset reinstalls the baseline snapshot.
// POST /api/market/reset
func (h *MarketHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Reset()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to reset snapshot")
		http.Error(w, "Failed to reset snapshot", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// writeDomainError maps the market error taxonomy to transport status
// codes: validation -> 400, lookup -> 404, state transition -> 409,
// everything else -> 500.
func (h *MarketHandlers) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case market.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, market.ErrTradeNotFound):
		http.Error(w, "Trade not found", http.StatusNotFound)
	case errors.Is(err, market.ErrInvalidTransition):
		http.Error(w, "Trade is not pending", http.StatusConflict)
	default:
		h.log.Error().Err(err).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (h *MarketHandlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
