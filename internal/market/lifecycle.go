package market

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TradeDraft carries the caller-supplied fields of a new trade.
type TradeDraft struct {
	BuyerID     string  `json:"buyerId"`
	SellerID    string  `json:"sellerId"`
	AmountKwh   float64 `json:"amountKwh"`
	PricePerKwh float64 `json:"pricePerKwh"`
}

// Engine drives the trade lifecycle state machine:
//
//	Pending -> Settled   (execute)
//	Pending -> Cancelled (cancel)
//
// All operations mutate the snapshot in place and return the affected
// trade; the caller persists the snapshot afterward. The engine never
// performs I/O, which keeps it composable and testable without a store.
type Engine struct {
	clock Clock
	log   zerolog.Logger
}

// NewEngine creates a trade lifecycle engine.
func NewEngine(clock Clock, log zerolog.Logger) *Engine {
	return &Engine{
		clock: clock,
		log:   log.With().Str("component", "lifecycle").Logger(),
	}
}

// CreateTrade validates the draft, assigns a fresh id, and prepends the
// pending trade to the ledger. The ledger is then truncated to the most
// recent MaxRecentTrades entries; older trades are dropped silently, so
// the history is lossy by design.
//
// Party ids are required to be non-empty but are not checked against the
// member roster; a trade between unknown members is accepted here and
// simply never resolves to a portfolio. See DESIGN.md for the rationale.
func (e *Engine) CreateTrade(snapshot *MarketSnapshot, draft TradeDraft) (*Trade, error) {
	if draft.BuyerID == "" {
		return nil, &ValidationError{Field: "buyerId", Reason: "must not be empty"}
	}
	if draft.SellerID == "" {
		return nil, &ValidationError{Field: "sellerId", Reason: "must not be empty"}
	}
	if draft.AmountKwh <= 0 {
		return nil, &ValidationError{Field: "amountKwh", Reason: "must be positive"}
	}
	if draft.PricePerKwh <= 0 {
		return nil, &ValidationError{Field: "pricePerKwh", Reason: "must be positive"}
	}

	trade := Trade{
		ID:          uuid.New().String(),
		BuyerID:     draft.BuyerID,
		SellerID:    draft.SellerID,
		AmountKwh:   draft.AmountKwh,
		PricePerKwh: draft.PricePerKwh,
		CreditValue: draft.AmountKwh * draft.PricePerKwh,
		Status:      StatusPending,
		Timestamp:   e.clock.Now(),
	}

	snapshot.RecentTrades = append([]Trade{trade}, snapshot.RecentTrades...)
	if len(snapshot.RecentTrades) > MaxRecentTrades {
		snapshot.RecentTrades = snapshot.RecentTrades[:MaxRecentTrades]
	}

	e.log.Info().
		Str("trade_id", trade.ID).
		Str("buyer", trade.BuyerID).
		Str("seller", trade.SellerID).
		Float64("amount_kwh", trade.AmountKwh).
		Msg("Trade created")

	return snapshot.FindTrade(trade.ID), nil
}

// ExecuteTrade settles a pending trade. Returns ErrTradeNotFound when the
// id does not resolve, ErrInvalidTransition when the trade has already
// left the Pending state.
func (e *Engine) ExecuteTrade(snapshot *MarketSnapshot, tradeID string) (*Trade, error) {
	if tradeID == "" {
		return nil, &ValidationError{Field: "tradeId", Reason: "must not be empty"}
	}

	trade := snapshot.FindTrade(tradeID)
	if trade == nil {
		return nil, ErrTradeNotFound
	}
	if trade.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	now := e.clock.Now()
	trade.Status = StatusSettled
	trade.ExecutedAt = &now

	e.log.Info().Str("trade_id", trade.ID).Msg("Trade settled")
	return trade, nil
}

// CancelTrade cancels a pending trade, with the same lookup and guard
// semantics as ExecuteTrade.
func (e *Engine) CancelTrade(snapshot *MarketSnapshot, tradeID string) (*Trade, error) {
	if tradeID == "" {
		return nil, &ValidationError{Field: "tradeId", Reason: "must not be empty"}
	}

	trade := snapshot.FindTrade(tradeID)
	if trade == nil {
		return nil, ErrTradeNotFound
	}
	if trade.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	now := e.clock.Now()
	trade.Status = StatusCancelled
	trade.CancelledAt = &now

	e.log.Info().Str("trade_id", trade.ID).Msg("Trade cancelled")
	return trade, nil
}
