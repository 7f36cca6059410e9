package market

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Service composes the store, simulator, lifecycle engine, and
// aggregators behind a single mutex. Every load-mutate-save cycle runs
// under the lock, making the service the single-writer serialization
// point for the shared snapshot document within this process.
//
// Read operations tick the simulation on a loaded in-memory copy; only
// Snapshot (the dashboard read) and the background Tick persist the
// drifted result, so aggregate reads observe a live-looking market
// without churning the store.
type Service struct {
	mu         sync.Mutex
	store      *Store
	simulator  *Simulator
	engine     *Engine
	aggregator *Aggregator
	tickOnRead bool
	log        zerolog.Logger
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Store      *Store
	Simulator  *Simulator
	Engine     *Engine
	Aggregator *Aggregator
	TickOnRead bool
	Log        zerolog.Logger
}

// NewService creates the market service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store:      cfg.Store,
		simulator:  cfg.Simulator,
		engine:     cfg.Engine,
		aggregator: cfg.Aggregator,
		tickOnRead: cfg.TickOnRead,
		log:        cfg.Log.With().Str("service", "market").Logger(),
	}
}

// Snapshot returns the drift-applied, persisted snapshot. When memberID
// is non-empty, the returned view's membership pointer is resolved to
// that member's community; the persisted document keeps its own.
func (s *Service) Snapshot(memberID string) (*MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	if s.tickOnRead {
		s.simulator.Tick(snapshot)
		if err := s.store.Save(snapshot); err != nil {
			return nil, fmt.Errorf("failed to persist ticked snapshot: %w", err)
		}
	}

	if memberID != "" {
		if _, community := snapshot.FindMember(memberID); community != nil {
			snapshot.UserMembership.CommunityID = community.ID
		}
	}

	return snapshot, nil
}

// Current returns the persisted snapshot without advancing the
// simulation. Used where a caller needs the post-mutation state verbatim.
func (s *Service) Current() (*MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Tick advances the simulation once and persists the result. Called by
// the background scheduler so telemetry keeps moving without reads.
func (s *Service) Tick() (*MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	s.simulator.Tick(snapshot)
	if err := s.store.Save(snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist ticked snapshot: %w", err)
	}

	return snapshot, nil
}

// CreateTrade appends a pending trade to the ledger and persists the
// snapshot. The in-memory mutation is discarded on any error before save.
func (s *Service) CreateTrade(draft TradeDraft) (*Trade, error) {
	return s.mutateTrade(func(snapshot *MarketSnapshot) (*Trade, error) {
		return s.engine.CreateTrade(snapshot, draft)
	})
}

// ExecuteTrade settles a pending trade and persists the snapshot.
func (s *Service) ExecuteTrade(tradeID string) (*Trade, error) {
	return s.mutateTrade(func(snapshot *MarketSnapshot) (*Trade, error) {
		return s.engine.ExecuteTrade(snapshot, tradeID)
	})
}

// CancelTrade cancels a pending trade and persists the snapshot.
func (s *Service) CancelTrade(tradeID string) (*Trade, error) {
	return s.mutateTrade(func(snapshot *MarketSnapshot) (*Trade, error) {
		return s.engine.CancelTrade(snapshot, tradeID)
	})
}

// mutateTrade runs one serialized load-mutate-save cycle and returns a
// copy of the affected trade, detached from the snapshot.
func (s *Service) mutateTrade(op func(*MarketSnapshot) (*Trade, error)) (*Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	trade, err := op(snapshot)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(snapshot); err != nil {
		return nil, err
	}

	result := *trade
	return &result, nil
}

// MarketData derives market statistics from a drift-applied in-memory
// view of the ledger.
func (s *Service) MarketData() (*MarketStats, error) {
	snapshot, err := s.readView()
	if err != nil {
		return nil, err
	}
	return s.aggregator.MarketData(snapshot), nil
}

// TradeHistory returns the filtered, timestamp-descending trade history.
func (s *Service) TradeHistory(filter TradeFilter) ([]Trade, error) {
	snapshot, err := s.readView()
	if err != nil {
		return nil, err
	}
	return s.aggregator.TradeHistory(snapshot, filter), nil
}

// Portfolio rolls up one member's position from the ledger.
func (s *Service) Portfolio(memberID string) (*Portfolio, error) {
	if memberID == "" {
		return nil, &ValidationError{Field: "memberId", Reason: "must not be empty"}
	}

	snapshot, err := s.readView()
	if err != nil {
		return nil, err
	}
	return PortfolioFor(snapshot, memberID), nil
}

// Reset reinstalls the baseline snapshot, discarding all history.
func (s *Service) Reset() (*MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Reset()
	if err != nil {
		return nil, err
	}

	s.log.Info().Msg("Market snapshot reset to baseline")
	return snapshot, nil
}

// readView loads the snapshot and, when read-path ticking is enabled,
// drifts the in-memory copy without persisting it. The drifted copy is
// simply discarded, per the whole-document read model.
func (s *Service) readView() (*MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if s.tickOnRead {
		s.simulator.Tick(snapshot)
	}
	return snapshot, nil
}
