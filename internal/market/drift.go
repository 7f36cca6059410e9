package market

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Drift tuning. Deltas are drawn from Uniform(-driftRange, driftRange);
// the scales below shape how far each field family moves per tick.
const (
	driftRange       = 2.0
	memberDriftScale = 0.3
	generationScale  = 1.5
	surplusLBScale   = 0.2 // surplus leaderboard values move slowly
	changeScale      = 0.5
	settleChance     = 0.3 // per-tick odds that a pending trade settles

	peakCutMin = 0.0
	peakCutMax = 50.0
)

// Simulator emulates live telemetry by nudging a snapshot's numeric fields
// with small pseudo-random deltas. One Tick is one observation: telemetry
// drifts, leaderboards re-rank, and each pending trade has a settleChance
// probability of settling.
//
// Settling trades inside a tick is a deliberate side effect of *reading*
// the market, not of an explicit execute call; it is the one place where
// the simulation touches lifecycle state. Outputs are intentionally
// non-deterministic, so tests assert ranges and invariants, never exact
// values.
type Simulator struct {
	rng   Rand
	clock Clock
	log   zerolog.Logger
}

// NewSimulator creates a drift simulator.
func NewSimulator(rng Rand, clock Clock, log zerolog.Logger) *Simulator {
	return &Simulator{
		rng:   rng,
		clock: clock,
		log:   log.With().Str("component", "simulator").Logger(),
	}
}

// Tick applies one simulation step to the snapshot in place. The caller
// decides whether the result is persisted.
func (s *Simulator) Tick(snapshot *MarketSnapshot) {
	for i := range snapshot.Communities {
		s.driftCommunity(&snapshot.Communities[i])
	}

	for category := range snapshot.Leaderboards {
		snapshot.Leaderboards[category] = s.driftLeaderboard(category, snapshot.Leaderboards[category])
	}

	settled := s.settlePending(snapshot)
	if settled > 0 {
		s.log.Debug().Int("settled", settled).Msg("Pending trades auto-settled during tick")
	}
}

// driftCommunity perturbs one community's telemetry. Community-level
// fields share one delta; each member draws a fresh, smaller one.
func (s *Simulator) driftCommunity(c *Community) {
	delta := s.rng.Uniform(-driftRange, driftRange)

	c.NetFlow = round1(c.NetFlow + delta)
	c.TotalGeneration = round1(c.TotalGeneration + delta*generationScale)
	c.TotalConsumption = round1(c.TotalConsumption + delta)

	for i := range c.Members {
		m := &c.Members[i]
		memberDelta := s.rng.Uniform(-driftRange, driftRange) * memberDriftScale
		m.SurplusKwh = round1(m.SurplusKwh + memberDelta)
		m.PeakCutPercent = round1(clamp(m.PeakCutPercent+memberDelta, peakCutMin, peakCutMax))
	}
}

// driftLeaderboard perturbs each rating, then restores the category
// invariant: descending by value, top MaxLeaderboardEntries only.
func (s *Simulator) driftLeaderboard(category Category, ratings []Rating) []Rating {
	scale := 1.0
	if category == CategorySurplus {
		scale = surplusLBScale
	}

	for i := range ratings {
		ratings[i].Value = round1(ratings[i].Value + s.rng.Uniform(-driftRange, driftRange)*scale)
		ratings[i].Change = round1(s.rng.Uniform(-driftRange, driftRange) * changeScale)
	}

	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].Value > ratings[j].Value
	})
	if len(ratings) > MaxLeaderboardEntries {
		ratings = ratings[:MaxLeaderboardEntries]
	}
	return ratings
}

// settlePending gives every pending trade an independent settleChance of
// settling on this observation, refreshing its timestamp to now so it
// counts toward the 24h volume window.
func (s *Simulator) settlePending(snapshot *MarketSnapshot) int {
	now := s.clock.Now()
	settled := 0
	for i := range snapshot.RecentTrades {
		trade := &snapshot.RecentTrades[i]
		if trade.Status != StatusPending {
			continue
		}
		if s.rng.Uniform(0, 1) >= settleChance {
			continue
		}
		trade.Status = StatusSettled
		trade.Timestamp = now
		executedAt := now
		trade.ExecutedAt = &executedAt
		settled++
	}
	return settled
}

// round1 rounds to the one-decimal precision telemetry uses by convention.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
