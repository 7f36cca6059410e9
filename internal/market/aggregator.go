package market

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// defaultPrice is reported when no settled trades exist yet. An explicit
// fallback, not an error.
const defaultPrice = 5.5

// topTraderCount caps the topBuyers / topSellers rankings.
const topTraderCount = 5

// volumeWindow is the lookback for volume24h.
const volumeWindow = 24 * time.Hour

// TradeFilter narrows a trade history query. Zero-valued fields are
// no-ops, not exclusions; set fields must all match (conjunctive).
type TradeFilter struct {
	CommunityID string
	MemberID    string
	Status      TradeStatus
}

// Aggregator derives leaderboard-style market views from the trade ledger.
type Aggregator struct {
	clock Clock
	rng   Rand
}

// NewAggregator creates a market aggregator.
func NewAggregator(clock Clock, rng Rand) *Aggregator {
	return &Aggregator{clock: clock, rng: rng}
}

// MarketData computes market statistics over the settled portion of the
// ledger: mean settled price (defaultPrice when empty), 24h settled
// volume, and per-member top-5 buy/sell volume rankings.
//
// PriceChange is simulated jitter, not derived from price history.
func (a *Aggregator) MarketData(snapshot *MarketSnapshot) *MarketStats {
	var prices []float64
	buyVolumes := make(map[string]float64)
	sellVolumes := make(map[string]float64)
	volume24h := 0.0
	cutoff := a.clock.Now().Add(-volumeWindow)

	for _, trade := range snapshot.RecentTrades {
		if trade.Status != StatusSettled {
			continue
		}
		prices = append(prices, trade.PricePerKwh)
		buyVolumes[trade.BuyerID] += trade.AmountKwh
		sellVolumes[trade.SellerID] += trade.AmountKwh
		if trade.Timestamp.After(cutoff) {
			volume24h += trade.AmountKwh
		}
	}

	currentPrice := defaultPrice
	if len(prices) > 0 {
		currentPrice = stat.Mean(prices, nil)
	}

	return &MarketStats{
		CurrentPrice: currentPrice,
		PriceChange:  round2(a.rng.Uniform(-0.5, 0.5)),
		Volume24h:    volume24h,
		TopBuyers:    a.rankVolumes(snapshot, buyVolumes),
		TopSellers:   a.rankVolumes(snapshot, sellVolumes),
	}
}

// TradeHistory applies the filter conjunctively, then sorts descending by
// timestamp (newest first).
func (a *Aggregator) TradeHistory(snapshot *MarketSnapshot, filter TradeFilter) []Trade {
	var communityMembers map[string]bool
	if filter.CommunityID != "" {
		communityMembers = snapshot.CommunityMemberIDs(filter.CommunityID)
	}

	trades := make([]Trade, 0, len(snapshot.RecentTrades))
	for _, trade := range snapshot.RecentTrades {
		if filter.Status != "" && trade.Status != filter.Status {
			continue
		}
		if filter.MemberID != "" && trade.BuyerID != filter.MemberID && trade.SellerID != filter.MemberID {
			continue
		}
		if communityMembers != nil && !communityMembers[trade.BuyerID] && !communityMembers[trade.SellerID] {
			continue
		}
		trades = append(trades, trade)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})

	return trades
}

// rankVolumes turns a member->volume map into a descending top-N ranking.
func (a *Aggregator) rankVolumes(snapshot *MarketSnapshot, volumes map[string]float64) []TraderVolume {
	ranked := make([]TraderVolume, 0, len(volumes))
	for memberID, amount := range volumes {
		entry := TraderVolume{MemberID: memberID, AmountKwh: amount}
		if member, _ := snapshot.FindMember(memberID); member != nil {
			entry.Household = member.Household
		}
		ranked = append(ranked, entry)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AmountKwh != ranked[j].AmountKwh {
			return ranked[i].AmountKwh > ranked[j].AmountKwh
		}
		return ranked[i].MemberID < ranked[j].MemberID // stable order for ties
	})

	if len(ranked) > topTraderCount {
		ranked = ranked[:topTraderCount]
	}
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
