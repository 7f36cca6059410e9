// Package market implements the community energy-trading and live-telemetry
// simulation engine: a single persisted MarketSnapshot document, a drift
// simulator that nudges telemetry on every tick, a trade lifecycle state
// machine, and the aggregations (market stats, leaderboards, portfolios)
// derived from the trade ledger.
package market

import "time"

// TradeStatus is the lifecycle state of a trade.
// Transitions are Pending -> Settled or Pending -> Cancelled; both
// terminal states are immutable.
type TradeStatus string

const (
	StatusPending   TradeStatus = "Pending"
	StatusSettled   TradeStatus = "Settled"
	StatusCancelled TradeStatus = "Cancelled"
)

// Tier is a member reward tier, ordered Bronze < Silver < Gold < Platinum.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// tierRanks maps tiers to their ordinal rank for reward eligibility.
var tierRanks = map[Tier]int{
	TierBronze:   0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
}

// Rank returns the ordinal rank of the tier (Bronze = 0). Unknown tiers
// rank below Bronze.
func (t Tier) Rank() int {
	if rank, ok := tierRanks[t]; ok {
		return rank
	}
	return -1
}

// Category is a leaderboard ranking dimension.
type Category string

const (
	CategorySurplus Category = "surplus"
	CategoryPeakCut Category = "peak_cut"
)

// MaxRecentTrades caps the trade ledger. Older trades beyond the cap are
// dropped silently on create; the history is lossy by design.
const MaxRecentTrades = 100

// MaxLeaderboardEntries is the number of entries kept per category.
const MaxLeaderboardEntries = 3

// MarketSnapshot is the root aggregate and the only persisted entity.
// Callers always read the whole document, mutate an in-memory copy, and
// write it back whole.
type MarketSnapshot struct {
	Communities    []Community           `json:"communities"`
	Leaderboards   map[Category][]Rating `json:"leaderboards"`
	RecentTrades   []Trade               `json:"recentTrades"`
	RewardsPool    RewardsPool           `json:"rewardsPool"`
	UserMembership Membership            `json:"userMembership"`
}

// Community is a group of households trading energy with each other.
// Members are owned by the community and destroyed with it.
type Community struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Households  int    `json:"households"`
	Description string `json:"description"`
	InvitesOpen bool   `json:"invitesOpen"`

	// Telemetry, in kW at one-decimal precision by convention.
	TotalGeneration  float64 `json:"totalGeneration"`
	TotalConsumption float64 `json:"totalConsumption"`
	NetFlow          float64 `json:"netFlow"`

	Members []Member `json:"members"`
}

// Member is a household participating in a community. A member belongs to
// exactly one community at a time; ids are unique within a snapshot.
type Member struct {
	ID        string   `json:"id"`
	Household string   `json:"household"`
	Tier      Tier     `json:"tier"`
	Badges    []string `json:"badges"`

	SurplusKwh     float64 `json:"surplusKwh"`
	PeakCutPercent float64 `json:"peakCutPercent"` // Clamped to [0, 50]
	Credits        float64 `json:"credits"`
}

// Trade is one entry in the peer-to-peer trade ledger.
type Trade struct {
	ID          string      `json:"id"`
	BuyerID     string      `json:"buyerId"`
	SellerID    string      `json:"sellerId"`
	AmountKwh   float64     `json:"amountKwh"`
	PricePerKwh float64     `json:"pricePerKwh"`
	CreditValue float64     `json:"creditValue"`
	Status      TradeStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	ExecutedAt  *time.Time  `json:"executedAt,omitempty"`
	CancelledAt *time.Time  `json:"cancelledAt,omitempty"`
}

// Rating is one leaderboard row. Within a category, ratings are sorted
// descending by Value and truncated to the top MaxLeaderboardEntries.
type Rating struct {
	MemberID  string  `json:"memberId"`
	Household string  `json:"household"`
	Value     float64 `json:"value"`
	Change    float64 `json:"change"` // Delta vs. prior observation
	Tier      Tier    `json:"tier"`
}

// RewardsPool is a read-only passthrough; this core never mutates it.
type RewardsPool struct {
	TotalCredits float64   `json:"totalCredits"`
	NextPayout   time.Time `json:"nextPayout"`
}

// Membership points at the requesting member's community.
type Membership struct {
	CommunityID    string `json:"communityId"`
	PendingInvites int    `json:"pendingInvites"`
}

// MarketStats is the derived market overview.
type MarketStats struct {
	CurrentPrice float64        `json:"currentPrice"`
	PriceChange  float64        `json:"priceChange"` // Cosmetic jitter, not derived from history
	Volume24h    float64        `json:"volume24h"`
	TopBuyers    []TraderVolume `json:"topBuyers"`
	TopSellers   []TraderVolume `json:"topSellers"`
}

// TraderVolume is a per-member settled-volume sum.
type TraderVolume struct {
	MemberID  string  `json:"memberId"`
	Household string  `json:"household"`
	AmountKwh float64 `json:"amountKwh"`
}

// Portfolio is a member-scoped roll-up of the trade ledger.
type Portfolio struct {
	MemberID      string  `json:"memberId"`
	BoughtEnergy  float64 `json:"boughtEnergy"`
	SoldEnergy    float64 `json:"soldEnergy"`
	NetEnergy     float64 `json:"netEnergy"`
	PendingTrades int     `json:"pendingTrades"`
	TotalSpent    float64 `json:"totalSpent"`
	TotalEarned   float64 `json:"totalEarned"`
	NetProfit     float64 `json:"netProfit"`
	AveragePrice  float64 `json:"averagePrice"`
}

// FindTrade returns a pointer into RecentTrades for the given id, or nil.
func (s *MarketSnapshot) FindTrade(id string) *Trade {
	for i := range s.RecentTrades {
		if s.RecentTrades[i].ID == id {
			return &s.RecentTrades[i]
		}
	}
	return nil
}

// FindMember returns the member with the given id and its community, or
// (nil, nil) when absent.
func (s *MarketSnapshot) FindMember(id string) (*Member, *Community) {
	for c := range s.Communities {
		community := &s.Communities[c]
		for m := range community.Members {
			if community.Members[m].ID == id {
				return &community.Members[m], community
			}
		}
	}
	return nil, nil
}

// CommunityMemberIDs returns the set of member ids belonging to the given
// community, for ledger filtering.
func (s *MarketSnapshot) CommunityMemberIDs(communityID string) map[string]bool {
	ids := make(map[string]bool)
	for c := range s.Communities {
		if s.Communities[c].ID != communityID {
			continue
		}
		for _, m := range s.Communities[c].Members {
			ids[m.ID] = true
		}
	}
	return ids
}
