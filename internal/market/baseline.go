package market

import "time"

// Baseline returns the canonical starting snapshot. It is installed the
// first time the store is read and again on every reset, discarding any
// accumulated trade history and telemetry drift.
func Baseline(now time.Time) *MarketSnapshot {
	return &MarketSnapshot{
		Communities: []Community{
			{
				ID:               "com-sunnyvale",
				Name:             "Sunnyvale Collective",
				Households:       42,
				Description:      "Rooftop solar co-op around Sunnyvale park",
				InvitesOpen:      true,
				TotalGeneration:  128.4,
				TotalConsumption: 96.2,
				NetFlow:          32.2,
				Members: []Member{
					{
						ID:             "mem-ortiz",
						Household:      "Ortiz family",
						Tier:           TierPlatinum,
						Badges:         []string{"early-adopter", "storage-hero"},
						SurplusKwh:     18.6,
						PeakCutPercent: 31.0,
						Credits:        1240,
					},
					{
						ID:             "mem-beck",
						Household:      "Beck residence",
						Tier:           TierGold,
						Badges:         []string{"solar-pioneer"},
						SurplusKwh:     12.1,
						PeakCutPercent: 24.5,
						Credits:        860,
					},
					{
						ID:             "mem-tanaka",
						Household:      "Tanaka household",
						Tier:           TierSilver,
						Badges:         []string{},
						SurplusKwh:     6.8,
						PeakCutPercent: 15.0,
						Credits:        430,
					},
				},
			},
			{
				ID:               "com-riverside",
				Name:             "Riverside Microgrid",
				Households:       27,
				Description:      "Riverside street battery-sharing pilot",
				InvitesOpen:      false,
				TotalGeneration:  74.9,
				TotalConsumption: 81.3,
				NetFlow:          -6.4,
				Members: []Member{
					{
						ID:             "mem-kline",
						Household:      "Kline farmhouse",
						Tier:           TierGold,
						Badges:         []string{"wind-backer"},
						SurplusKwh:     9.3,
						PeakCutPercent: 19.5,
						Credits:        705,
					},
					{
						ID:             "mem-ahmadi",
						Household:      "Ahmadi duplex",
						Tier:           TierBronze,
						Badges:         []string{},
						SurplusKwh:     2.4,
						PeakCutPercent: 8.0,
						Credits:        150,
					},
				},
			},
			{
				ID:               "com-hilltop",
				Name:             "Hilltop Exchange",
				Households:       63,
				Description:      "Mixed solar and heat-pump district",
				InvitesOpen:      true,
				TotalGeneration:  201.7,
				TotalConsumption: 188.0,
				NetFlow:          13.7,
				Members: []Member{
					{
						ID:             "mem-novak",
						Household:      "Novak terrace",
						Tier:           TierSilver,
						Badges:         []string{"peak-shaver"},
						SurplusKwh:     7.7,
						PeakCutPercent: 22.0,
						Credits:        510,
					},
					{
						ID:             "mem-osei",
						Household:      "Osei home",
						Tier:           TierGold,
						Badges:         []string{"community-founder"},
						SurplusKwh:     11.0,
						PeakCutPercent: 27.5,
						Credits:        930,
					},
				},
			},
		},
		Leaderboards: map[Category][]Rating{
			CategorySurplus: {
				{MemberID: "mem-ortiz", Household: "Ortiz family", Value: 18.6, Change: 0.4, Tier: TierPlatinum},
				{MemberID: "mem-beck", Household: "Beck residence", Value: 12.1, Change: -0.2, Tier: TierGold},
				{MemberID: "mem-osei", Household: "Osei home", Value: 11.0, Change: 0.1, Tier: TierGold},
			},
			CategoryPeakCut: {
				{MemberID: "mem-ortiz", Household: "Ortiz family", Value: 31.0, Change: 1.2, Tier: TierPlatinum},
				{MemberID: "mem-osei", Household: "Osei home", Value: 27.5, Change: 0.6, Tier: TierGold},
				{MemberID: "mem-beck", Household: "Beck residence", Value: 24.5, Change: -0.8, Tier: TierGold},
			},
		},
		RecentTrades: []Trade{},
		RewardsPool: RewardsPool{
			TotalCredits: 12500,
			NextPayout:   now.AddDate(0, 0, 7).Truncate(24 * time.Hour),
		},
		UserMembership: Membership{
			CommunityID:    "com-sunnyvale",
			PendingInvites: 2,
		},
	}
}
