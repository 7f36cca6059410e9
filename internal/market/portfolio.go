package market

// PortfolioFor folds the trade ledger into one member's net position.
// Energy and money sums cover settled trades only, split by role;
// PendingTrades counts pending trades in either role. AveragePrice is
// guarded against division by zero and reports 0 when the member has no
// settled buys.
//
// A memberID that matches no trade yields an all-zero portfolio rather
// than an error; an unknown member and an idle member are
// indistinguishable by design.
func PortfolioFor(snapshot *MarketSnapshot, memberID string) *Portfolio {
	p := &Portfolio{MemberID: memberID}

	for _, trade := range snapshot.RecentTrades {
		isBuyer := trade.BuyerID == memberID
		isSeller := trade.SellerID == memberID
		if !isBuyer && !isSeller {
			continue
		}

		if trade.Status == StatusPending {
			p.PendingTrades++
			continue
		}
		if trade.Status != StatusSettled {
			continue
		}

		value := trade.AmountKwh * trade.PricePerKwh
		if isBuyer {
			p.BoughtEnergy += trade.AmountKwh
			p.TotalSpent += value
		}
		if isSeller {
			p.SoldEnergy += trade.AmountKwh
			p.TotalEarned += value
		}
	}

	p.NetEnergy = p.SoldEnergy - p.BoughtEnergy
	p.NetProfit = p.TotalEarned - p.TotalSpent
	if p.BoughtEnergy > 0 {
		p.AveragePrice = p.TotalSpent / p.BoughtEnergy
	}

	return p
}
