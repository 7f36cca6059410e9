package market

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertOneDecimal(t *testing.T, v float64, field string) {
	t.Helper()
	assert.InDelta(t, math.Round(v*10)/10, v, 1e-9, "%s not rounded to one decimal: %v", field, v)
}

func TestTick_TelemetryRoundedToOneDecimal(t *testing.T) {
	sim := NewSimulator(NewRand(42), fixedClock{testTime()}, zerolog.Nop())
	snapshot := Baseline(testTime())

	for i := 0; i < 10; i++ {
		sim.Tick(snapshot)
	}

	for _, c := range snapshot.Communities {
		assertOneDecimal(t, c.TotalGeneration, "totalGeneration")
		assertOneDecimal(t, c.TotalConsumption, "totalConsumption")
		assertOneDecimal(t, c.NetFlow, "netFlow")
		for _, m := range c.Members {
			assertOneDecimal(t, m.SurplusKwh, "surplusKwh")
			assertOneDecimal(t, m.PeakCutPercent, "peakCutPercent")
		}
	}
	for _, ratings := range snapshot.Leaderboards {
		for _, r := range ratings {
			assertOneDecimal(t, r.Value, "value")
			assertOneDecimal(t, r.Change, "change")
		}
	}
}

func TestTick_PeakCutClampedLow(t *testing.T) {
	// frac 0 draws the lowest delta every time, driving peakCut downward
	sim := NewSimulator(fracRand{0}, fixedClock{testTime()}, zerolog.Nop())
	snapshot := Baseline(testTime())

	for i := 0; i < 200; i++ {
		sim.Tick(snapshot)
	}

	for _, c := range snapshot.Communities {
		for _, m := range c.Members {
			assert.Equal(t, 0.0, m.PeakCutPercent)
		}
	}
}

func TestTick_PeakCutClampedHigh(t *testing.T) {
	sim := NewSimulator(fracRand{1}, fixedClock{testTime()}, zerolog.Nop())
	snapshot := Baseline(testTime())

	for i := 0; i < 200; i++ {
		sim.Tick(snapshot)
	}

	for _, c := range snapshot.Communities {
		for _, m := range c.Members {
			assert.Equal(t, 50.0, m.PeakCutPercent)
		}
	}
}

func TestTick_LeaderboardsSortedAndBounded(t *testing.T) {
	sim := NewSimulator(NewRand(7), fixedClock{testTime()}, zerolog.Nop())
	snapshot := Baseline(testTime())

	for i := 0; i < 25; i++ {
		sim.Tick(snapshot)
		for category, ratings := range snapshot.Leaderboards {
			assert.LessOrEqual(t, len(ratings), MaxLeaderboardEntries, "category %s", category)
			for j := 1; j < len(ratings); j++ {
				assert.GreaterOrEqual(t, ratings[j-1].Value, ratings[j].Value,
					"category %s not sorted descending", category)
			}
		}
	}
}

func TestTick_SettlesPendingTrade(t *testing.T) {
	now := testTime()
	created := now.Add(-2 * time.Hour)
	// frac 0 makes every settle draw land below the settle chance
	sim := NewSimulator(fracRand{0}, fixedClock{now}, zerolog.Nop())

	snapshot := Baseline(now)
	snapshot.RecentTrades = []Trade{{
		ID:          "trade-1",
		BuyerID:     "mem-beck",
		SellerID:    "mem-ortiz",
		AmountKwh:   10,
		PricePerKwh: 5.5,
		CreditValue: 55,
		Status:      StatusPending,
		Timestamp:   created,
	}}

	sim.Tick(snapshot)

	trade := snapshot.RecentTrades[0]
	assert.Equal(t, StatusSettled, trade.Status)
	require.NotNil(t, trade.ExecutedAt)
	assert.True(t, trade.ExecutedAt.Equal(now))
	// Timestamp refreshes so the settlement counts toward the 24h window
	assert.True(t, trade.Timestamp.Equal(now))
	// Economics stay untouched
	assert.Equal(t, 10.0, trade.AmountKwh)
	assert.Equal(t, 5.5, trade.PricePerKwh)
	assert.Equal(t, 55.0, trade.CreditValue)
}

func TestTick_LeavesPendingWhenDrawMisses(t *testing.T) {
	now := testTime()
	// frac 0.9 draws 0.9 on settle checks, above the settle chance
	sim := NewSimulator(fracRand{0.9}, fixedClock{now}, zerolog.Nop())

	snapshot := Baseline(now)
	snapshot.RecentTrades = []Trade{{
		ID:        "trade-1",
		BuyerID:   "mem-beck",
		SellerID:  "mem-ortiz",
		Status:    StatusPending,
		Timestamp: now.Add(-time.Hour),
	}}

	for i := 0; i < 20; i++ {
		sim.Tick(snapshot)
	}

	assert.Equal(t, StatusPending, snapshot.RecentTrades[0].Status)
	assert.Nil(t, snapshot.RecentTrades[0].ExecutedAt)
}

func TestTick_SkipsTerminalTrades(t *testing.T) {
	now := testTime()
	cancelledAt := now.Add(-time.Hour)
	sim := NewSimulator(fracRand{0}, fixedClock{now}, zerolog.Nop())

	snapshot := Baseline(now)
	snapshot.RecentTrades = []Trade{{
		ID:          "trade-1",
		Status:      StatusCancelled,
		Timestamp:   cancelledAt,
		CancelledAt: &cancelledAt,
	}}

	sim.Tick(snapshot)

	assert.Equal(t, StatusCancelled, snapshot.RecentTrades[0].Status)
	assert.True(t, snapshot.RecentTrades[0].Timestamp.Equal(cancelledAt))
	assert.Nil(t, snapshot.RecentTrades[0].ExecutedAt)
}
