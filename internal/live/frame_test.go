package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmate/gridmate/internal/market"
)

func TestBuildFrame_AggregatesCommunities(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	snapshot := market.Baseline(now)

	frame := BuildFrame(snapshot, now)

	assert.True(t, frame.Timestamp.Equal(now))
	require.Len(t, frame.Assets, 3)

	var gen, cons, net float64
	for _, c := range snapshot.Communities {
		gen += c.TotalGeneration
		cons += c.TotalConsumption
		net += c.NetFlow
	}
	assert.InDelta(t, gen, frame.TotalGenerationKw, 1e-9)
	assert.InDelta(t, cons, frame.TotalConsumptionKw, 1e-9)
	assert.InDelta(t, net, frame.NetFlowKw, 1e-9)

	assert.Equal(t, "com-sunnyvale", frame.Assets[0].CommunityID)
	assert.Equal(t, "Sunnyvale Collective", frame.Assets[0].Name)
	assert.Equal(t, 42, frame.Assets[0].Households)
	assert.Equal(t, snapshot.Communities[0].NetFlow, frame.Assets[0].NetFlowKw)
}

func TestBuildFrame_EmptySnapshot(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	frame := BuildFrame(&market.MarketSnapshot{}, now)

	assert.Empty(t, frame.Assets)
	assert.Equal(t, 0.0, frame.TotalGenerationKw)
}
