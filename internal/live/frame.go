// Package live streams the drift-applied energy-asset overview to
// dashboard clients, over websocket and plain JSON.
package live

import (
	"time"

	"github.com/gridmate/gridmate/internal/market"
)

// Frame is one telemetry observation sent to dashboard clients.
type Frame struct {
	Timestamp          time.Time      `json:"timestamp"`
	TotalGenerationKw  float64        `json:"totalGenerationKw"`
	TotalConsumptionKw float64        `json:"totalConsumptionKw"`
	NetFlowKw          float64        `json:"netFlowKw"`
	Assets             []AssetReading `json:"assets"`
}

// AssetReading is one community's aggregate reading within a frame.
type AssetReading struct {
	CommunityID   string  `json:"communityId"`
	Name          string  `json:"name"`
	Households    int     `json:"households"`
	GenerationKw  float64 `json:"generationKw"`
	ConsumptionKw float64 `json:"consumptionKw"`
	NetFlowKw     float64 `json:"netFlowKw"`
}

// BuildFrame derives a telemetry frame from a market snapshot.
func BuildFrame(snapshot *market.MarketSnapshot, now time.Time) Frame {
	frame := Frame{
		Timestamp: now,
		Assets:    make([]AssetReading, 0, len(snapshot.Communities)),
	}

	for _, c := range snapshot.Communities {
		frame.TotalGenerationKw += c.TotalGeneration
		frame.TotalConsumptionKw += c.TotalConsumption
		frame.NetFlowKw += c.NetFlow
		frame.Assets = append(frame.Assets, AssetReading{
			CommunityID:   c.ID,
			Name:          c.Name,
			Households:    c.Households,
			GenerationKw:  c.TotalGeneration,
			ConsumptionKw: c.TotalConsumption,
			NetFlowKw:     c.NetFlow,
		})
	}

	return frame
}
