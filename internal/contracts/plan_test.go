package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummary(t *testing.T) {
	items := []PlanItem{
		{Symbol: "005930", Market: MarketKR, CurrentWeight: 0.10, TargetWeight: 0.20, DeltaWeight: 0.10},
		{Symbol: "000660", Market: MarketKR, CurrentWeight: 0.25, TargetWeight: 0.20, DeltaWeight: -0.05},
		{Symbol: "AAPL", Market: MarketUS, CurrentWeight: 0.00, TargetWeight: 0.15, DeltaWeight: 0.15},
		{Symbol: "MSFT", Market: MarketUS, CurrentWeight: 0.14, TargetWeight: 0.15, DeltaWeight: 0.01},
	}

	summary := BuildSummary(items, false, []string{"positions: too many"})

	assert.InDelta(t, 0.40, summary.KRTargetWeight, 1e-9)
	assert.InDelta(t, 0.30, summary.USTargetWeight, 1e-9)
	assert.InDelta(t, 0.05, summary.KRWeightShift, 1e-9)
	assert.InDelta(t, 0.16, summary.USWeightShift, 1e-9)
	assert.False(t, summary.ConstraintsPassed)
	assert.Equal(t, []string{"positions: too many"}, summary.ConstraintErrors)

	// Top changes ordered by |delta| descending
	assert.Equal(t, "AAPL", summary.TopChanges[0].Symbol)
	assert.Equal(t, "005930", summary.TopChanges[1].Symbol)
	assert.Equal(t, "000660", summary.TopChanges[2].Symbol)
	assert.Equal(t, "MSFT", summary.TopChanges[3].Symbol)
}

func TestBuildSummary_TopChangesCapped(t *testing.T) {
	items := make([]PlanItem, 8)
	for i := range items {
		items[i] = PlanItem{
			Symbol:      string(rune('A' + i)),
			Market:      MarketUS,
			DeltaWeight: float64(i) * 0.01,
		}
	}

	summary := BuildSummary(items, true, nil)
	assert.Len(t, summary.TopChanges, 5)
	assert.Equal(t, "H", summary.TopChanges[0].Symbol)
}

func TestPlanItem_DeltaInvariant(t *testing.T) {
	// delta must equal target - current exactly, not re-rounded
	item := PlanItem{CurrentWeight: 0.1, TargetWeight: 0.3}
	item.DeltaWeight = item.TargetWeight - item.CurrentWeight
	assert.Equal(t, item.TargetWeight-item.CurrentWeight, item.DeltaWeight)
}

func TestPortfolioSnapshot_CurrentWeights(t *testing.T) {
	snap := &PortfolioSnapshot{
		Positions: map[string]float64{
			"005930": 100,
			"AAPL":   10,
			"GHOST":  5, // no price available
		},
		Cash: 20_000,
		NAV:  100_000,
	}

	prices := map[string]float64{
		"005930": 500,  // 100 * 500 = 50,000 → 0.5
		"AAPL":   3000, // 10 * 3000 = 30,000 → 0.3
	}

	weights := snap.CurrentWeights(prices)
	assert.InDelta(t, 0.5, weights["005930"], 1e-9)
	assert.InDelta(t, 0.3, weights["AAPL"], 1e-9)
	assert.NotContains(t, weights, "GHOST")
}

func TestPortfolioSnapshot_CurrentWeights_ZeroNAV(t *testing.T) {
	snap := &PortfolioSnapshot{
		Positions: map[string]float64{"AAPL": 10},
		NAV:       0,
	}
	weights := snap.CurrentWeights(map[string]float64{"AAPL": 100})
	assert.Empty(t, weights)
}
