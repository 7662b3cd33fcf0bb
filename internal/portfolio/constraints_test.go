package portfolio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
)

func newChecker() *Checker {
	return NewChecker(
		config.ConstraintsConfig{
			MaxPositions:     20,
			MaxWeightPerName: 0.30,
			SplitTolerance:   0.01,
		},
		config.StrategyConfig{KRSplit: 0.4, USSplit: 0.6},
	)
}

func itemsWithPrices(n int) ([]contracts.PlanItem, map[string]float64) {
	items := make([]contracts.PlanItem, n)
	prices := make(map[string]float64, n)
	for i := range items {
		symbol := fmt.Sprintf("SYM%02d", i)
		market := contracts.MarketUS
		weight := 0.6 / float64((n+1)/2)
		if i%2 == 0 {
			market = contracts.MarketKR
			weight = 0.4 / float64(n/2+n%2)
		}
		items[i] = contracts.PlanItem{Symbol: symbol, Market: market, TargetWeight: weight}
		prices[symbol] = 100.0
	}
	return items, prices
}

func TestCheckPositions(t *testing.T) {
	c := newChecker()

	items, _ := itemsWithPrices(20)
	passed, msg := c.CheckPositions(items)
	assert.True(t, passed)
	assert.Empty(t, msg)

	items, _ = itemsWithPrices(25)
	passed, msg = c.CheckPositions(items)
	assert.False(t, passed)
	assert.Contains(t, msg, "25")
	assert.Contains(t, msg, "20")
}

func TestCheckWeightPerName(t *testing.T) {
	c := newChecker()

	items := []contracts.PlanItem{
		{Symbol: "AAPL", Market: contracts.MarketUS, TargetWeight: 0.15},
		{Symbol: "MSFT", Market: contracts.MarketUS, TargetWeight: 0.45},
	}

	passed, msg := c.CheckWeightPerName(items)
	assert.False(t, passed)
	assert.Contains(t, msg, "MSFT")
	assert.NotContains(t, msg, "AAPL")
}

func TestCheckMarketSplit(t *testing.T) {
	c := newChecker()

	tests := []struct {
		name   string
		items  []contracts.PlanItem
		passed bool
	}{
		{
			name: "exact split",
			items: []contracts.PlanItem{
				{Symbol: "005930", Market: contracts.MarketKR, TargetWeight: 0.4},
				{Symbol: "AAPL", Market: contracts.MarketUS, TargetWeight: 0.6},
			},
			passed: true,
		},
		{
			// ratio judged over present total (0.2+0.3), not over 1.0
			name: "partially selected plan keeps ratio",
			items: []contracts.PlanItem{
				{Symbol: "005930", Market: contracts.MarketKR, TargetWeight: 0.2},
				{Symbol: "AAPL", Market: contracts.MarketUS, TargetWeight: 0.3},
			},
			passed: true,
		},
		{
			name: "skewed split",
			items: []contracts.PlanItem{
				{Symbol: "005930", Market: contracts.MarketKR, TargetWeight: 0.6},
				{Symbol: "AAPL", Market: contracts.MarketUS, TargetWeight: 0.4},
			},
			passed: false,
		},
		{
			name:   "empty plan passes",
			items:  nil,
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, _ := c.CheckMarketSplit(tt.items)
			assert.Equal(t, tt.passed, passed)
		})
	}
}

func TestCheckDataQuality(t *testing.T) {
	c := newChecker()

	items := []contracts.PlanItem{
		{Symbol: "AAPL", Market: contracts.MarketUS},
		{Symbol: "MSFT", Market: contracts.MarketUS},
		{Symbol: "GOOG", Market: contracts.MarketUS},
		{Symbol: "AMZN", Market: contracts.MarketUS},
	}
	prices := map[string]float64{
		"AAPL": 180.0,
		"MSFT": 0,
		"GOOG": -5,
		// AMZN missing entirely
	}

	passed, msg := c.CheckDataQuality(items, prices)
	assert.False(t, passed)
	assert.Contains(t, msg, "MSFT: missing or zero price")
	assert.Contains(t, msg, "GOOG: negative price")
	assert.Contains(t, msg, "AMZN: missing or zero price")
	assert.NotContains(t, msg, "AAPL")
}

func TestCheckAll_NoShortCircuit(t *testing.T) {
	c := newChecker()

	// 25 items breaks positions; one of them also breaks weight cap
	items, prices := itemsWithPrices(25)
	items[0].TargetWeight = 0.5
	delete(prices, items[1].Symbol)

	passed, errors := c.CheckAll(items, prices)
	require.False(t, passed)

	// All failing checks reported, namespaced
	joined := fmt.Sprint(errors)
	assert.Contains(t, joined, "positions:")
	assert.Contains(t, joined, "weight_per_name:")
	assert.Contains(t, joined, "data_quality:")
}

func TestCheckAll_Pass(t *testing.T) {
	c := newChecker()

	items := []contracts.PlanItem{
		{Symbol: "005930", Market: contracts.MarketKR, TargetWeight: 0.20},
		{Symbol: "000660", Market: contracts.MarketKR, TargetWeight: 0.20},
		{Symbol: "AAPL", Market: contracts.MarketUS, TargetWeight: 0.15},
		{Symbol: "MSFT", Market: contracts.MarketUS, TargetWeight: 0.15},
		{Symbol: "GOOG", Market: contracts.MarketUS, TargetWeight: 0.15},
		{Symbol: "AMZN", Market: contracts.MarketUS, TargetWeight: 0.15},
	}
	prices := map[string]float64{
		"005930": 70000, "000660": 130000,
		"AAPL": 180, "MSFT": 400, "GOOG": 150, "AMZN": 170,
	}

	passed, errors := c.CheckAll(items, prices)
	assert.True(t, passed)
	assert.Empty(t, errors)
}
