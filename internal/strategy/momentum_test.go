package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

func newStrategy(t *testing.T, cfg config.StrategyConfig) *DualMomentum {
	t.Helper()
	return New(cfg, logger.NewNop())
}

func TestScore(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 2, USTopN: 4, KRSplit: 0.4, USSplit: 0.6})

	assert.InDelta(t, 0.10, s.Score(110, 100), 1e-9)
	assert.InDelta(t, -0.25, s.Score(75, 100), 1e-9)
	assert.InDelta(t, 0.0, s.Score(100, 100), 1e-9)
	// zero lookback scores 0, does not divide
	assert.Equal(t, 0.0, s.Score(100, 0))
}

func TestSelectTargets_FullUniverse(t *testing.T) {
	// 2 KR + 4 US symbols, everyone selected: KR 0.20 each, US 0.15 each
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 2, USTopN: 4, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"005930": {Current: 120, Lookback: 100},
		"000660": {Current: 110, Lookback: 100},
		"AAPL":   {Current: 130, Lookback: 100},
		"MSFT":   {Current: 125, Lookback: 100},
		"GOOG":   {Current: 115, Lookback: 100},
		"AMZN":   {Current: 105, Lookback: 100},
	}

	items := s.SelectTargets(
		[]string{"005930", "000660"},
		[]string{"AAPL", "MSFT", "GOOG", "AMZN"},
		prices,
		map[string]float64{},
	)

	require.Len(t, items, 6)

	totalWeight := 0.0
	for _, item := range items {
		totalWeight += item.TargetWeight
		switch item.Market {
		case contracts.MarketKR:
			assert.InDelta(t, 0.20, item.TargetWeight, 1e-9, "KR weight for %s", item.Symbol)
		case contracts.MarketUS:
			assert.InDelta(t, 0.15, item.TargetWeight, 1e-9, "US weight for %s", item.Symbol)
		}
	}
	assert.InDelta(t, 1.0, totalWeight, 1e-9)
}

func TestSelectTargets_TopNRanking(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 1, USTopN: 2, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"005930": {Current: 90, Lookback: 100},  // -10%
		"000660": {Current: 150, Lookback: 100}, // +50%, KR winner
		"AAPL":   {Current: 130, Lookback: 100}, // +30%
		"MSFT":   {Current: 101, Lookback: 100}, // +1%, cut
		"GOOG":   {Current: 120, Lookback: 100}, // +20%
	}

	items := s.SelectTargets(
		[]string{"005930", "000660"},
		[]string{"AAPL", "MSFT", "GOOG"},
		prices,
		map[string]float64{},
	)

	require.Len(t, items, 3)
	assert.Equal(t, "000660", items[0].Symbol)
	assert.InDelta(t, 0.4, items[0].TargetWeight, 1e-9)
	assert.Equal(t, "AAPL", items[1].Symbol)
	assert.Equal(t, "GOOG", items[2].Symbol)
	assert.InDelta(t, 0.3, items[1].TargetWeight, 1e-9)
}

func TestSelectTargets_MissingPriceSkipsSilently(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 2, USTopN: 2, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"005930": {Current: 110, Lookback: 100},
		// 000660 has no price data at all
		"AAPL": {Current: 120, Lookback: 100},
	}

	items := s.SelectTargets(
		[]string{"005930", "000660"},
		[]string{"AAPL"},
		prices,
		map[string]float64{},
	)

	require.Len(t, items, 2)
	// KR bucket still carries its full split over the one selected symbol
	assert.Equal(t, "005930", items[0].Symbol)
	assert.InDelta(t, 0.4, items[0].TargetWeight, 1e-9)
	assert.InDelta(t, 0.6, items[1].TargetWeight, 1e-9)
}

func TestSelectTargets_EmptyMarketBucketSkipped(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 2, USTopN: 2, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"AAPL": {Current: 120, Lookback: 100},
	}

	items := s.SelectTargets(nil, []string{"AAPL"}, prices, map[string]float64{})

	require.Len(t, items, 1)
	assert.Equal(t, contracts.MarketUS, items[0].Market)
	assert.InDelta(t, 0.6, items[0].TargetWeight, 1e-9)
}

func TestSelectTargets_DeltaFromCurrentWeights(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 1, USTopN: 1, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"005930": {Current: 110, Lookback: 100},
		"AAPL":   {Current: 120, Lookback: 100},
	}
	current := map[string]float64{
		"005930": 0.55, // overweight, must come out negative
	}

	items := s.SelectTargets([]string{"005930"}, []string{"AAPL"}, prices, current)
	require.Len(t, items, 2)

	for _, item := range items {
		assert.Equal(t, item.TargetWeight-item.CurrentWeight, item.DeltaWeight, "delta invariant for %s", item.Symbol)
	}
	assert.InDelta(t, -0.15, items[0].DeltaWeight, 1e-9)
	assert.InDelta(t, 0.6, items[1].DeltaWeight, 1e-9) // not held → current 0
}

func TestSelectTargets_TieKeepsInputOrder(t *testing.T) {
	s := newStrategy(t, config.StrategyConfig{LookbackMonths: 3, KRTopM: 1, USTopN: 2, KRSplit: 0.4, USSplit: 0.6})

	prices := map[string]contracts.PricePair{
		"AAPL": {Current: 110, Lookback: 100},
		"MSFT": {Current: 110, Lookback: 100},
		"GOOG": {Current: 110, Lookback: 100},
	}

	items := s.SelectTargets(nil, []string{"AAPL", "MSFT", "GOOG"}, prices, map[string]float64{})

	require.Len(t, items, 2)
	assert.Equal(t, "AAPL", items[0].Symbol)
	assert.Equal(t, "MSFT", items[1].Symbol)
}
