package execution

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

func item(symbol string, market contracts.Market, delta float64) contracts.PlanItem {
	return contracts.PlanItem{Symbol: symbol, Market: market, DeltaWeight: delta}
}

func TestBuildOrdersSellsBeforeBuys(t *testing.T) {
	b := NewOrderBuilder()
	planID := uuid.New()

	items := []contracts.PlanItem{
		item("AAPL", contracts.MarketUS, 0.10),
		item("005930", contracts.MarketKR, -0.05),
		item("MSFT", contracts.MarketUS, 0.08),
		item("000660", contracts.MarketKR, -0.03),
	}
	prices := map[string]float64{"AAPL": 150, "005930": 70, "MSFT": 300, "000660": 120}

	orders := b.BuildOrders(planID, items, prices, 100000, 100000)
	require.Len(t, orders, 4)

	seenBuy := false
	for _, o := range orders {
		if o.Side == contracts.OrderSideBuy {
			seenBuy = true
		}
		if o.Side == contracts.OrderSideSell {
			assert.False(t, seenBuy, "sell order %s appeared after a buy", o.Symbol)
		}
		assert.Equal(t, planID, o.PlanID)
		assert.Equal(t, contracts.OrderTypeLimit, o.OrderType)
	}
	assert.True(t, seenBuy)
}

func TestBuildOrdersSellQuantity(t *testing.T) {
	b := NewOrderBuilder()

	orders := b.BuildOrders(uuid.New(),
		[]contracts.PlanItem{item("005930", contracts.MarketKR, -0.10)},
		map[string]float64{"005930": 50},
		0, 100000)

	require.Len(t, orders, 1)
	// |Δw| * NAV / price = 0.10 * 100000 / 50
	assert.InDelta(t, 200.0, orders[0].Qty, 1e-9)
	assert.Equal(t, contracts.OrderSideSell, orders[0].Side)
	assert.Equal(t, contracts.OrderCreated, orders[0].Status)
	assert.Equal(t, 50.0, orders[0].LimitPrice)
}

func TestBuildOrdersSellsUnconditionalWithZeroCash(t *testing.T) {
	b := NewOrderBuilder()

	orders := b.BuildOrders(uuid.New(),
		[]contracts.PlanItem{
			item("AAPL", contracts.MarketUS, -0.05),
			item("MSFT", contracts.MarketUS, 0.05),
		},
		map[string]float64{"AAPL": 100, "MSFT": 100},
		0, 100000)

	require.Len(t, orders, 2)
	assert.Equal(t, contracts.OrderCreated, orders[0].Status, "sell never rationed")
	assert.Equal(t, contracts.OrderSkipped, orders[1].Status, "buy rationed against zero cash")
}

func TestBuildOrdersCashRationing(t *testing.T) {
	b := NewOrderBuilder()

	// NAV 100000, 현금 10000: 비용 7000 / 6000 / 2000
	items := []contracts.PlanItem{
		item("SMALL", contracts.MarketUS, 0.02),
		item("BIG", contracts.MarketUS, 0.07),
		item("MID", contracts.MarketUS, 0.06),
	}
	prices := map[string]float64{"SMALL": 10, "BIG": 10, "MID": 10}

	orders := b.BuildOrders(uuid.New(), items, prices, 10000, 100000)
	require.Len(t, orders, 3)

	// 비용 내림차순: BIG(7000) 승인, MID(6000) 잔액 3000이라 스킵, SMALL(2000) 승인
	assert.Equal(t, "BIG", orders[0].Symbol)
	assert.Equal(t, contracts.OrderCreated, orders[0].Status)

	assert.Equal(t, "MID", orders[1].Symbol)
	assert.Equal(t, contracts.OrderSkipped, orders[1].Status)
	assert.Equal(t, "Insufficient cash: need 6000.00, have 3000.00", orders[1].Error)

	assert.Equal(t, "SMALL", orders[2].Symbol)
	assert.Equal(t, contracts.OrderCreated, orders[2].Status)
}

func TestBuildOrdersAdmittedCostNeverExceedsBudget(t *testing.T) {
	b := NewOrderBuilder()

	items := []contracts.PlanItem{
		item("A", contracts.MarketUS, 0.05),
		item("B", contracts.MarketUS, 0.04),
		item("C", contracts.MarketUS, 0.03),
	}
	prices := map[string]float64{"A": 10, "B": 10, "C": 10}
	cash := 8000.0

	orders := b.BuildOrders(uuid.New(), items, prices, cash, 100000)

	admitted := 0.0
	for _, o := range orders {
		if o.Side == contracts.OrderSideBuy && o.Status == contracts.OrderCreated {
			admitted += o.EstimatedCost
		}
	}
	assert.LessOrEqual(t, admitted, cash)
}

func TestBuildOrdersZeroDeltaProducesNoOrder(t *testing.T) {
	b := NewOrderBuilder()

	orders := b.BuildOrders(uuid.New(),
		[]contracts.PlanItem{item("AAPL", contracts.MarketUS, 0)},
		map[string]float64{"AAPL": 100},
		10000, 100000)

	assert.Empty(t, orders)
}

// Missing prices produce zero-quantity orders instead of errors.
// Intentionally preserved; downstream treats them as no-ops.
func TestBuildOrdersMissingPriceYieldsZeroQty(t *testing.T) {
	b := NewOrderBuilder()

	orders := b.BuildOrders(uuid.New(),
		[]contracts.PlanItem{
			item("NOPRICE", contracts.MarketUS, -0.05),
			item("ALSONONE", contracts.MarketUS, 0.05),
		},
		map[string]float64{},
		100000, 100000)

	require.Len(t, orders, 2)
	assert.Zero(t, orders[0].Qty)
	assert.Zero(t, orders[1].Qty)
}

func TestBuildOrdersEqualCostKeepsInputOrder(t *testing.T) {
	b := NewOrderBuilder()

	items := []contracts.PlanItem{
		item("FIRST", contracts.MarketUS, 0.05),
		item("SECOND", contracts.MarketUS, 0.05),
	}
	prices := map[string]float64{"FIRST": 10, "SECOND": 10}

	orders := b.BuildOrders(uuid.New(), items, prices, 100000, 100000)
	require.Len(t, orders, 2)
	assert.Equal(t, "FIRST", orders[0].Symbol)
	assert.Equal(t, "SECOND", orders[1].Symbol)
}
