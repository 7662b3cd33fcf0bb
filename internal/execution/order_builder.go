package execution

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// OrderBuilder converts plan item weight deltas into a SELL-then-BUY
// order sequence. Sells are unconditional; buys are rationed against
// the available cash budget, largest intended purchase first.
// ⭐ SSOT: 주문 생성 로직은 여기서만
type OrderBuilder struct{}

// NewOrderBuilder creates an order builder
func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{}
}

// BuildOrders builds orders from plan items. All SELL orders precede
// all BUY orders in the result; a buy whose cost exceeds the remaining
// budget is marked SKIPPED, never partially sized.
//
// A zero or missing price yields a zero-quantity order rather than an
// error; downstream treats those as no-ops.
func (b *OrderBuilder) BuildOrders(planID uuid.UUID, items []contracts.PlanItem, prices map[string]float64, cashAvailable, nav float64) []contracts.Order {
	sellOrders := make([]contracts.Order, 0)
	buyOrders := make([]contracts.Order, 0)

	for _, item := range items {
		if item.DeltaWeight == 0 {
			continue
		}

		price := prices[item.Symbol]

		if item.DeltaWeight < 0 {
			// 매도 주문 먼저 (자금 확보)
			qty := 0.0
			if price > 0 {
				qty = math.Abs(item.DeltaWeight) * nav / price
			}
			sellOrders = append(sellOrders, contracts.Order{
				ID:         uuid.New(),
				PlanID:     planID,
				Symbol:     item.Symbol,
				Market:     item.Market,
				Side:       contracts.OrderSideSell,
				Qty:        qty,
				OrderType:  contracts.OrderTypeLimit,
				LimitPrice: price,
				Status:     contracts.OrderCreated,
			})
			continue
		}

		cost := item.DeltaWeight * nav
		qty := 0.0
		if price > 0 {
			qty = cost / price
		}
		buyOrders = append(buyOrders, contracts.Order{
			ID:            uuid.New(),
			PlanID:        planID,
			Symbol:        item.Symbol,
			Market:        item.Market,
			Side:          contracts.OrderSideBuy,
			Qty:           qty,
			OrderType:     contracts.OrderTypeLimit,
			LimitPrice:    price,
			EstimatedCost: cost,
			Status:        contracts.OrderCreated,
		})
	}

	// 큰 매수 먼저 배정
	sort.SliceStable(buyOrders, func(i, j int) bool {
		return buyOrders[i].EstimatedCost > buyOrders[j].EstimatedCost
	})

	// Greedy cash rationing over the pre-sell budget. Sell proceeds
	// are not re-credited within the same pass.
	cashRemaining := cashAvailable
	for i := range buyOrders {
		cost := buyOrders[i].EstimatedCost
		if cost <= cashRemaining {
			cashRemaining -= cost
			continue
		}
		buyOrders[i].Status = contracts.OrderSkipped
		buyOrders[i].Error = fmt.Sprintf("Insufficient cash: need %.2f, have %.2f", cost, cashRemaining)
	}

	return append(sellOrders, buyOrders...)
}
