package broker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

func TestPaperBrokerDeterministicPricing(t *testing.T) {
	a := NewPaperBroker(42, logger.NewNop())
	b := NewPaperBroker(42, logger.NewNop())

	for _, symbol := range []string{"005930", "AAPL", "SPY"} {
		assert.Equal(t, a.CurrentPrice(symbol), b.CurrentPrice(symbol), "same seed must give same price for %s", symbol)
		assert.Equal(t, a.LookbackPrice(symbol, 3), b.LookbackPrice(symbol, 3))
	}
}

func TestPaperBrokerSeedChangesPrices(t *testing.T) {
	a := NewPaperBroker(42, logger.NewNop())
	b := NewPaperBroker(43, logger.NewNop())

	// 시드가 다르면 전 종목이 같을 수 없음
	same := 0
	symbols := []string{"005930", "000660", "AAPL", "MSFT", "SPY"}
	for _, symbol := range symbols {
		if a.CurrentPrice(symbol) == b.CurrentPrice(symbol) {
			same++
		}
	}
	assert.Less(t, same, len(symbols))
}

func TestPaperBrokerPriceRanges(t *testing.T) {
	b := NewPaperBroker(7, logger.NewNop())

	for _, symbol := range []string{"005930", "AAPL", "QQQ", "069500"} {
		current := b.CurrentPrice(symbol)
		assert.GreaterOrEqual(t, current, 10.0)
		assert.LessOrEqual(t, current, 500.0)

		lookback := b.LookbackPrice(symbol, 3)
		assert.GreaterOrEqual(t, lookback, 8.0)
		assert.LessOrEqual(t, lookback, 550.0)
	}
}

func TestPaperBrokerGetQuotes(t *testing.T) {
	b := NewPaperBroker(1, logger.NewNop())

	quotes, err := b.GetQuotes(context.Background(), []string{"005930", "AAPL"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "005930", quotes[0].Symbol)
	assert.Equal(t, contracts.MarketKR, quotes[0].Market)
	assert.Equal(t, b.CurrentPrice("005930"), quotes[0].Price)

	assert.Equal(t, "AAPL", quotes[1].Symbol)
	assert.Equal(t, contracts.MarketUS, quotes[1].Market)
}

func TestPaperBrokerGetPricePairs(t *testing.T) {
	b := NewPaperBroker(1, logger.NewNop())

	pairs, err := b.GetPricePairs(context.Background(), []string{"005930", "SPY"}, 3)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	pair := pairs["005930"]
	assert.Equal(t, b.CurrentPrice("005930"), pair.Current)
	assert.Equal(t, b.LookbackPrice("005930", 3), pair.Lookback)
	assert.Positive(t, pair.Lookback)
}

func TestPaperBrokerPlaceOrderFillsInstantly(t *testing.T) {
	b := NewPaperBroker(1, logger.NewNop())
	ctx := context.Background()

	order := &contracts.Order{
		ID:         uuid.New(),
		Symbol:     "AAPL",
		Side:       contracts.OrderSideBuy,
		Qty:        10,
		LimitPrice: 150.0,
	}

	placed, err := b.PlaceOrder(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, contracts.OrderFilled, placed.Status)
	assert.NotEmpty(t, placed.BrokerOrderID)

	fills, err := b.GetFills(ctx, placed.BrokerOrderID)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, 10.0, fills[0].FilledQty)
	assert.Equal(t, 150.0, fills[0].FilledPrice)
}

func TestPaperBrokerCancelFilledOrder(t *testing.T) {
	b := NewPaperBroker(1, logger.NewNop())
	ctx := context.Background()

	placed, err := b.PlaceOrder(ctx, &contracts.Order{
		ID: uuid.New(), Symbol: "SPY", Side: contracts.OrderSideSell, Qty: 5, LimitPrice: 400,
	})
	require.NoError(t, err)

	err = b.CancelOrder(ctx, placed.BrokerOrderID)
	assert.Error(t, err, "paper orders fill instantly and cannot be canceled")
}

func TestMarketOf(t *testing.T) {
	assert.Equal(t, contracts.MarketKR, marketOf("005930"))
	assert.Equal(t, contracts.MarketKR, marketOf("069500"))
	assert.Equal(t, contracts.MarketUS, marketOf("AAPL"))
	assert.Equal(t, contracts.MarketUS, marketOf("BRK.B"))
}
