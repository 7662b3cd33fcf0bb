package broker

import (
	"context"
	"crypto/md5"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// PaperBroker is a deterministic stub broker. Prices derive from a
// seeded hash of the symbol so every run with the same seed sees the
// same market. Orders acknowledge immediately without routing anywhere.
type PaperBroker struct {
	seed   int64
	logger *logger.Logger

	mu     sync.Mutex
	orders []PlacedOrder
	fills  map[string][]contracts.Fill
}

// NewPaperBroker creates a paper broker with the given price seed
func NewPaperBroker(seed int64, log *logger.Logger) *PaperBroker {
	return &PaperBroker{
		seed:   seed,
		logger: log,
		fills:  make(map[string][]contracts.Fill),
	}
}

// hashPrice maps (symbol, seed, tag) to a deterministic price in
// [low, low+span). 같은 시드면 항상 같은 가격.
func (b *PaperBroker) hashPrice(symbol, tag string, low, span float64) float64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", symbol, b.seed, tag)))
	n := new(big.Int).SetBytes(sum[:])
	normalized := float64(new(big.Int).Mod(n, big.NewInt(1_000_000)).Int64()) / 1_000_000.0
	price := low + normalized*span
	// Round to cents
	return float64(int64(price*100+0.5)) / 100
}

// CurrentPrice returns the deterministic current price for a symbol
func (b *PaperBroker) CurrentPrice(symbol string) float64 {
	return b.hashPrice(symbol, "current", 10.0, 490.0)
}

// LookbackPrice returns the deterministic lookback price for a symbol.
// Slightly wider range than current so momentum scores spread out.
func (b *PaperBroker) LookbackPrice(symbol string, months int) float64 {
	return b.hashPrice(symbol, fmt.Sprintf("lookback_%d", months), 8.0, 542.0)
}

// GetQuotes returns deterministic quotes for the symbols
func (b *PaperBroker) GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error) {
	quotes := make([]contracts.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		quotes = append(quotes, contracts.Quote{
			Symbol: symbol,
			Price:  b.CurrentPrice(symbol),
			Market: marketOf(symbol),
		})
	}
	return quotes, nil
}

// GetPricePairs returns deterministic (current, lookback) pairs
func (b *PaperBroker) GetPricePairs(ctx context.Context, symbols []string, lookbackMonths int) (map[string]contracts.PricePair, error) {
	pairs := make(map[string]contracts.PricePair, len(symbols))
	for _, symbol := range symbols {
		pairs[symbol] = contracts.PricePair{
			Current:  b.CurrentPrice(symbol),
			Lookback: b.LookbackPrice(symbol, lookbackMonths),
		}
	}
	return pairs, nil
}

// GetBalance returns an empty paper balance. The engine sizes orders
// from the portfolio snapshot, not from here.
func (b *PaperBroker) GetBalance(ctx context.Context) (*Balance, error) {
	return &Balance{
		Cash:      0,
		Positions: map[string]float64{},
	}, nil
}

// PlaceOrder acknowledges the order as filled without routing it
func (b *PaperBroker) PlaceOrder(ctx context.Context, order *contracts.Order) (*PlacedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	placed := PlacedOrder{
		BrokerOrderID: fmt.Sprintf("PAPER_%s", order.ID),
		Status:        contracts.OrderFilled,
		Message:       "paper fill",
	}
	b.orders = append(b.orders, placed)
	b.fills[placed.BrokerOrderID] = []contracts.Fill{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		FilledQty:   order.Qty,
		FilledPrice: order.LimitPrice,
	}}

	return &placed, nil
}

// GetOrders returns all paper order acknowledgments
func (b *PaperBroker) GetOrders(ctx context.Context) ([]PlacedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]PlacedOrder, len(b.orders))
	copy(out, b.orders)
	return out, nil
}

// GetFills returns paper fills for a broker order
func (b *PaperBroker) GetFills(ctx context.Context, brokerOrderID string) ([]contracts.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fills, ok := b.fills[brokerOrderID]
	if !ok {
		return nil, nil
	}
	out := make([]contracts.Fill, len(fills))
	copy(out, fills)
	return out, nil
}

// CancelOrder is a no-op for paper orders (they fill instantly)
func (b *PaperBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return fmt.Errorf("paper order %s already filled, cannot cancel", brokerOrderID)
}
