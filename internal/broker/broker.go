package broker

import (
	"context"
	"fmt"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/httputil"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/redis"
)

// Balance is the account state reported by a broker
type Balance struct {
	Cash      float64            `json:"cash"`
	Positions map[string]float64 `json:"positions"` // symbol → qty
}

// PlacedOrder is the broker's acknowledgment of an order submission
type PlacedOrder struct {
	BrokerOrderID string                `json:"broker_order_id"`
	Status        contracts.OrderStatus `json:"status"`
	Message       string                `json:"message,omitempty"`
}

// Broker is the opaque quote/order-placement provider. Implementations
// are swappable by configuration (paper | live).
// ⭐ SSOT: 증권사 연동 인터페이스는 여기서만 정의
type Broker interface {
	// GetQuotes retrieves current prices for symbols
	GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error)

	// GetPricePairs retrieves (current, lookback) price pairs used for
	// momentum scoring
	GetPricePairs(ctx context.Context, symbols []string, lookbackMonths int) (map[string]contracts.PricePair, error)

	// GetBalance retrieves account balance
	GetBalance(ctx context.Context) (*Balance, error)

	// PlaceOrder submits an order to the broker
	PlaceOrder(ctx context.Context, order *contracts.Order) (*PlacedOrder, error)

	// GetOrders retrieves broker-side order acknowledgments
	GetOrders(ctx context.Context) ([]PlacedOrder, error)

	// GetFills retrieves fills for a broker order
	GetFills(ctx context.Context, brokerOrderID string) ([]contracts.Fill, error)

	// CancelOrder cancels an existing order
	CancelOrder(ctx context.Context, brokerOrderID string) error
}

// New selects a broker adapter by config.
// ⭐ SSOT: 브로커 선택은 여기서만 (BROKER_MODE)
func New(cfg *config.Config, guard *guards.Guard, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) (Broker, error) {
	switch cfg.Broker.Mode {
	case "paper":
		log.Info("Using paper broker adapter")
		return NewPaperBroker(cfg.Broker.StubPriceSeed, log), nil
	case "live":
		log.Info("Using KIS live broker adapter")
		return NewKISBroker(cfg.Broker.KIS, guard, httpClient, cache, log), nil
	default:
		return nil, fmt.Errorf("unknown broker mode: %s", cfg.Broker.Mode)
	}
}

// marketOf infers the market bucket from a symbol: KR tickers are
// all-digit codes (005930), US tickers are alphabetic (AAPL).
func marketOf(symbol string) contracts.Market {
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return contracts.MarketUS
		}
	}
	return contracts.MarketKR
}
