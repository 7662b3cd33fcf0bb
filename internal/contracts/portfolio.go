package contracts

import (
	"time"

	"github.com/google/uuid"
)

// PortfolioSnapshot is an immutable record of holdings at a point in
// time. Cash and NAV are independent inputs; NAV is not recomputed from
// positions by this layer.
type PortfolioSnapshot struct {
	ID        uuid.UUID          `json:"id"`
	Asof      time.Time          `json:"asof"`
	Mode      TradingMode        `json:"mode"`
	Positions map[string]float64 `json:"positions"` // symbol → qty
	Cash      float64            `json:"cash"`
	NAV       float64            `json:"nav"`
	CreatedAt time.Time          `json:"created_at"`
}

// CurrentWeights converts position quantities into NAV-relative weights
// using the given prices. Symbols without a price contribute weight 0.
func (s *PortfolioSnapshot) CurrentWeights(prices map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(s.Positions))
	if s.NAV <= 0 {
		return weights
	}

	for symbol, qty := range s.Positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}
		weights[symbol] = qty * price / s.NAV
	}

	return weights
}

// ConfigVersion carries strategy params and constraint thresholds as
// opaque key-value maps. Read-only input to the engine.
type ConfigVersion struct {
	ID             uuid.UUID              `json:"id"`
	Mode           TradingMode            `json:"mode"`
	StrategyName   string                 `json:"strategy_name"`
	StrategyParams map[string]interface{} `json:"strategy_params"`
	Constraints    map[string]interface{} `json:"constraints"`
	CreatedAt      time.Time              `json:"created_at"`
	CreatedBy      string                 `json:"created_by"`
}

// DataSnapshot records the provenance of market data a plan was built on
type DataSnapshot struct {
	ID        uuid.UUID              `json:"id"`
	Source    string                 `json:"source"`
	Asof      time.Time              `json:"asof"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Quote is a single symbol price from the quote provider
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Market Market  `json:"market"`
}

// PricePair holds the current and lookback price used for momentum
type PricePair struct {
	Current  float64 `json:"current"`
	Lookback float64 `json:"lookback"`
}
