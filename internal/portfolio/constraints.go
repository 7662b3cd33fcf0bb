package portfolio

import (
	"fmt"
	"math"
	"strings"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
)

// Checker validates a candidate allocation against portfolio
// construction constraints. Stateless; never mutates its input.
// 결과는 advisory: 실패해도 플랜 생성은 막지 않고 승인자가 판단함.
// ⭐ SSOT: 포트폴리오 제약조건 검사는 여기서만
type Checker struct {
	maxPositions     int
	maxWeightPerName float64
	krSplit          float64
	usSplit          float64
	splitTolerance   float64
}

// NewChecker creates a constraint checker from config
func NewChecker(cfg config.ConstraintsConfig, strategy config.StrategyConfig) *Checker {
	return &Checker{
		maxPositions:     cfg.MaxPositions,
		maxWeightPerName: cfg.MaxWeightPerName,
		krSplit:          strategy.KRSplit,
		usSplit:          strategy.USSplit,
		splitTolerance:   cfg.SplitTolerance,
	}
}

// CheckPositions validates the position count limit
func (c *Checker) CheckPositions(items []contracts.PlanItem) (bool, string) {
	if len(items) > c.maxPositions {
		return false, fmt.Sprintf("Positions count %d exceeds max %d", len(items), c.maxPositions)
	}
	return true, ""
}

// CheckWeightPerName validates the per-name target weight cap
func (c *Checker) CheckWeightPerName(items []contracts.PlanItem) (bool, string) {
	var violations []string
	for _, item := range items {
		if item.TargetWeight > c.maxWeightPerName {
			violations = append(violations, fmt.Sprintf("%s: %.2f%% > %.2f%%",
				item.Symbol, item.TargetWeight*100, c.maxWeightPerName*100))
		}
	}
	if len(violations) > 0 {
		return false, strings.Join(violations, "; ")
	}
	return true, ""
}

// CheckMarketSplit validates the KR/US split ratio. Ratios are computed
// over the sum of target weights actually present, not over 1.0, so a
// partially-selected plan is judged on its own total.
func (c *Checker) CheckMarketSplit(items []contracts.PlanItem) (bool, string) {
	var krWeight, usWeight float64
	for _, item := range items {
		switch item.Market {
		case contracts.MarketKR:
			krWeight += item.TargetWeight
		case contracts.MarketUS:
			usWeight += item.TargetWeight
		}
	}

	total := krWeight + usWeight
	if total == 0 {
		return true, ""
	}

	krRatio := krWeight / total
	usRatio := usWeight / total

	if math.Abs(krRatio-c.krSplit) > c.splitTolerance || math.Abs(usRatio-c.usSplit) > c.splitTolerance {
		return false, fmt.Sprintf("KR: %.2f%% (expected %.2f%%), US: %.2f%% (expected %.2f%%)",
			krRatio*100, c.krSplit*100, usRatio*100, c.usSplit*100)
	}
	return true, ""
}

// CheckDataQuality validates that every item carries a strictly
// positive current price.
func (c *Checker) CheckDataQuality(items []contracts.PlanItem, prices map[string]float64) (bool, string) {
	var issues []string
	for _, item := range items {
		price, ok := prices[item.Symbol]
		switch {
		case !ok || price == 0:
			issues = append(issues, fmt.Sprintf("%s: missing or zero price", item.Symbol))
		case price < 0:
			issues = append(issues, fmt.Sprintf("%s: negative price", item.Symbol))
		}
	}
	if len(issues) > 0 {
		return false, strings.Join(issues, "; ")
	}
	return true, ""
}

// CheckAll runs all four checks unconditionally (no short-circuit) and
// collects every violation, namespaced by check name.
func (c *Checker) CheckAll(items []contracts.PlanItem, prices map[string]float64) (bool, []string) {
	var errors []string

	checks := []struct {
		name string
		run  func() (bool, string)
	}{
		{"positions", func() (bool, string) { return c.CheckPositions(items) }},
		{"weight_per_name", func() (bool, string) { return c.CheckWeightPerName(items) }},
		{"kr_us_split", func() (bool, string) { return c.CheckMarketSplit(items) }},
		{"data_quality", func() (bool, string) { return c.CheckDataQuality(items, prices) }},
	}

	for _, check := range checks {
		passed, msg := check.run()
		if !passed {
			errors = append(errors, fmt.Sprintf("%s: %s", check.name, msg))
		}
	}

	return len(errors) == 0, errors
}
