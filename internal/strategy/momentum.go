package strategy

import (
	"fmt"
	"sort"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// DualMomentum selects top momentum stocks per market and assigns equal
// weights within each market bucket, scaled by the KR/US split.
// ⭐ SSOT: 목표 비중 산출은 여기서만
type DualMomentum struct {
	lookbackMonths int
	krTopM         int
	usTopN         int
	krSplit        float64
	usSplit        float64
	logger         *logger.Logger
}

// New creates a dual momentum strategy from config
func New(cfg config.StrategyConfig, log *logger.Logger) *DualMomentum {
	return &DualMomentum{
		lookbackMonths: cfg.LookbackMonths,
		krTopM:         cfg.KRTopM,
		usTopN:         cfg.USTopN,
		krSplit:        cfg.KRSplit,
		usSplit:        cfg.USSplit,
		logger:         log,
	}
}

// LookbackMonths returns the configured lookback horizon
func (s *DualMomentum) LookbackMonths() int {
	return s.lookbackMonths
}

// Score calculates the momentum score: (current / lookback) - 1.
// Zero lookback price scores 0 rather than dividing by it.
func (s *DualMomentum) Score(current, lookback float64) float64 {
	if lookback == 0 {
		return 0.0
	}
	return current/lookback - 1.0
}

type scoredSymbol struct {
	symbol string
	market contracts.Market
	score  float64
}

// SelectTargets scores both universes, picks the top-N per market, and
// produces plan item drafts with target, current, and delta weights.
// Pure function of its inputs; symbols without price data are skipped
// silently. Ties in score keep input order (stable sort).
func (s *DualMomentum) SelectTargets(
	universeKR []string,
	universeUS []string,
	prices map[string]contracts.PricePair,
	currentWeights map[string]float64,
) []contracts.PlanItem {
	krSelected := s.selectTop(universeKR, contracts.MarketKR, prices, s.krTopM)
	usSelected := s.selectTop(universeUS, contracts.MarketUS, prices, s.usTopN)

	// 시장별 균등 비중: split / 선택 종목 수
	items := make([]contracts.PlanItem, 0, len(krSelected)+len(usSelected))
	items = append(items, s.toPlanItems(krSelected, s.krSplit, currentWeights)...)
	items = append(items, s.toPlanItems(usSelected, s.usSplit, currentWeights)...)

	s.logger.WithFields(map[string]interface{}{
		"kr_selected": len(krSelected),
		"us_selected": len(usSelected),
		"items":       len(items),
	}).Debug("Momentum targets selected")

	return items
}

// selectTop scores one universe and keeps the top n by momentum
func (s *DualMomentum) selectTop(universe []string, market contracts.Market, prices map[string]contracts.PricePair, n int) []scoredSymbol {
	scored := make([]scoredSymbol, 0, len(universe))
	for _, symbol := range universe {
		pair, ok := prices[symbol]
		if !ok {
			// 가격 데이터 없는 종목은 조용히 제외
			continue
		}
		scored = append(scored, scoredSymbol{
			symbol: symbol,
			market: market,
			score:  s.Score(pair.Current, pair.Lookback),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// toPlanItems assigns equal weight within a market bucket. The bucket's
// aggregate weight stays at the configured split regardless of how many
// symbols were selected; zero selected skips the bucket entirely.
func (s *DualMomentum) toPlanItems(selected []scoredSymbol, split float64, currentWeights map[string]float64) []contracts.PlanItem {
	if len(selected) == 0 {
		return nil
	}

	weightPer := split / float64(len(selected))

	items := make([]contracts.PlanItem, 0, len(selected))
	for _, sym := range selected {
		current := currentWeights[sym.symbol] // 미보유 종목 → 0
		items = append(items, contracts.PlanItem{
			Symbol:        sym.symbol,
			Market:        sym.market,
			CurrentWeight: current,
			TargetWeight:  weightPer,
			DeltaWeight:   weightPer - current,
			Reason:        fmt.Sprintf("Momentum score: %.2f%%", sym.score*100),
		})
	}
	return items
}
