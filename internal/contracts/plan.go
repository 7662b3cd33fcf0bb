package contracts

import (
	"time"

	"github.com/google/uuid"
)

// PlanItem is one line of a rebalance plan.
// ⭐ 불변식: DeltaWeight = TargetWeight - CurrentWeight (재계산 금지)
type PlanItem struct {
	ID            uuid.UUID              `json:"id"`
	PlanID        uuid.UUID              `json:"plan_id"`
	Symbol        string                 `json:"symbol"`
	Market        Market                 `json:"market"`
	CurrentWeight float64                `json:"current_weight"`
	TargetWeight  float64                `json:"target_weight"`
	DeltaWeight   float64                `json:"delta_weight"`
	Reason        string                 `json:"reason,omitempty"`
	Checks        map[string]interface{} `json:"checks,omitempty"`
}

// WeightChange is one entry of the plan summary's top movers
type WeightChange struct {
	Symbol      string  `json:"symbol"`
	Market      Market  `json:"market"`
	DeltaWeight float64 `json:"delta_weight"`
}

// PlanSummary aggregates a plan for the approver's view
type PlanSummary struct {
	KRTargetWeight    float64        `json:"kr_target_weight"`
	USTargetWeight    float64        `json:"us_target_weight"`
	KRWeightShift     float64        `json:"kr_weight_shift"` // sum of KR deltas
	USWeightShift     float64        `json:"us_weight_shift"` // sum of US deltas
	TopChanges        []WeightChange `json:"top_changes"`
	ConstraintsPassed bool           `json:"constraints_passed"`
	ConstraintErrors  []string       `json:"constraint_errors,omitempty"`
}

// RebalancePlan aggregates plan items plus lifecycle metadata.
// Immutable after creation except status and audit timestamps/actors.
type RebalancePlan struct {
	ID              uuid.UUID   `json:"id"`
	RunID           uuid.UUID   `json:"run_id"`
	ConfigVersionID uuid.UUID   `json:"config_version_id"`
	DataSnapshotID  uuid.UUID   `json:"data_snapshot_id"`
	Status          PlanStatus  `json:"status"`
	Summary         PlanSummary `json:"summary"`
	CreatedAt       time.Time   `json:"created_at"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy      string      `json:"approved_by,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectedBy      string      `json:"rejected_by,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	Items           []PlanItem  `json:"items,omitempty"`
}

// IsExpired reports whether a still-PROPOSED plan is past its expiry.
// Plans in any other state never expire.
func (p *RebalancePlan) IsExpired(now time.Time) bool {
	if p.Status != PlanProposed || p.ExpiresAt == nil {
		return false
	}
	return now.After(*p.ExpiresAt)
}

// BuildSummary derives the summary from plan items and constraint results
func BuildSummary(items []PlanItem, passed bool, violations []string) PlanSummary {
	summary := PlanSummary{
		ConstraintsPassed: passed,
		ConstraintErrors:  violations,
	}

	for _, item := range items {
		switch item.Market {
		case MarketKR:
			summary.KRTargetWeight += item.TargetWeight
			summary.KRWeightShift += item.DeltaWeight
		case MarketUS:
			summary.USTargetWeight += item.TargetWeight
			summary.USWeightShift += item.DeltaWeight
		}
	}

	summary.TopChanges = topChanges(items, 5)
	return summary
}

// topChanges returns the k largest moves by |delta|
func topChanges(items []PlanItem, k int) []WeightChange {
	changes := make([]WeightChange, 0, len(items))
	for _, item := range items {
		changes = append(changes, WeightChange{
			Symbol:      item.Symbol,
			Market:      item.Market,
			DeltaWeight: item.DeltaWeight,
		})
	}

	// Stable insertion keeps input order for equal magnitudes
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && abs(changes[j].DeltaWeight) > abs(changes[j-1].DeltaWeight); j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}

	if len(changes) > k {
		changes = changes[:k]
	}
	return changes
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
