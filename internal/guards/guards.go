package guards

import (
	"context"

	"github.com/google/uuid"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// ControlStore resolves the global kill switch record
type ControlStore interface {
	// GetControl returns the control record, initializing it to "off"
	// on first access if absent.
	GetControl(ctx context.Context) (*contracts.Control, error)
}

// PlanResolver resolves a plan by ID. found=false means no such plan.
type PlanResolver interface {
	FindPlan(ctx context.Context, planID uuid.UUID) (*contracts.RebalancePlan, bool, error)
}

// Guard is the set of stateless precondition checks consulted before
// any state-mutating action.
// ⭐ SSOT: kill switch / live trading / 승인 상태 검사는 여기서만
type Guard struct {
	controls   ControlStore
	plans      PlanResolver
	enableLive bool
}

// New creates a guard layer
func New(controls ControlStore, plans PlanResolver, enableLiveTrading bool) *Guard {
	return &Guard{
		controls:   controls,
		plans:      plans,
		enableLive: enableLiveTrading,
	}
}

// CheckKillSwitch blocks with a conflict-class error when the kill
// switch is on. Never mutates anything beyond the first-access
// initialization inside the store.
func (g *Guard) CheckKillSwitch(ctx context.Context) error {
	control, err := g.controls.GetControl(ctx)
	if err != nil {
		return err
	}

	if control.KillSwitch {
		return NewKillSwitchOn(control.Reason)
	}
	return nil
}

// CheckLiveTrading gates live order placement. Paper execution does not
// consult this.
func (g *Guard) CheckLiveTrading() error {
	if !g.enableLive {
		return NewLiveTradingDisabled()
	}
	return nil
}

// CheckPlanApproved resolves the plan and verifies it is APPROVED.
// Not-found and not-approved are distinct errors.
func (g *Guard) CheckPlanApproved(ctx context.Context, planID uuid.UUID) (*contracts.RebalancePlan, error) {
	plan, found, err := g.plans.FindPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewPlanNotFound(planID.String())
	}

	if plan.Status != contracts.PlanApproved {
		return nil, NewPlanNotApproved(planID.String(), string(plan.Status))
	}

	return plan, nil
}
