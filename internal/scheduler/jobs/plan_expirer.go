package jobs

import (
	"context"
	"fmt"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// PlanExpirerJob flips PROPOSED plans past their expiry to EXPIRED.
// 승인 없이 방치된 플랜 정리.
type PlanExpirerJob struct {
	engine *execution.Engine
	logger *logger.Logger
}

// NewPlanExpirerJob creates a plan expirer job
func NewPlanExpirerJob(engine *execution.Engine, log *logger.Logger) *PlanExpirerJob {
	return &PlanExpirerJob{engine: engine, logger: log}
}

// Name returns the job name
func (j *PlanExpirerJob) Name() string {
	return "plan_expirer"
}

// Schedule runs at the top of every hour
func (j *PlanExpirerJob) Schedule() string {
	return "0 0 * * * *"
}

// Run expires overdue plans
func (j *PlanExpirerJob) Run(ctx context.Context) error {
	expired, err := j.engine.ExpireDuePlans(ctx)
	if err != nil {
		return fmt.Errorf("plan expirer failed: %w", err)
	}

	j.logger.WithField("expired", expired).Info("Plan expirer job finished")
	return nil
}
