package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/portfolio"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/strategy"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// ErrInvalidTransition is returned when a lifecycle operation targets a
// plan or execution whose current state does not allow it
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrNoPlanItems is returned when an execution is started against a
// plan with no items
var ErrNoPlanItems = errors.New("plan has no items")

// PlanStore persists rebalance plans and their items
type PlanStore interface {
	SavePlan(ctx context.Context, plan *contracts.RebalancePlan) error
	FindPlan(ctx context.Context, id uuid.UUID) (*contracts.RebalancePlan, bool, error)
	ListPlans(ctx context.Context, status *contracts.PlanStatus, limit int) ([]contracts.RebalancePlan, error)
	UpdatePlanStatus(ctx context.Context, plan *contracts.RebalancePlan) error
	ListExpiredProposed(ctx context.Context, asof time.Time) ([]contracts.RebalancePlan, error)
}

// ExecutionStore persists executions, orders, and fills.
// CreateExecution must enforce at-most-one-execution-per-plan at the
// storage layer and return the existing record on conflict.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *contracts.Execution) (*contracts.Execution, bool, error)
	UpdateExecution(ctx context.Context, exec *contracts.Execution) error
	GetExecution(ctx context.Context, id uuid.UUID) (*contracts.Execution, bool, error)
	ListExecutions(ctx context.Context, limit int) ([]contracts.Execution, error)
	SaveOrder(ctx context.Context, order *contracts.Order) error
	UpdateOrder(ctx context.Context, order *contracts.Order) error
	ListOrders(ctx context.Context, executionID uuid.UUID) ([]contracts.Order, error)
	SaveFill(ctx context.Context, fill *contracts.Fill) error
}

// RunStore persists audit-correlation run records
type RunStore interface {
	CreateRun(ctx context.Context, run *contracts.Run) error
	UpdateRun(ctx context.Context, run *contracts.Run) error
}

// SnapshotStore supplies read-only portfolio/config inputs
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context) (*contracts.PortfolioSnapshot, error)
	LatestConfigVersion(ctx context.Context) (*contracts.ConfigVersion, error)
	LatestDataSnapshot(ctx context.Context) (*contracts.DataSnapshot, error)
}

// QuoteProvider supplies prices; satisfied by the broker adapters
type QuoteProvider interface {
	GetQuotes(ctx context.Context, symbols []string) ([]contracts.Quote, error)
	GetPricePairs(ctx context.Context, symbols []string, lookbackMonths int) (map[string]contracts.PricePair, error)
}

// Auditor appends audit events
type Auditor interface {
	Record(ctx context.Context, eventType, actor, refType string, refID uuid.UUID, payload map[string]interface{}) (*contracts.AuditEvent, error)
}

// AlertSender delivers notifications; failures are swallowed by the sender
type AlertSender interface {
	Send(ctx context.Context, level contracts.AlertLevel, channel, title string, body map[string]interface{}) bool
}

// Engine sequences momentum selection, constraint checking, and order
// construction into the plan/execution lifecycle.
// ⭐ SSOT: Plan/Execution 상태 전이는 여기서만
type Engine struct {
	selector  *strategy.DualMomentum
	checker   *portfolio.Checker
	builder   *OrderBuilder
	guard     *guards.Guard
	plans     PlanStore
	execs     ExecutionStore
	runs      RunStore
	snapshots SnapshotStore
	quotes    QuoteProvider
	audit     Auditor
	notifier  AlertSender

	universeDir string
	planTTL     time.Duration
	logger      *logger.Logger
}

// EngineDeps bundles the engine's collaborators
type EngineDeps struct {
	Selector  *strategy.DualMomentum
	Checker   *portfolio.Checker
	Guard     *guards.Guard
	Plans     PlanStore
	Execs     ExecutionStore
	Runs      RunStore
	Snapshots SnapshotStore
	Quotes    QuoteProvider
	Audit     Auditor
	Notifier  AlertSender
}

// NewEngine creates a rebalance engine
func NewEngine(cfg *config.Config, deps EngineDeps, log *logger.Logger) *Engine {
	return &Engine{
		selector:    deps.Selector,
		checker:     deps.Checker,
		builder:     NewOrderBuilder(),
		guard:       deps.Guard,
		plans:       deps.Plans,
		execs:       deps.Execs,
		runs:        deps.Runs,
		snapshots:   deps.Snapshots,
		quotes:      deps.Quotes,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		universeDir: cfg.Strategy.UniverseDir,
		planTTL:     cfg.PlanTTL,
		logger:      log,
	}
}

// GeneratePlan runs the selection pipeline and persists a PROPOSED plan.
// Constraint failures are advisory: the plan is persisted either way and
// a human approver makes the final call.
func (e *Engine) GeneratePlan(ctx context.Context, actor string) (*contracts.RebalancePlan, error) {
	if err := e.guard.CheckKillSwitch(ctx); err != nil {
		return nil, err
	}

	run := &contracts.Run{
		ID:        uuid.New(),
		Kind:      contracts.RunKindPlan,
		Status:    contracts.RunStarted,
		StartedAt: time.Now(),
	}
	if err := e.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create plan run: %w", err)
	}

	plan, err := e.generatePlan(ctx, run, actor)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, err
	}

	run.Status = contracts.RunDone
	now := time.Now()
	run.EndedAt = &now
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		e.logger.WithError(err).Warn("Failed to mark plan run done")
	}

	return plan, nil
}

func (e *Engine) generatePlan(ctx context.Context, run *contracts.Run, actor string) (*contracts.RebalancePlan, error) {
	universeKR, err := strategy.LoadUniverse(e.universeDir, contracts.MarketKR)
	if err != nil {
		return nil, err
	}
	universeUS, err := strategy.LoadUniverse(e.universeDir, contracts.MarketUS)
	if err != nil {
		return nil, err
	}

	snapshot, err := e.snapshots.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoSnapshot) {
			return nil, fmt.Errorf("no portfolio snapshot found: %w", err)
		}
		return nil, fmt.Errorf("failed to load portfolio snapshot: %w", err)
	}

	symbols := append(append([]string{}, universeKR...), universeUS...)
	pairs, err := e.quotes.GetPricePairs(ctx, symbols, e.selector.LookbackMonths())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price pairs: %w", err)
	}

	currentPrices := make(map[string]float64, len(pairs))
	for symbol, pair := range pairs {
		currentPrices[symbol] = pair.Current
	}
	currentWeights := snapshot.CurrentWeights(currentPrices)

	items := e.selector.SelectTargets(universeKR, universeUS, pairs, currentWeights)

	passed, violations := e.checker.CheckAll(items, currentPrices)

	planID := uuid.New()
	now := time.Now()
	expiresAt := now.Add(e.planTTL)

	for i := range items {
		items[i].ID = uuid.New()
		items[i].PlanID = planID
		items[i].Checks = map[string]interface{}{
			"constraints_passed": passed,
		}
	}

	plan := &contracts.RebalancePlan{
		ID:        planID,
		RunID:     run.ID,
		Status:    contracts.PlanProposed,
		Summary:   contracts.BuildSummary(items, passed, violations),
		CreatedAt: now,
		ExpiresAt: &expiresAt,
		Items:     items,
	}

	// Latest config/data snapshots are recorded when present; a missing
	// record leaves the reference empty.
	if cv, err := e.snapshots.LatestConfigVersion(ctx); err == nil && cv != nil {
		plan.ConfigVersionID = cv.ID
	}
	if ds, err := e.snapshots.LatestDataSnapshot(ctx); err == nil && ds != nil {
		plan.DataSnapshotID = ds.ID
	}

	if err := e.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	if _, err := e.audit.Record(ctx, "plan_created", actor, "plan", plan.ID, map[string]interface{}{
		"items_count":        len(items),
		"constraints_passed": passed,
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record plan_created audit event")
	}

	e.notifier.Send(ctx, contracts.AlertDecisionRequired, "decisions", "Rebalance Plan 생성", map[string]interface{}{
		"plan_id":            plan.ID.String(),
		"items_count":        len(items),
		"constraints_passed": passed,
		"expires_at":         expiresAt.Format(time.RFC3339),
	})

	e.logger.WithFields(map[string]interface{}{
		"plan_id":            plan.ID,
		"items":              len(items),
		"constraints_passed": passed,
	}).Info("Rebalance plan created")

	return plan, nil
}

// ApprovePlan moves a PROPOSED plan to APPROVED
func (e *Engine) ApprovePlan(ctx context.Context, planID uuid.UUID, approvedBy string) (*contracts.RebalancePlan, error) {
	plan, found, err := e.plans.FindPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	if !found {
		return nil, guards.NewPlanNotFound(planID.String())
	}

	if !plan.Status.CanTransition(contracts.PlanApproved) {
		return nil, fmt.Errorf("%w: plan is %s, cannot approve", ErrInvalidTransition, plan.Status)
	}

	now := time.Now()
	plan.Status = contracts.PlanApproved
	plan.ApprovedAt = &now
	plan.ApprovedBy = approvedBy

	if err := e.plans.UpdatePlanStatus(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update plan status: %w", err)
	}

	if _, err := e.audit.Record(ctx, "plan_approved", approvedBy, "plan", plan.ID, nil); err != nil {
		e.logger.WithError(err).Warn("Failed to record plan_approved audit event")
	}

	return plan, nil
}

// RejectPlan moves a PROPOSED plan to REJECTED
func (e *Engine) RejectPlan(ctx context.Context, planID uuid.UUID, rejectedBy string) (*contracts.RebalancePlan, error) {
	plan, found, err := e.plans.FindPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	if !found {
		return nil, guards.NewPlanNotFound(planID.String())
	}

	if !plan.Status.CanTransition(contracts.PlanRejected) {
		return nil, fmt.Errorf("%w: plan is %s, cannot reject", ErrInvalidTransition, plan.Status)
	}

	now := time.Now()
	plan.Status = contracts.PlanRejected
	plan.RejectedAt = &now
	plan.RejectedBy = rejectedBy

	if err := e.plans.UpdatePlanStatus(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update plan status: %w", err)
	}

	if _, err := e.audit.Record(ctx, "plan_rejected", rejectedBy, "plan", plan.ID, nil); err != nil {
		e.logger.WithError(err).Warn("Failed to record plan_rejected audit event")
	}

	return plan, nil
}

// ExpirePlan moves a PROPOSED plan to EXPIRED
func (e *Engine) ExpirePlan(ctx context.Context, planID uuid.UUID) (*contracts.RebalancePlan, error) {
	plan, found, err := e.plans.FindPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	if !found {
		return nil, guards.NewPlanNotFound(planID.String())
	}

	if !plan.Status.CanTransition(contracts.PlanExpired) {
		return nil, fmt.Errorf("%w: plan is %s, cannot expire", ErrInvalidTransition, plan.Status)
	}

	plan.Status = contracts.PlanExpired
	if err := e.plans.UpdatePlanStatus(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update plan status: %w", err)
	}

	if _, err := e.audit.Record(ctx, "plan_expired", "system", "plan", plan.ID, nil); err != nil {
		e.logger.WithError(err).Warn("Failed to record plan_expired audit event")
	}

	return plan, nil
}

// ExpireDuePlans flips every PROPOSED plan past its expiry to EXPIRED.
// Called by the worker job; returns the number of plans expired.
func (e *Engine) ExpireDuePlans(ctx context.Context) (int, error) {
	run := &contracts.Run{
		ID:        uuid.New(),
		Kind:      contracts.RunKindExpire,
		Status:    contracts.RunStarted,
		StartedAt: time.Now(),
	}
	if err := e.runs.CreateRun(ctx, run); err != nil {
		return 0, fmt.Errorf("failed to create expire run: %w", err)
	}

	due, err := e.plans.ListExpiredProposed(ctx, time.Now())
	if err != nil {
		e.failRun(ctx, run, err)
		return 0, fmt.Errorf("failed to list expired plans: %w", err)
	}

	expired := 0
	for i := range due {
		if _, err := e.ExpirePlan(ctx, due[i].ID); err != nil {
			e.logger.WithError(err).WithField("plan_id", due[i].ID).Warn("Failed to expire plan")
			continue
		}
		expired++
	}

	run.Status = contracts.RunDone
	now := time.Now()
	run.EndedAt = &now
	run.Meta = map[string]interface{}{"expired_count": expired}
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		e.logger.WithError(err).Warn("Failed to mark expire run done")
	}

	if expired > 0 {
		e.logger.WithField("expired", expired).Info("Expired overdue plans")
	}
	return expired, nil
}

// StartExecution starts (or idempotently returns) the execution of an
// approved plan. A second invocation for the same plan returns the
// existing execution unchanged, whatever its status.
func (e *Engine) StartExecution(ctx context.Context, planID uuid.UUID, policy map[string]interface{}) (*contracts.Execution, error) {
	if err := e.guard.CheckKillSwitch(ctx); err != nil {
		return nil, err
	}

	plan, err := e.guard.CheckPlanApproved(ctx, planID)
	if err != nil {
		return nil, err
	}

	exec := &contracts.Execution{
		ID:     uuid.New(),
		PlanID: planID,
		Status: contracts.ExecPending,
		Policy: policy,
	}

	exec, created, err := e.execs.CreateExecution(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}
	if !created {
		// 멱등성: 기존 실행을 그대로 반환, 재실행 금지
		e.logger.WithFields(map[string]interface{}{
			"plan_id":      planID,
			"execution_id": exec.ID,
			"status":       exec.Status,
		}).Info("Execution already exists, returning as-is")
		return exec, nil
	}

	run := &contracts.Run{
		ID:        uuid.New(),
		Kind:      contracts.RunKindExecute,
		Status:    contracts.RunStarted,
		StartedAt: time.Now(),
	}
	if err := e.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create execute run: %w", err)
	}

	now := time.Now()
	exec.Status = contracts.ExecRunning
	exec.StartedAt = &now
	if err := e.execs.UpdateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to mark execution running: %w", err)
	}

	if err := e.runPipeline(ctx, exec, run, plan); err != nil {
		e.failExecution(ctx, exec, run, err)
		return exec, err
	}

	return exec, nil
}

// runPipeline performs the paper execution of an admitted plan
func (e *Engine) runPipeline(ctx context.Context, exec *contracts.Execution, run *contracts.Run, plan *contracts.RebalancePlan) error {
	snapshot, err := e.snapshots.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoSnapshot) {
			return fmt.Errorf("no portfolio snapshot found")
		}
		return fmt.Errorf("failed to load portfolio snapshot: %w", err)
	}

	if len(plan.Items) == 0 {
		return ErrNoPlanItems
	}

	symbols := make([]string, 0, len(plan.Items))
	for _, item := range plan.Items {
		symbols = append(symbols, item.Symbol)
	}

	quotes, err := e.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}
	prices := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}

	orders := e.builder.BuildOrders(plan.ID, plan.Items, prices, snapshot.Cash, snapshot.NAV)

	book := newLedger(snapshot.Cash, snapshot.Positions)
	filled, skipped := 0, 0

	for i := range orders {
		order := &orders[i]
		order.ExecutionID = &exec.ID
		order.CreatedAt = time.Now()

		if order.IsSkipped() {
			if err := e.execs.SaveOrder(ctx, order); err != nil {
				return fmt.Errorf("failed to save skipped order: %w", err)
			}
			skipped++
			continue
		}

		if err := e.execs.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		// 페이퍼 모드: 지정가로 즉시 전량 체결
		fill := &contracts.Fill{
			ID:          uuid.New(),
			OrderID:     order.ID,
			FilledQty:   order.Qty,
			FilledPrice: order.LimitPrice,
			FilledAt:    time.Now(),
		}
		if err := e.execs.SaveFill(ctx, fill); err != nil {
			return fmt.Errorf("failed to save fill: %w", err)
		}

		order.Status = contracts.OrderFilled
		order.BrokerOrderID = fmt.Sprintf("PAPER_%s", order.ID)
		if err := e.execs.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		if order.Side == contracts.OrderSideSell {
			book.applySell(order.Symbol, fill.FilledQty, fill.FilledPrice)
		} else {
			book.applyBuy(order.Symbol, fill.FilledQty, fill.FilledPrice)
		}
		filled++
	}

	now := time.Now()
	exec.Status = contracts.ExecDone
	exec.EndedAt = &now
	if err := e.execs.UpdateExecution(ctx, exec); err != nil {
		return fmt.Errorf("failed to mark execution done: %w", err)
	}

	run.Status = contracts.RunDone
	run.EndedAt = &now
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		e.logger.WithError(err).Warn("Failed to mark execute run done")
	}

	if _, err := e.audit.Record(ctx, "execution_completed", "system", "execution", exec.ID, map[string]interface{}{
		"plan_id":      plan.ID.String(),
		"orders_count": len(orders),
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record execution_completed audit event")
	}

	e.notifier.Send(ctx, contracts.AlertInfo, "dev", "Execution 완료", map[string]interface{}{
		"execution_id":   exec.ID.String(),
		"plan_id":        plan.ID.String(),
		"orders_total":   len(orders),
		"orders_filled":  filled,
		"orders_skipped": skipped,
	})

	e.logger.WithFields(map[string]interface{}{
		"execution_id":   exec.ID,
		"orders_total":   len(orders),
		"orders_filled":  filled,
		"orders_skipped": skipped,
		"cash_remaining": book.Cash(),
	}).Info("Execution completed")

	return nil
}

// GetPlan loads a plan with its items
func (e *Engine) GetPlan(ctx context.Context, planID uuid.UUID) (*contracts.RebalancePlan, error) {
	plan, found, err := e.plans.FindPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	if !found {
		return nil, guards.NewPlanNotFound(planID.String())
	}
	return plan, nil
}

// ListPlans lists plans, optionally filtered by status
func (e *Engine) ListPlans(ctx context.Context, status *contracts.PlanStatus, limit int) ([]contracts.RebalancePlan, error) {
	return e.plans.ListPlans(ctx, status, limit)
}

// GetExecution loads an execution by ID
func (e *Engine) GetExecution(ctx context.Context, id uuid.UUID) (*contracts.Execution, bool, error) {
	return e.execs.GetExecution(ctx, id)
}

// ListExecutions lists executions
func (e *Engine) ListExecutions(ctx context.Context, limit int) ([]contracts.Execution, error) {
	return e.execs.ListExecutions(ctx, limit)
}

// ListExecutionOrders lists the orders persisted for an execution
func (e *Engine) ListExecutionOrders(ctx context.Context, executionID uuid.UUID) ([]contracts.Order, error) {
	return e.execs.ListOrders(ctx, executionID)
}

// failExecution marks both the execution and its run FAILED so nothing
// is left stuck in PENDING or RUNNING
func (e *Engine) failExecution(ctx context.Context, exec *contracts.Execution, run *contracts.Run, cause error) {
	now := time.Now()
	exec.Status = contracts.ExecFailed
	exec.Error = cause.Error()
	exec.EndedAt = &now
	if err := e.execs.UpdateExecution(ctx, exec); err != nil {
		e.logger.WithError(err).Error("Failed to mark execution failed")
	}

	e.failRun(ctx, run, cause)

	e.notifier.Send(ctx, contracts.AlertError, "alerts", "Execution 실패", map[string]interface{}{
		"execution_id": exec.ID.String(),
		"plan_id":      exec.PlanID.String(),
		"error":        cause.Error(),
	})
}

func (e *Engine) failRun(ctx context.Context, run *contracts.Run, cause error) {
	now := time.Now()
	run.Status = contracts.RunFailed
	run.Error = cause.Error()
	run.EndedAt = &now
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		e.logger.WithError(err).Error("Failed to mark run failed")
	}
}
