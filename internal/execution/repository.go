package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// Repository persists plans, executions, orders, fills, and runs.
// Implements the engine's PlanStore/ExecutionStore/RunStore and the
// guard layer's PlanResolver.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an execution repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavePlan persists a plan and its items in one transaction
func (r *Repository) SavePlan(ctx context.Context, plan *contracts.RebalancePlan) error {
	summaryJSON, err := json.Marshal(plan.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal plan summary: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO rebalance_plans (id, run_id, config_version_id, data_snapshot_id, status, summary, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, query,
		plan.ID, plan.RunID, nilIfZero(plan.ConfigVersionID), nilIfZero(plan.DataSnapshotID),
		string(plan.Status), summaryJSON, plan.CreatedAt, plan.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	itemQuery := `
		INSERT INTO plan_items (id, plan_id, symbol, market, current_weight, target_weight, delta_weight, reason, checks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, item := range plan.Items {
		checksJSON, err := json.Marshal(item.Checks)
		if err != nil {
			return fmt.Errorf("failed to marshal item checks: %w", err)
		}
		_, err = tx.Exec(ctx, itemQuery,
			item.ID, plan.ID, item.Symbol, string(item.Market),
			item.CurrentWeight, item.TargetWeight, item.DeltaWeight, item.Reason, checksJSON)
		if err != nil {
			return fmt.Errorf("failed to insert plan item %s: %w", item.Symbol, err)
		}
	}

	return tx.Commit(ctx)
}

// FindPlan loads a plan with its items. Also serves the guard layer's
// plan resolution.
func (r *Repository) FindPlan(ctx context.Context, id uuid.UUID) (*contracts.RebalancePlan, bool, error) {
	query := planSelect + ` WHERE id = $1`

	plan, err := r.scanPlan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query plan: %w", err)
	}

	items, err := r.loadItems(ctx, plan.ID)
	if err != nil {
		return nil, false, err
	}
	plan.Items = items

	return plan, true, nil
}

const planSelect = `
	SELECT id, run_id, COALESCE(config_version_id, '00000000-0000-0000-0000-000000000000'),
	       COALESCE(data_snapshot_id, '00000000-0000-0000-0000-000000000000'),
	       status, summary, created_at, approved_at, COALESCE(approved_by, ''),
	       rejected_at, COALESCE(rejected_by, ''), expires_at
	FROM rebalance_plans
`

// ListPlans lists plans newest first, optionally filtered by status
func (r *Repository) ListPlans(ctx context.Context, status *contracts.PlanStatus, limit int) ([]contracts.RebalancePlan, error) {
	if limit <= 0 {
		limit = 50
	}

	query := planSelect
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, string(*status), limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := make([]contracts.RebalancePlan, 0)
	for rows.Next() {
		plan, err := r.scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range plans {
		items, err := r.loadItems(ctx, plans[i].ID)
		if err != nil {
			return nil, err
		}
		plans[i].Items = items
	}

	return plans, nil
}

// UpdatePlanStatus persists a status transition and its audit fields
func (r *Repository) UpdatePlanStatus(ctx context.Context, plan *contracts.RebalancePlan) error {
	query := `
		UPDATE rebalance_plans
		SET status = $2, approved_at = $3, approved_by = $4, rejected_at = $5, rejected_by = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		plan.ID, string(plan.Status),
		plan.ApprovedAt, nullIfEmptyStr(plan.ApprovedBy),
		plan.RejectedAt, nullIfEmptyStr(plan.RejectedBy))
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %s not found", plan.ID)
	}
	return nil
}

// ListExpiredProposed returns PROPOSED plans past their expiry
func (r *Repository) ListExpiredProposed(ctx context.Context, asof time.Time) ([]contracts.RebalancePlan, error) {
	query := planSelect + ` WHERE status = 'PROPOSED' AND expires_at IS NOT NULL AND expires_at < $1`

	rows, err := r.pool.Query(ctx, query, asof)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired plans: %w", err)
	}
	defer rows.Close()

	plans := make([]contracts.RebalancePlan, 0)
	for rows.Next() {
		plan, err := r.scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (r *Repository) scanPlan(row pgx.Row) (*contracts.RebalancePlan, error) {
	var plan contracts.RebalancePlan
	var summaryJSON []byte

	err := row.Scan(&plan.ID, &plan.RunID, &plan.ConfigVersionID, &plan.DataSnapshotID,
		&plan.Status, &summaryJSON, &plan.CreatedAt, &plan.ApprovedAt, &plan.ApprovedBy,
		&plan.RejectedAt, &plan.RejectedBy, &plan.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &plan.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan summary: %w", err)
		}
	}

	return &plan, nil
}

func (r *Repository) loadItems(ctx context.Context, planID uuid.UUID) ([]contracts.PlanItem, error) {
	query := `
		SELECT id, plan_id, symbol, market, current_weight, target_weight, delta_weight, COALESCE(reason, ''), checks
		FROM plan_items
		WHERE plan_id = $1
		ORDER BY symbol
	`

	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan items: %w", err)
	}
	defer rows.Close()

	items := make([]contracts.PlanItem, 0)
	for rows.Next() {
		var item contracts.PlanItem
		var checksJSON []byte
		err := rows.Scan(&item.ID, &item.PlanID, &item.Symbol, &item.Market,
			&item.CurrentWeight, &item.TargetWeight, &item.DeltaWeight, &item.Reason, &checksJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan item: %w", err)
		}
		if len(checksJSON) > 0 {
			if err := json.Unmarshal(checksJSON, &item.Checks); err != nil {
				return nil, fmt.Errorf("failed to unmarshal item checks: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateExecution inserts an execution, relying on the UNIQUE(plan_id)
// constraint for idempotency. On conflict the existing record is read
// back and returned with created=false.
func (r *Repository) CreateExecution(ctx context.Context, exec *contracts.Execution) (*contracts.Execution, bool, error) {
	policyJSON, err := json.Marshal(exec.Policy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal execution policy: %w", err)
	}

	query := `
		INSERT INTO executions (id, plan_id, status, policy)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plan_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, exec.ID, exec.PlanID, string(exec.Status), policyJSON)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert execution: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return exec, true, nil
	}

	// 충돌: 먼저 생성된 실행을 읽어 반환
	existing, found, err := r.findExecutionByPlan(ctx, exec.PlanID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, fmt.Errorf("execution conflict for plan %s but no row found", exec.PlanID)
	}
	return existing, false, nil
}

// UpdateExecution persists execution status, timestamps, and error
func (r *Repository) UpdateExecution(ctx context.Context, exec *contracts.Execution) error {
	query := `
		UPDATE executions
		SET status = $2, started_at = $3, ended_at = $4, error = $5
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		exec.ID, string(exec.Status), exec.StartedAt, exec.EndedAt, nullIfEmptyStr(exec.Error))
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	return nil
}

// GetExecution loads an execution by ID
func (r *Repository) GetExecution(ctx context.Context, id uuid.UUID) (*contracts.Execution, bool, error) {
	query := executionSelect + ` WHERE id = $1`
	exec, err := r.scanExecution(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query execution: %w", err)
	}
	return exec, true, nil
}

const executionSelect = `
	SELECT id, plan_id, status, started_at, ended_at, policy, COALESCE(error, '')
	FROM executions
`

func (r *Repository) findExecutionByPlan(ctx context.Context, planID uuid.UUID) (*contracts.Execution, bool, error) {
	query := executionSelect + ` WHERE plan_id = $1`
	exec, err := r.scanExecution(r.pool.QueryRow(ctx, query, planID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query execution by plan: %w", err)
	}
	return exec, true, nil
}

// ListExecutions lists executions newest first
func (r *Repository) ListExecutions(ctx context.Context, limit int) ([]contracts.Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := executionSelect + ` ORDER BY started_at DESC NULLS LAST LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	execs := make([]contracts.Execution, 0, limit)
	for rows.Next() {
		exec, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

func (r *Repository) scanExecution(row pgx.Row) (*contracts.Execution, error) {
	var exec contracts.Execution
	var policyJSON []byte

	err := row.Scan(&exec.ID, &exec.PlanID, &exec.Status, &exec.StartedAt, &exec.EndedAt, &policyJSON, &exec.Error)
	if err != nil {
		return nil, err
	}

	if len(policyJSON) > 0 {
		if err := json.Unmarshal(policyJSON, &exec.Policy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution policy: %w", err)
		}
	}

	return &exec, nil
}

// SaveOrder persists an order
func (r *Repository) SaveOrder(ctx context.Context, order *contracts.Order) error {
	query := `
		INSERT INTO orders (id, plan_id, execution_id, symbol, market, side, qty, order_type, limit_price, estimated_cost, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query,
		order.ID, order.PlanID, order.ExecutionID, order.Symbol, string(order.Market),
		string(order.Side), order.Qty, string(order.OrderType), order.LimitPrice,
		order.EstimatedCost, string(order.Status), nullIfEmptyStr(order.Error), order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateOrder persists order status and broker reference
func (r *Repository) UpdateOrder(ctx context.Context, order *contracts.Order) error {
	query := `
		UPDATE orders
		SET status = $2, broker_order_id = $3, error = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		order.ID, string(order.Status), nullIfEmptyStr(order.BrokerOrderID), nullIfEmptyStr(order.Error))
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// ListOrders lists an execution's orders in insertion order
func (r *Repository) ListOrders(ctx context.Context, executionID uuid.UUID) ([]contracts.Order, error) {
	query := `
		SELECT id, plan_id, execution_id, symbol, market, side, qty, order_type, limit_price,
		       estimated_cost, status, COALESCE(broker_order_id, ''), COALESCE(error, ''), created_at
		FROM orders
		WHERE execution_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.Order, 0)
	for rows.Next() {
		var order contracts.Order
		err := rows.Scan(&order.ID, &order.PlanID, &order.ExecutionID, &order.Symbol, &order.Market,
			&order.Side, &order.Qty, &order.OrderType, &order.LimitPrice,
			&order.EstimatedCost, &order.Status, &order.BrokerOrderID, &order.Error, &order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// SaveFill persists a fill
func (r *Repository) SaveFill(ctx context.Context, fill *contracts.Fill) error {
	query := `
		INSERT INTO fills (id, order_id, filled_qty, filled_price, filled_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, fill.ID, fill.OrderID, fill.FilledQty, fill.FilledPrice, fill.FilledAt)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}
	return nil
}

// CreateRun inserts a run record
func (r *Repository) CreateRun(ctx context.Context, run *contracts.Run) error {
	metaJSON, err := json.Marshal(run.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}

	query := `
		INSERT INTO runs (id, kind, status, started_at, meta)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query, run.ID, string(run.Kind), string(run.Status), run.StartedAt, metaJSON)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// UpdateRun persists run status, end time, meta, and error
func (r *Repository) UpdateRun(ctx context.Context, run *contracts.Run) error {
	metaJSON, err := json.Marshal(run.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}

	query := `
		UPDATE runs
		SET status = $2, ended_at = $3, meta = $4, error = $5
		WHERE id = $1
	`
	_, err = r.pool.Exec(ctx, query, run.ID, string(run.Status), run.EndedAt, metaJSON, nullIfEmptyStr(run.Error))
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

func nilIfZero(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullIfEmptyStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
