package guards

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// ControlRepository persists the single-row kill switch record.
// 행이 하나뿐이므로 id=1 고정.
type ControlRepository struct {
	pool *pgxpool.Pool
}

// NewControlRepository creates a control repository
func NewControlRepository(pool *pgxpool.Pool) *ControlRepository {
	return &ControlRepository{pool: pool}
}

// GetControl returns the control record, auto-initializing it to "off"
// on first access. The insert-then-select keeps concurrent first
// accesses from racing.
func (r *ControlRepository) GetControl(ctx context.Context) (*contracts.Control, error) {
	insert := `
		INSERT INTO controls (id, kill_switch, updated_at)
		VALUES (1, false, $1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to initialize control: %w", err)
	}

	query := `SELECT kill_switch, COALESCE(reason, ''), updated_at FROM controls WHERE id = 1`

	var control contracts.Control
	err := r.pool.QueryRow(ctx, query).Scan(&control.KillSwitch, &control.Reason, &control.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get control: %w", err)
	}

	return &control, nil
}

// SetKillSwitch toggles the kill switch with a reason
func (r *ControlRepository) SetKillSwitch(ctx context.Context, on bool, reason string) error {
	query := `
		INSERT INTO controls (id, kill_switch, reason, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			kill_switch = EXCLUDED.kill_switch,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, on, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set kill switch: %w", err)
	}

	return nil
}
