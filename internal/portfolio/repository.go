package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// ErrNoSnapshot is returned when no portfolio snapshot exists yet
var ErrNoSnapshot = errors.New("no portfolio snapshot found")

// ErrNoConfigVersion is returned when no config version exists yet
var ErrNoConfigVersion = errors.New("no config version found")

// ErrNoDataSnapshot is returned when no data snapshot exists yet
var ErrNoDataSnapshot = errors.New("no data snapshot found")

// Repository handles portfolio snapshot and config persistence
// ⭐ SSOT: 포트폴리오 스냅샷 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot persists a portfolio snapshot
func (r *Repository) SaveSnapshot(ctx context.Context, snap *contracts.PortfolioSnapshot) error {
	positions, err := json.Marshal(snap.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	query := `
		INSERT INTO portfolio_snapshots (id, asof, mode, positions, cash, nav, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, query,
		snap.ID, snap.Asof, snap.Mode, positions, snap.Cash, snap.NAV, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot retrieves the most recent portfolio snapshot by asof
func (r *Repository) LatestSnapshot(ctx context.Context) (*contracts.PortfolioSnapshot, error) {
	query := `
		SELECT id, asof, mode, positions, cash, nav, created_at
		FROM portfolio_snapshots
		ORDER BY asof DESC
		LIMIT 1
	`

	var snap contracts.PortfolioSnapshot
	var positions []byte
	err := r.pool.QueryRow(ctx, query).Scan(
		&snap.ID, &snap.Asof, &snap.Mode, &positions, &snap.Cash, &snap.NAV, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if err := json.Unmarshal(positions, &snap.Positions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal positions: %w", err)
	}

	return &snap, nil
}

// SaveConfigVersion persists a config version record
func (r *Repository) SaveConfigVersion(ctx context.Context, cv *contracts.ConfigVersion) error {
	params, err := json.Marshal(cv.StrategyParams)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy params: %w", err)
	}
	constraints, err := json.Marshal(cv.Constraints)
	if err != nil {
		return fmt.Errorf("failed to marshal constraints: %w", err)
	}

	if cv.ID == uuid.Nil {
		cv.ID = uuid.New()
	}
	if cv.CreatedAt.IsZero() {
		cv.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO config_versions (id, mode, strategy_name, strategy_params, constraints, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		cv.ID, cv.Mode, cv.StrategyName, params, constraints, cv.CreatedAt, cv.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save config version: %w", err)
	}

	return nil
}

// LatestConfigVersion retrieves the most recent config version
func (r *Repository) LatestConfigVersion(ctx context.Context) (*contracts.ConfigVersion, error) {
	query := `
		SELECT id, mode, strategy_name, strategy_params, constraints, created_at, created_by
		FROM config_versions
		ORDER BY created_at DESC
		LIMIT 1
	`

	var cv contracts.ConfigVersion
	var params, constraints []byte
	err := r.pool.QueryRow(ctx, query).Scan(
		&cv.ID, &cv.Mode, &cv.StrategyName, &params, &constraints, &cv.CreatedAt, &cv.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoConfigVersion
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest config version: %w", err)
	}

	if err := json.Unmarshal(params, &cv.StrategyParams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strategy params: %w", err)
	}
	if err := json.Unmarshal(constraints, &cv.Constraints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal constraints: %w", err)
	}

	return &cv, nil
}

// SaveDataSnapshot persists a data snapshot record
func (r *Repository) SaveDataSnapshot(ctx context.Context, ds *contracts.DataSnapshot) error {
	meta, err := json.Marshal(ds.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO data_snapshots (id, source, asof, meta, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.pool.Exec(ctx, query, ds.ID, ds.Source, ds.Asof, meta, ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save data snapshot: %w", err)
	}

	return nil
}

// LatestDataSnapshot retrieves the most recent data snapshot
func (r *Repository) LatestDataSnapshot(ctx context.Context) (*contracts.DataSnapshot, error) {
	query := `
		SELECT id, source, asof, meta, created_at
		FROM data_snapshots
		ORDER BY asof DESC
		LIMIT 1
	`

	var ds contracts.DataSnapshot
	var meta []byte
	err := r.pool.QueryRow(ctx, query).Scan(&ds.ID, &ds.Source, &ds.Asof, &meta, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDataSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest data snapshot: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &ds.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
		}
	}

	return &ds, nil
}
