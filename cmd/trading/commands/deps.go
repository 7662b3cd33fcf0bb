package commands

import (
	"fmt"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/broker"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/ops"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/portfolio"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/strategy"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/config"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/database"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/httputil"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/redis"
)

// appDeps bundles the wired application graph shared by CLI commands
// ⭐ SSOT: 의존성 조립은 이 파일에서만
type appDeps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *database.DB
	Redis *redis.Client

	ControlRepo   *guards.ControlRepository
	ExecutionRepo *execution.Repository
	PortfolioRepo *portfolio.Repository
	Guard         *guards.Guard
	Broker        broker.Broker
	Audit         *ops.AuditRecorder
	Notifier      *ops.Notifier
	Engine        *execution.Engine
}

// initApp loads config and wires the full dependency graph.
// Redis가 비활성화된 환경에서는 cache 없이 동작한다.
func initApp() (*appDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	var redisClient *redis.Client
	var quoteCache *redis.Cache
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(cfg)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		quoteCache = redis.NewCache(redisClient, "quote")
	}

	httpClient := httputil.New(log)

	controlRepo := guards.NewControlRepository(db.Pool)
	executionRepo := execution.NewRepository(db.Pool)
	portfolioRepo := portfolio.NewRepository(db.Pool)

	guard := guards.New(controlRepo, executionRepo, cfg.Broker.EnableLiveTrading)

	brk, err := broker.New(cfg, guard, httpClient, quoteCache, log)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		db.Close()
		return nil, fmt.Errorf("create broker: %w", err)
	}

	auditRecorder := ops.NewAuditRecorder(db.Pool, log)
	notifier := ops.NewNotifier(cfg.Slack, cfg.Env, httpClient, db.Pool, log)

	selector := strategy.New(cfg.Strategy, log)
	checker := portfolio.NewChecker(cfg.Constraints, cfg.Strategy)

	engine := execution.NewEngine(cfg, execution.EngineDeps{
		Selector:  selector,
		Checker:   checker,
		Guard:     guard,
		Plans:     executionRepo,
		Execs:     executionRepo,
		Runs:      executionRepo,
		Snapshots: portfolioRepo,
		Quotes:    brk,
		Audit:     auditRecorder,
		Notifier:  notifier,
	}, log)

	return &appDeps{
		Config:        cfg,
		Logger:        log,
		DB:            db,
		Redis:         redisClient,
		ControlRepo:   controlRepo,
		ExecutionRepo: executionRepo,
		PortfolioRepo: portfolioRepo,
		Guard:         guard,
		Broker:        brk,
		Audit:         auditRecorder,
		Notifier:      notifier,
		Engine:        engine,
	}, nil
}

// Close releases database and cache connections
func (d *appDeps) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
