package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Broker
	Broker BrokerConfig

	// Strategy & constraints
	Strategy    StrategyConfig
	Constraints ConstraintsConfig

	// Plan lifecycle
	PlanTTL time.Duration // PROPOSED 플랜 만료 시간

	// Notifications
	Slack SlackConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration (quote cache)
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// BrokerConfig selects and configures the broker adapter
type BrokerConfig struct {
	Mode              string // paper | live
	EnableLiveTrading bool   // live 주문 가드 (기본: false)
	StubPriceSeed     int64  // paper 모드 결정적 가격 시드

	KIS KISConfig
}

// KISConfig holds KIS (한국투자증권) API configuration for the live adapter
type KISConfig struct {
	AppKey    string
	AppSecret string
	AccountNo string
	BaseURL   string
	WSURL     string
}

// StrategyConfig holds dual-momentum strategy parameters
type StrategyConfig struct {
	LookbackMonths int
	KRTopM         int
	USTopN         int
	KRSplit        float64
	USSplit        float64
	UniverseDir    string // universe_kr.csv / universe_us.csv 위치
}

// ConstraintsConfig holds portfolio construction constraint thresholds
type ConstraintsConfig struct {
	MaxPositions     int
	MaxWeightPerName float64
	SplitTolerance   float64
}

// SlackConfig holds Slack webhook URLs per channel.
// Empty URL means notifications for that channel are a no-op.
type SlackConfig struct {
	WebhookDev       string
	WebhookAlerts    string
	WebhookDecisions string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Broker
		Broker: BrokerConfig{
			Mode:              getEnv("BROKER_MODE", "paper"),
			EnableLiveTrading: getEnvAsBool("ENABLE_LIVE_TRADING", false),
			StubPriceSeed:     getEnvAsInt64("STUB_PRICE_SEED", 42),
			KIS: KISConfig{
				AppKey:    getEnv("KIS_APP_KEY", ""),
				AppSecret: getEnv("KIS_APP_SECRET", ""),
				AccountNo: getEnv("KIS_ACCOUNT_NO", ""),
				BaseURL:   getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
				WSURL:     getEnv("KIS_WS_URL", "ws://ops.koreainvestment.com:21000"),
			},
		},

		// Strategy
		Strategy: StrategyConfig{
			LookbackMonths: getEnvAsInt("STRATEGY_LOOKBACK_MONTHS", 3),
			KRTopM:         getEnvAsInt("STRATEGY_KR_TOP_M", 2),
			USTopN:         getEnvAsInt("STRATEGY_US_TOP_N", 4),
			KRSplit:        getEnvAsFloat("STRATEGY_KR_SPLIT", 0.4),
			USSplit:        getEnvAsFloat("STRATEGY_US_SPLIT", 0.6),
			UniverseDir:    getEnv("UNIVERSE_DIR", "config"),
		},

		// Constraints
		Constraints: ConstraintsConfig{
			MaxPositions:     getEnvAsInt("CONSTRAINTS_MAX_POSITIONS", 20),
			MaxWeightPerName: getEnvAsFloat("CONSTRAINTS_MAX_WEIGHT_PER_NAME", 0.30),
			SplitTolerance:   getEnvAsFloat("CONSTRAINTS_SPLIT_TOLERANCE", 0.01),
		},

		// Plan lifecycle
		PlanTTL: getEnvAsDuration("PLAN_TTL", "72h"),

		// Notifications
		Slack: SlackConfig{
			WebhookDev:       getEnv("SLACK_WEBHOOK_DEV", ""),
			WebhookAlerts:    getEnv("SLACK_WEBHOOK_ALERTS", ""),
			WebhookDecisions: getEnv("SLACK_WEBHOOK_DECISIONS", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Broker.Mode != "paper" && c.Broker.Mode != "live" {
		return fmt.Errorf("BROKER_MODE must be one of: paper, live")
	}

	if c.Strategy.KRTopM <= 0 || c.Strategy.USTopN <= 0 {
		return fmt.Errorf("STRATEGY_KR_TOP_M and STRATEGY_US_TOP_N must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
