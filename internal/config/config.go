// Package config provides configuration management for the stock screener.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/stock-screener/internal/signal"
	"github.com/yourusername/stock-screener/internal/strategy"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	DataSource DataSourceConfig `mapstructure:"datasource" validate:"required"`
	Scan       ScanConfig       `mapstructure:"scan" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. Persistence
// is optional; commands that store results require Enabled.
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// DataSourceConfig selects and tunes the price provider
type DataSourceConfig struct {
	Provider     string        `mapstructure:"provider" validate:"required,oneof=yahoo alpaca"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit    float64       `mapstructure:"rate_limit" validate:"gte=0"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	CacheMaxSize int           `mapstructure:"cache_max_size" validate:"gte=0"`
	SymbolsURL   string        `mapstructure:"symbols_url" validate:"omitempty,url"`
	Nasdaq100URL string        `mapstructure:"nasdaq100_url" validate:"omitempty,url"`
}

// ScanConfig controls the screening pass
type ScanConfig struct {
	Timeframe    string          `mapstructure:"timeframe" validate:"required,timeframe"`
	MinScore     float64         `mapstructure:"min_score" validate:"gte=0,lte=10"`
	Concurrency  int             `mapstructure:"concurrency" validate:"required,gt=0"`
	UseSP500     bool            `mapstructure:"use_sp500"`
	Symbols      []string        `mapstructure:"symbols"`
	MaxSymbols   int             `mapstructure:"max_symbols" validate:"gte=0"`
	FilterMethod string          `mapstructure:"filter_method" validate:"omitempty,oneof=none index_priority"`
	Weights      *signal.Weights `mapstructure:"weights"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	HoldUnit       string  `mapstructure:"hold_unit" validate:"omitempty,oneof=auto days bars"`
	StopLoss       float64 `mapstructure:"stop_loss" validate:"omitempty,gt=0,lt=1"`
	TakeProfit     float64 `mapstructure:"take_profit" validate:"omitempty,gt=0"`
	MaxHold        int     `mapstructure:"max_hold" validate:"omitempty,gt=0"`
	CompareHolds   []int   `mapstructure:"compare_holds" validate:"dive,gt=0"`
	OutputDir      string  `mapstructure:"output_dir"`
}

// OptimizerConfig controls the multi-parameter sweep
type OptimizerConfig struct {
	Timeframe          string               `mapstructure:"timeframe" validate:"required,timeframe"`
	SampleSize         int                  `mapstructure:"sample_size" validate:"required,gt=0"`
	Workers            int                  `mapstructure:"workers" validate:"required,gt=0"`
	TargetReturn       float64              `mapstructure:"target_return"`
	FallbackTarget     float64              `mapstructure:"fallback_target"`
	TopN               int                  `mapstructure:"top_n" validate:"required,gt=0"`
	RankBy             string               `mapstructure:"rank_by" validate:"omitempty,oneof=annual compound"`
	Seed               int64                `mapstructure:"seed"`
	RandomSample       bool                 `mapstructure:"random_sample"`
	PeriodFallbackDays int                  `mapstructure:"period_fallback_days" validate:"gte=0"`
	Grid               []strategy.LevelGrid `mapstructure:"grid"`
}

// SchedulerConfig represents periodic scan scheduling
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ScanCron string `mapstructure:"scan_cron" validate:"required_if=Enabled true"`
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig represents the dashboard and health listeners
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	HealthPort   int           `mapstructure:"health_port" validate:"omitempty,min=1,max=65535"`
	GRPCPort     int           `mapstructure:"grpc_port" validate:"omitempty,min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// NotifierConfig configures outbound signal alerts
type NotifierConfig struct {
	MaxSignals int            `mapstructure:"max_signals" validate:"gte=0"`
	MinLevel   string         `mapstructure:"min_level" validate:"omitempty,level"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
	Kakao      KakaoConfig    `mapstructure:"kakao"`
}

// TelegramConfig holds bot credentials
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID   string `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
}

// KakaoConfig holds the memo API token
type KakaoConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AccessToken string `mapstructure:"access_token" validate:"required_if=Enabled true"`
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
}

// SecretsConfig points at an AWS Secrets Manager secret
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ServerAddress returns the dashboard listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ScanWeights returns configured weights or the defaults
func (c *Config) ScanWeights() signal.Weights {
	if c.Scan.Weights == nil {
		return signal.DefaultWeights()
	}
	return *c.Scan.Weights
}

// OptimizerGrid builds the sweep grid, defaulting to the reference grid
func (c *Config) OptimizerGrid() (*strategy.Grid, error) {
	if len(c.Optimizer.Grid) == 0 {
		return strategy.DefaultGrid(), nil
	}
	return strategy.NewGrid(c.Optimizer.Grid...)
}
