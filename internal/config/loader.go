package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix         = "STOCK_SCREENER"
	defaultConfigPath = "config/config.yaml"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables.
// ${VAR} placeholders in the YAML are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration, seeding defaults for every optional
// field. A missing file is not an error.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stock-screener")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "stock_screener")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("datasource.provider", "yahoo")
	v.SetDefault("datasource.base_url", "")
	v.SetDefault("datasource.api_key", "")
	v.SetDefault("datasource.api_secret", "")
	v.SetDefault("datasource.timeout", "30s")
	v.SetDefault("datasource.max_retries", 3)
	v.SetDefault("datasource.rate_limit", 5.0)
	v.SetDefault("datasource.cache_ttl", "15m")
	v.SetDefault("datasource.cache_max_size", 1000)
	v.SetDefault("datasource.symbols_url", "")
	v.SetDefault("datasource.nasdaq100_url", "")

	v.SetDefault("scan.timeframe", "short_swing")
	v.SetDefault("scan.min_score", 7.5)
	v.SetDefault("scan.concurrency", 10)
	v.SetDefault("scan.use_sp500", true)
	v.SetDefault("scan.max_symbols", 0)
	v.SetDefault("scan.filter_method", "none")

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.hold_unit", "auto")
	v.SetDefault("backtest.stop_loss", 0.05)
	v.SetDefault("backtest.take_profit", 0.10)
	v.SetDefault("backtest.max_hold", 5)
	v.SetDefault("backtest.compare_holds", []int{1, 3, 5, 10, 20})
	v.SetDefault("backtest.output_dir", "./output")

	v.SetDefault("optimizer.timeframe", "long_swing")
	v.SetDefault("optimizer.sample_size", 30)
	v.SetDefault("optimizer.workers", 8)
	v.SetDefault("optimizer.target_return", 50.0)
	v.SetDefault("optimizer.fallback_target", 30.0)
	v.SetDefault("optimizer.top_n", 20)
	v.SetDefault("optimizer.rank_by", "annual")
	v.SetDefault("optimizer.seed", 42)
	v.SetDefault("optimizer.random_sample", false)
	v.SetDefault("optimizer.period_fallback_days", 90)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.scan_cron", "*/30 * * * *")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("notifier.max_signals", 10)
	v.SetDefault("notifier.min_level", "")
	v.SetDefault("notifier.telegram.enabled", false)
	v.SetDefault("notifier.telegram.bot_token", "")
	v.SetDefault("notifier.telegram.chat_id", "")
	v.SetDefault("notifier.kakao.enabled", false)
	v.SetDefault("notifier.kakao.access_token", "")

	v.SetDefault("secrets.enabled", false)
	v.SetDefault("secrets.region", "")
	v.SetDefault("secrets.secret_name", "")
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped; existing variables are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ReloadFromEnv reloads the configuration when STOCK_SCREENER_CONFIG_PATH is set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := LoadWithDefaults(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
