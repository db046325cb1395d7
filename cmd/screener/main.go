// Package main provides the stock-screener command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	envFile    string
	symbolList string
	timeframe  string
	log        *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before the configuration")
	rootCmd.PersistentFlags().StringVarP(&symbolList, "symbols", "s", "", "Comma separated symbols, overriding the configured universe")
	rootCmd.PersistentFlags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe: day_trading, short_swing or long_swing")

	rootCmd.AddCommand(
		scanCmd,
		backtestCmd,
		compareCmd,
		walkForwardCmd,
		optimizeCmd,
		recommendCmd,
		bestCmd,
		performanceCmd,
		serveCmd,
		versionCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:           "screener",
	Short:         "Screen stocks by composite technical score and backtest the signals",
	Long:          `Scores a stock universe with RSI, MACD, moving averages, Bollinger Bands, volume and momentum, backtests hold / stop-loss / take-profit exits over the signals, sweeps strategy parameters and serves a monitoring dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		return loadConfig(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("screener %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, loaded); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateEnvironment(loaded); err != nil {
		return err
	}

	cfg = loaded
	log = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"provider":    cfg.DataSource.Provider,
		"version":     Version,
	}).Debug("Configuration loaded")
	return nil
}
