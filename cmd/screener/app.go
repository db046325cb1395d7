package main

import (
	"context"
	"fmt"

	"github.com/yourusername/stock-screener/internal/backtest"
	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/database"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/repository"
	"github.com/yourusername/stock-screener/internal/signal"
)

// app holds the dependencies shared by the commands.
type app struct {
	httpClient *datasource.RateLimitedHTTPClient
	factory    *datasource.Factory
	provider   datasource.PriceProvider
	scorer     *signal.Generator
	backtest   backtest.BacktestConfig
	db         *database.DB
	repos      *repository.Repositories
}

func newApp() (*app, error) {
	factory := datasource.NewFactory(cfg.DataSource, log)
	httpClient := datasource.NewRateLimitedHTTPClient(factory.HTTPClientConfig(), log)

	provider, err := factory.NewProvider(httpClient)
	if err != nil {
		httpClient.Close()
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}
	bt, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		httpClient.Close()
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}

	return &app{
		httpClient: httpClient,
		factory:    factory,
		provider:   provider,
		scorer:     signal.NewGenerator(cfg.ScanWeights()),
		backtest:   bt,
	}, nil
}

// openStore connects and migrates the database. Commands call it only when
// persistence was requested.
func (a *app) openStore(ctx context.Context) (*repository.Repositories, error) {
	if a.repos != nil {
		return a.repos, nil
	}
	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	a.repos = repos
	return repos, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.httpClient.Close()
}

// universe resolves the symbols a command works on: the --symbols flag, then
// the configured list, then the S&P 500 scrape (or its fallback list). Without
// the flag, scan.filter_method and scan.max_symbols narrow the result.
func (a *app) universe(ctx context.Context) []string {
	fetcher := a.factory.NewSymbolFetcher(a.httpClient)
	var fetch func(context.Context) []string
	if cfg.Scan.UseSP500 {
		fetch = fetcher.Universe
	}
	return resolveUniverse(ctx, symbolList, cfg.Scan, fetch, fetcher.Prioritize)
}

// prioritizeFunc orders symbols and keeps at most n.
type prioritizeFunc func(ctx context.Context, symbols []string, n int) []string

func resolveUniverse(ctx context.Context, flag string, scan config.ScanConfig, fetch func(context.Context) []string, prioritize prioritizeFunc) []string {
	if flag != "" {
		return datasource.ParseSymbolList(flag)
	}
	var symbols []string
	switch {
	case len(scan.Symbols) > 0:
		symbols = datasource.FilterSymbols(scan.Symbols)
	case fetch != nil:
		symbols = fetch(ctx)
	default:
		symbols = datasource.FallbackSymbols()
	}
	if scan.FilterMethod == datasource.FilterIndexPriority && prioritize != nil {
		return prioritize(ctx, symbols, scan.MaxSymbols)
	}
	if scan.MaxSymbols > 0 && len(symbols) > scan.MaxSymbols {
		symbols = symbols[:scan.MaxSymbols]
	}
	return symbols
}

// singleSymbol returns the one symbol a per-symbol command needs.
func singleSymbol(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("exactly one symbol is required")
	}
	symbol := datasource.NormalizeSymbol(args[0])
	if err := datasource.ValidateSymbol(symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// resolveTimeframe applies the --timeframe flag over a configured default.
func resolveTimeframe(configured string) (models.Timeframe, error) {
	name := configured
	if timeframe != "" {
		name = timeframe
	}
	return models.LookupTimeframe(name)
}

// scoredBars fetches one symbol and attaches scores.
func (a *app) scoredBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	bars, err := a.provider.FetchBars(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrEmptySeries)
	}
	return a.scorer.Score(bars), nil
}
