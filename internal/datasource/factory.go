package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// YahooSourceType uses the Yahoo Finance chart API
	YahooSourceType SourceType = "yahoo"
	// AlpacaSourceType uses Alpaca market data
	AlpacaSourceType SourceType = "alpaca"
)

// Factory creates PriceProvider implementations based on configuration
type Factory struct {
	logger *logrus.Logger
	config config.DataSourceConfig
}

// NewFactory creates a new data source factory
func NewFactory(cfg config.DataSourceConfig, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	return &Factory{logger: logger, config: cfg}
}

// HTTPClientConfig derives HTTP client settings from configuration
func (f *Factory) HTTPClientConfig() HTTPClientConfig {
	httpCfg := DefaultHTTPClientConfig()
	if f.config.Timeout > 0 {
		httpCfg.Timeout = f.config.Timeout
	}
	if f.config.MaxRetries > 0 {
		httpCfg.MaxRetries = f.config.MaxRetries
	}
	if f.config.RateLimit > 0 {
		httpCfg.RateLimit = f.config.RateLimit
	}
	return httpCfg
}

// NewProvider creates the configured provider, wrapped in a cache when a
// TTL is set.
func (f *Factory) NewProvider(httpClient *RateLimitedHTTPClient) (PriceProvider, error) {
	var (
		provider PriceProvider
		err      error
	)
	switch SourceType(f.config.Provider) {
	case YahooSourceType, "":
		if httpClient == nil {
			return nil, fmt.Errorf("HTTP client is required")
		}
		provider = NewYahooClient(httpClient, f.config.BaseURL, f.logger)
	case AlpacaSourceType:
		provider, err = NewAlpacaClient(f.config.APIKey, f.config.APISecret, f.config.BaseURL, f.logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown data source: %s", f.config.Provider)
	}

	f.logger.WithField("provider", provider.Name()).Info("Created data source")
	if f.config.CacheTTL > 0 {
		return NewCachedProvider(provider, f.config.CacheTTL, f.config.CacheMaxSize), nil
	}
	return provider, nil
}

// NewSymbolFetcher creates the universe scraper for this configuration
func (f *Factory) NewSymbolFetcher(httpClient *RateLimitedHTTPClient) *SymbolFetcher {
	return NewSymbolFetcher(httpClient, f.config.SymbolsURL, f.config.Nasdaq100URL, f.logger)
}

// ListAvailableSources returns the supported source types
func (f *Factory) ListAvailableSources() []SourceType {
	return []SourceType{YahooSourceType, AlpacaSourceType}
}
