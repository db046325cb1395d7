package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/models"
)

// Constituent tables scraped for the screening universe.
const (
	DefaultSP500URL     = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	DefaultNasdaq100URL = "https://en.wikipedia.org/wiki/NASDAQ-100"
)

// SymbolFetcher loads index constituents from Wikipedia tables
type SymbolFetcher struct {
	httpClient   *RateLimitedHTTPClient
	sp500URL     string
	nasdaq100URL string
	logger       *logrus.Entry
}

// NewSymbolFetcher creates a fetcher. Empty URLs use the Wikipedia defaults.
func NewSymbolFetcher(httpClient *RateLimitedHTTPClient, sp500URL, nasdaq100URL string, logger *logrus.Logger) *SymbolFetcher {
	if sp500URL == "" {
		sp500URL = DefaultSP500URL
	}
	if nasdaq100URL == "" {
		nasdaq100URL = DefaultNasdaq100URL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SymbolFetcher{
		httpClient:   httpClient,
		sp500URL:     sp500URL,
		nasdaq100URL: nasdaq100URL,
		logger:       logger.WithField("component", "symbol_fetcher"),
	}
}

// FetchSP500 scrapes the S&P 500 constituents table.
func (f *SymbolFetcher) FetchSP500(ctx context.Context) ([]string, error) {
	return f.scrape(ctx, f.sp500URL)
}

// FetchNasdaq100 scrapes the NASDAQ-100 components table.
func (f *SymbolFetcher) FetchNasdaq100(ctx context.Context) ([]string, error) {
	return f.scrape(ctx, f.nasdaq100URL)
}

// scrape reads the ticker column of the constituents table at url. The
// column is the one headed Symbol or Ticker, else the first.
func (f *SymbolFetcher) scrape(ctx context.Context, url string) ([]string, error) {
	resp, err := f.httpClient.Get(ctx, url)
	if err != nil {
		return nil, NewDataSourceError("wikipedia", ErrCodeNetworkError, "failed to fetch constituents", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, NewDataSourceError("wikipedia", ErrCodeServerError, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, NewDataSourceError("wikipedia", ErrCodeInvalidData, "failed to parse page", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}

	column := 0
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		switch strings.TrimSpace(th.Text()) {
		case "Symbol", "Ticker":
			column = i
			return false
		}
		return true
	})

	seen := map[string]bool{}
	symbols := []string{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cell := row.Find("td").Eq(column)
		if cell.Length() == 0 {
			return
		}
		symbol := NormalizeSymbol(cell.Text())
		if !ValidSymbol(symbol) || seen[symbol] {
			return
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	})

	if len(symbols) == 0 {
		return nil, NewDataSourceError("wikipedia", ErrCodeInvalidData, "no symbols in constituents table", nil)
	}
	return symbols, nil
}

// Universe returns the S&P 500 list, or FallbackSymbols when scraping fails.
func (f *SymbolFetcher) Universe(ctx context.Context) []string {
	symbols, err := f.FetchSP500(ctx)
	if err != nil {
		f.logger.WithError(err).Warn("Falling back to built-in symbol list")
		return FallbackSymbols()
	}
	f.logger.WithField("count", len(symbols)).Info("Loaded symbol universe")
	return symbols
}

// Nasdaq100 returns the NASDAQ-100 list, or FallbackNasdaq100Symbols when
// scraping fails.
func (f *SymbolFetcher) Nasdaq100(ctx context.Context) []string {
	symbols, err := f.FetchNasdaq100(ctx)
	if err != nil {
		f.logger.WithError(err).Warn("Falling back to built-in NASDAQ-100 list")
		return FallbackNasdaq100Symbols()
	}
	return symbols
}

// Prioritize orders universe by index membership and keeps the first n.
// See IndexPriority.
func (f *SymbolFetcher) Prioritize(ctx context.Context, universe []string, n int) []string {
	sp500 := f.Universe(ctx)
	nasdaq100 := f.Nasdaq100(ctx)
	out := IndexPriority(universe, sp500, nasdaq100, Dow30Symbols(), n)
	f.logger.WithFields(logrus.Fields{
		"universe": len(universe),
		"selected": len(out),
	}).Info("Applied index priority")
	return out
}

// NormalizeSymbol trims and upper-cases a ticker and uses '-' for share classes.
func NormalizeSymbol(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), ".", "-")
}

// ValidSymbol rejects indices, pairs and special tickers.
func ValidSymbol(s string) bool {
	if len(s) == 0 || len(s) > 10 {
		return false
	}
	return !strings.ContainsAny(s, "^/$")
}

// FilterSymbols normalises, validates and de-duplicates symbols in order.
func FilterSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if !ValidSymbol(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// FallbackSymbols is a fixed list of large US listings.
func FallbackSymbols() []string {
	return FilterSymbols([]string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK-B",
		"UNH", "XOM", "JNJ", "JPM", "V", "PG", "MA", "CVX", "HD", "ABBV",
		"AVGO", "MRK", "COST", "PEP", "ADBE", "TMO", "CSCO", "WMT", "ACN",
		"ABT", "NFLX", "DHR", "VZ", "CMCSA", "NKE", "PM", "TXN", "LIN",
		"NEE", "DIS", "HON", "AMGN", "RTX", "INTU", "IBM", "AMAT", "GE",
		"BKNG", "AXP", "SYK", "LOW", "ADP", "TJX", "ISRG", "DE", "C",
		"BLK", "SBUX", "MMC", "MO", "ZTS", "CI", "MDT", "PNC", "USB",
		"GS", "CL", "TGT", "WM", "DUK", "SO", "AON", "ITW", "ETN",
		"AMD", "INTC", "QCOM", "LRCX", "KLAC", "CDNS", "SNPS", "FTNT",
		"NXPI", "MCHP", "ON", "MRVL", "CRWD", "ZS", "DDOG", "NET", "SNOW",
		"BAC", "WFC", "MS", "COF", "SLB", "EOG", "MPC", "VLO",
		"BA", "CAT", "LMT", "NOC", "GD", "T", "AEP", "SRE", "EXC",
		"SPY", "QQQ", "DIA", "IWM", "VTI", "VOO",
	})
}

// ParseSymbolList splits a comma or whitespace separated list.
func ParseSymbolList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	return FilterSymbols(fields)
}

// ValidateSymbol returns models.ErrInvalidSymbol for unusable tickers.
func ValidateSymbol(s string) error {
	if !ValidSymbol(s) {
		return fmt.Errorf("%w: %q", models.ErrInvalidSymbol, s)
	}
	return nil
}
