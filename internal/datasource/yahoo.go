package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/models"
)

const (
	yahooSourceName     = "yahoo"
	defaultYahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// YahooClient implements PriceProvider for the Yahoo Finance chart API
type YahooClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	logger     *logrus.Entry
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// NewYahooClient creates a new Yahoo Finance client. An empty baseURL uses
// the public endpoint.
func NewYahooClient(httpClient *RateLimitedHTTPClient, baseURL string, logger *logrus.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &YahooClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.WithField("source", yahooSourceName),
	}
}

// Name returns the name of the data source
func (c *YahooClient) Name() string {
	return yahooSourceName
}

// FetchBars retrieves bars for symbol over the timeframe's period
func (c *YahooClient) FetchBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	query := url.Values{}
	query.Set("interval", tf.Interval)
	query.Set("range", tf.Period)
	query.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "failed to fetch chart for "+symbol, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "symbol not found: "+symbol, nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeAuthenticationFailed, "request rejected", nil)
	case http.StatusTooManyRequests:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(yahooSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}
	if chart.Chart.Error != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, chart.Chart.Error.Description, nil)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "empty chart for "+symbol, nil)
	}

	bars := convertChart(chart.Chart.Result[0])
	if len(bars) == 0 {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "no bars for "+symbol, nil)
	}
	c.logger.WithFields(logrus.Fields{"symbol": symbol, "bars": len(bars), "interval": tf.Interval}).Debug("Fetched chart")
	return bars, nil
}

// convertChart drops rows without a close and any row that does not advance
// the timestamp.
func convertChart(result yahooChartResult) []models.Bar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	q := result.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := valueAt(q.Close, i)
		if closePrice == nil {
			continue
		}
		bar := models.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      derefOr(valueAt(q.Open, i), *closePrice),
			High:      derefOr(valueAt(q.High, i), *closePrice),
			Low:       derefOr(valueAt(q.Low, i), *closePrice),
			Close:     *closePrice,
			Volume:    derefOr(valueAt(q.Volume, i), 0),
		}
		if n := len(bars); n > 0 && !bar.Timestamp.After(bars[n-1].Timestamp) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
