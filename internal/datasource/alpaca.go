package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/stock-screener/internal/models"
)

const alpacaSourceName = "alpaca"

// alpacaBarsClient is the subset of the Alpaca market data client in use.
type alpacaBarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaClient implements PriceProvider over Alpaca historical bars
type AlpacaClient struct {
	client alpacaBarsClient
	now    func() time.Time
	logger *logrus.Entry
}

// NewAlpacaClient creates a client using API key credentials.
func NewAlpacaClient(apiKey, apiSecret, baseURL string, logger *logrus.Logger) (*AlpacaClient, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, NewDataSourceError(alpacaSourceName, ErrCodeAuthenticationFailed, "API key and secret are required", nil)
	}
	opts := marketdata.ClientOpts{APIKey: apiKey, APISecret: apiSecret}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	return newAlpacaClient(marketdata.NewClient(opts), logger), nil
}

func newAlpacaClient(client alpacaBarsClient, logger *logrus.Logger) *AlpacaClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &AlpacaClient{
		client: client,
		now:    time.Now,
		logger: logger.WithField("source", alpacaSourceName),
	}
}

// Name returns the name of the data source
func (c *AlpacaClient) Name() string {
	return alpacaSourceName
}

// FetchBars retrieves bars for symbol over the timeframe's period
func (c *AlpacaClient) FetchBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeFrame, err := alpacaTimeFrame(tf.Interval)
	if err != nil {
		return nil, NewDataSourceError(alpacaSourceName, ErrCodeInvalidData, "unsupported interval", err)
	}
	period, err := models.ParseInterval(tf.Period)
	if err != nil {
		return nil, NewDataSourceError(alpacaSourceName, ErrCodeInvalidData, "unsupported period", err)
	}

	end := c.now().UTC()
	raw, err := c.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: timeFrame,
		Start:     end.Add(-period),
		End:       end,
	})
	if err != nil {
		return nil, NewDataSourceError(alpacaSourceName, ErrCodeNetworkError, "failed to fetch bars for "+symbol, err)
	}
	if len(raw) == 0 {
		return nil, NewDataSourceError(alpacaSourceName, ErrCodeNotFound, "no bars for "+symbol, nil)
	}

	bars := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		if n := len(bars); n > 0 && !b.Timestamp.After(bars[n-1].Timestamp) {
			continue
		}
		bars = append(bars, models.Bar{
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	c.logger.WithFields(logrus.Fields{"symbol": symbol, "bars": len(bars)}).Debug("Fetched bars")
	return bars, nil
}

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	d, err := models.ParseInterval(interval)
	if err != nil {
		return marketdata.TimeFrame{}, err
	}
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return marketdata.NewTimeFrame(int(d/(24*time.Hour)), marketdata.Day), nil
	case d >= time.Hour && d%time.Hour == 0:
		return marketdata.NewTimeFrame(int(d/time.Hour), marketdata.Hour), nil
	case d >= time.Minute && d%time.Minute == 0:
		return marketdata.NewTimeFrame(int(d/time.Minute), marketdata.Min), nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("interval %q not supported", interval)
	}
}
