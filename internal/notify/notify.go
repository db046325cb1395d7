package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
)

// Notifier delivers alerts to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alerts []models.SignalAlert) error
}

// FromConfig builds every enabled notifier. With none enabled the result is
// empty.
func FromConfig(cfg config.NotifierConfig, client *datasource.RateLimitedHTTPClient, logger *logrus.Logger) ([]Notifier, error) {
	opts := Options{MaxSignals: cfg.MaxSignals}
	if cfg.MinLevel != "" {
		level, err := models.ParseLevel(cfg.MinLevel)
		if err != nil {
			return nil, err
		}
		opts.MinLevel = level
	}

	var notifiers []Notifier
	if cfg.Telegram.Enabled {
		t, err := NewTelegramNotifier(client, cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, opts)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		notifiers = append(notifiers, t)
	}
	if cfg.Kakao.Enabled {
		k, err := NewKakaoNotifier(client, cfg.Kakao.BaseURL, cfg.Kakao.AccessToken, opts)
		if err != nil {
			return nil, fmt.Errorf("kakao: %w", err)
		}
		notifiers = append(notifiers, k)
	}
	if logger != nil {
		names := make([]string, 0, len(notifiers))
		for _, n := range notifiers {
			names = append(names, n.Name())
		}
		logger.WithField("channels", names).Info("Notifiers configured")
	}
	return notifiers, nil
}
