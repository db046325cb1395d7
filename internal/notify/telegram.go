package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
)

// DefaultTelegramURL is the Bot API root.
const DefaultTelegramURL = "https://api.telegram.org"

// Options are shared by every notifier.
type Options struct {
	MaxSignals int
	MinLevel   models.Level
	Now        func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// TelegramNotifier sends alerts through a Telegram bot.
type TelegramNotifier struct {
	client  *datasource.RateLimitedHTTPClient
	baseURL string
	token   string
	chatID  string
	opts    Options
}

// NewTelegramNotifier creates a Telegram notifier.
func NewTelegramNotifier(client *datasource.RateLimitedHTTPClient, baseURL, token, chatID string, opts Options) (*TelegramNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &TelegramNotifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		opts:    opts,
	}, nil
}

// Name identifies the channel in logs and metrics.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends one message listing the alerts. Nothing is sent when no
// alert passes the level filter.
func (t *TelegramNotifier) Notify(ctx context.Context, alerts []models.SignalAlert) error {
	alerts = FilterByLevel(alerts, t.opts.MinLevel)
	if len(alerts) == 0 {
		return nil
	}
	return t.Send(ctx, FormatAlerts(alerts, t.opts.MaxSignals, t.opts.now()))
}

// Send posts a raw HTML message.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{ChatID: t.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.Post(ctx, url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out telegramResponse
	_ = json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, desc)
	}
	return nil
}
