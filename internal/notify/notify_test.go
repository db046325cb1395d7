package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/config"
	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func testClient() *datasource.RateLimitedHTTPClient {
	cfg := datasource.DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	cfg.RateLimit = 1000
	cfg.Timeout = 5 * time.Second
	return datasource.NewRateLimitedHTTPClient(cfg, nil)
}

func alerts(n int) []models.SignalAlert {
	out := make([]models.SignalAlert, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.SignalAlert{Signal: models.Signal{
			Symbol: string(rune('A'+i)) + "X",
			Level:  models.LevelBuy,
			Score:  7.6,
			Price:  10.5,
		}})
	}
	return out
}

func TestFormatAlertsEmpty(t *testing.T) {
	assert.Equal(t, "No new buy signals.", FormatAlerts(nil, 10, fixedNow))
}

func TestFormatAlerts(t *testing.T) {
	in := []models.SignalAlert{
		{Signal: models.Signal{Symbol: "AT&T", Level: models.LevelStrongBuy, Score: 8.44, Price: 17.2}},
		{Signal: models.Signal{Symbol: "MSFT", Level: models.LevelBuy, Score: 7.9, Price: 410}, PreviousLevel: models.LevelWatch},
	}
	msg := FormatAlerts(in, 10, fixedNow)

	assert.True(t, strings.HasPrefix(msg, "🔔 New buy signals (2)"))
	assert.Contains(t, msg, "🟢 <b>AT&amp;T</b>: Strong buy (new)")
	assert.Contains(t, msg, "🔵 <b>MSFT</b>: Buy (WATCH → BUY)")
	assert.Contains(t, msg, "Score: 8.4/10")
	assert.Contains(t, msg, "Price: $410.00")
	assert.True(t, strings.HasSuffix(msg, "⏰ 2024-05-01 09:30:00"))
	assert.NotContains(t, msg, "more")
}

func TestFormatAlertsTruncates(t *testing.T) {
	msg := FormatAlerts(alerts(12), 10, fixedNow)
	assert.Equal(t, 10, strings.Count(msg, "Score:"))
	assert.Contains(t, msg, "... and 2 more")
}

func TestFilterByLevel(t *testing.T) {
	in := []models.SignalAlert{
		{Signal: models.Signal{Symbol: "A", Level: models.LevelStrongBuy}},
		{Signal: models.Signal{Symbol: "B", Level: models.LevelBuy}},
		{Signal: models.Signal{Symbol: "C", Level: models.LevelWatch}},
	}
	assert.Len(t, FilterByLevel(in, ""), 3)
	assert.Len(t, FilterByLevel(in, models.LevelBuy), 2)
	assert.Len(t, FilterByLevel(in, models.LevelStrongBuy), 1)
}

func TestTelegramNotify(t *testing.T) {
	var got telegramMessage
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier(testClient(), server.URL, "123:abc", "42", Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	assert.Equal(t, "telegram", n.Name())

	require.NoError(t, n.Notify(context.Background(), alerts(2)))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "New buy signals (2)")
}

func TestTelegramNotifyRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier(testClient(), server.URL, "t", "c", Options{})
	require.NoError(t, err)

	err = n.Notify(context.Background(), alerts(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSkipsFilteredAlerts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier(testClient(), server.URL, "t", "c", Options{MinLevel: models.LevelStrongBuy})
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), alerts(3)))
	assert.Zero(t, calls)
}

func TestKakaoNotify(t *testing.T) {
	var form url.Values
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Write([]byte(`{"result_code":0}`))
	}))
	defer server.Close()

	n, err := NewKakaoNotifier(testClient(), server.URL, "kakao-token", Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	assert.Equal(t, "kakao", n.Name())

	in := []models.SignalAlert{{Signal: models.Signal{Symbol: "AT&T", Level: models.LevelBuy, Score: 7.6, Price: 17}}}
	require.NoError(t, n.Notify(context.Background(), in))

	assert.Equal(t, kakaoMemoPath, path)
	assert.Equal(t, "Bearer kakao-token", auth)

	var tmpl kakaoTextTemplate
	require.NoError(t, json.Unmarshal([]byte(form.Get("template_object")), &tmpl))
	assert.Equal(t, "text", tmpl.ObjectType)
	assert.Contains(t, tmpl.Text, "AT&T: Buy (new)")
	assert.NotContains(t, tmpl.Text, "<b>")
}

func TestKakaoNotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"this access token does not exist","code":-401}`))
	}))
	defer server.Close()

	n, err := NewKakaoNotifier(testClient(), server.URL, "expired", Options{})
	require.NoError(t, err)

	err = n.Notify(context.Background(), alerts(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewNotifierValidation(t *testing.T) {
	_, err := NewTelegramNotifier(testClient(), "", "", "42", Options{})
	assert.Error(t, err)
	_, err = NewTelegramNotifier(nil, "", "t", "42", Options{})
	assert.Error(t, err)
	_, err = NewKakaoNotifier(testClient(), "", "", Options{})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	none, err := FromConfig(config.NotifierConfig{}, testClient(), logger)
	require.NoError(t, err)
	assert.Empty(t, none)

	cfg := config.NotifierConfig{
		MinLevel: "buy",
		Telegram: config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "c"},
		Kakao:    config.KakaoConfig{Enabled: true, AccessToken: "k"},
	}
	both, err := FromConfig(cfg, testClient(), logger)
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "telegram", both[0].Name())
	assert.Equal(t, "kakao", both[1].Name())

	_, err = FromConfig(config.NotifierConfig{MinLevel: "maybe"}, testClient(), logger)
	assert.Error(t, err)

	_, err = FromConfig(config.NotifierConfig{Kakao: config.KakaoConfig{Enabled: true}}, testClient(), logger)
	assert.Error(t, err)
}
