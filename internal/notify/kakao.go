package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/models"
)

// DefaultKakaoURL is the Kakao API root.
const DefaultKakaoURL = "https://kapi.kakao.com"

const kakaoMemoPath = "/v2/api/talk/memo/default/send"

// KakaoNotifier sends alerts to the token owner's KakaoTalk memo chat.
type KakaoNotifier struct {
	client  *datasource.RateLimitedHTTPClient
	baseURL string
	token   string
	opts    Options
}

// NewKakaoNotifier creates a KakaoTalk memo notifier.
func NewKakaoNotifier(client *datasource.RateLimitedHTTPClient, baseURL, accessToken string, opts Options) (*KakaoNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("kakao access token is required")
	}
	if baseURL == "" {
		baseURL = DefaultKakaoURL
	}
	return &KakaoNotifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   accessToken,
		opts:    opts,
	}, nil
}

// Name identifies the channel in logs and metrics.
func (k *KakaoNotifier) Name() string {
	return "kakao"
}

type kakaoLink struct {
	WebURL string `json:"web_url"`
}

type kakaoTextTemplate struct {
	ObjectType string    `json:"object_type"`
	Text       string    `json:"text"`
	Link       kakaoLink `json:"link"`
}

// Notify sends one memo listing the alerts.
func (k *KakaoNotifier) Notify(ctx context.Context, alerts []models.SignalAlert) error {
	alerts = FilterByLevel(alerts, k.opts.MinLevel)
	if len(alerts) == 0 {
		return nil
	}
	return k.Send(ctx, stripTags(FormatAlerts(alerts, k.opts.MaxSignals, k.opts.now())))
}

// Send posts a plain-text memo with the default text template.
func (k *KakaoNotifier) Send(ctx context.Context, text string) error {
	tmpl, err := json.Marshal(kakaoTextTemplate{ObjectType: "text", Text: text, Link: kakaoLink{}})
	if err != nil {
		return err
	}
	form := url.Values{"template_object": {string(tmpl)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+kakaoMemoPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+k.token)

	resp, err := k.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("kakao request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("kakao returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

var tagReplacer = strings.NewReplacer("<b>", "", "</b>", "", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", "\"", "&#39;", "'")

func stripTags(s string) string {
	return tagReplacer.Replace(s)
}
