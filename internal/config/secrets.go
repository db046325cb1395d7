package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var errNoSecretData = errors.New("no secret data found in AWS Secrets Manager")

// SecretsOverlay represents the structure of secrets stored in AWS Secrets Manager
type SecretsOverlay struct {
	DatabasePassword string `json:"database_password"`
	AlpacaAPIKey     string `json:"alpaca_api_key"`
	AlpacaAPISecret  string `json:"alpaca_api_secret"`
	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`
	KakaoAccessToken string `json:"kakao_access_token"`
}

// secretsClient is the subset of the Secrets Manager API in use
type secretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func newSecretsClient(ctx context.Context, region string) (secretsClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

func fetchSecrets(ctx context.Context, client secretsClient, secretName string) (*SecretsOverlay, error) {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret from AWS Secrets Manager: %w", err)
	}
	return parseSecretData(result)
}

// parseSecretData parses secret data from AWS response
func parseSecretData(result *secretsmanager.GetSecretValueOutput) (*SecretsOverlay, error) {
	var secrets SecretsOverlay
	switch {
	case result.SecretString != nil:
		if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
			return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
		}
	case result.SecretBinary != nil:
		if err := json.Unmarshal(result.SecretBinary, &secrets); err != nil {
			return nil, fmt.Errorf("failed to parse secret binary: %w", err)
		}
	default:
		return nil, errNoSecretData
	}
	return &secrets, nil
}

// overlaySecretsOnConfig applies non-empty secrets to configuration
func overlaySecretsOnConfig(cfg *Config, secrets *SecretsOverlay) {
	if secrets.DatabasePassword != "" {
		cfg.Database.Password = secrets.DatabasePassword
	}
	if secrets.AlpacaAPIKey != "" {
		cfg.DataSource.APIKey = secrets.AlpacaAPIKey
	}
	if secrets.AlpacaAPISecret != "" {
		cfg.DataSource.APISecret = secrets.AlpacaAPISecret
	}
	if secrets.TelegramBotToken != "" {
		cfg.Notifier.Telegram.BotToken = secrets.TelegramBotToken
	}
	if secrets.TelegramChatID != "" {
		cfg.Notifier.Telegram.ChatID = secrets.TelegramChatID
	}
	if secrets.KakaoAccessToken != "" {
		cfg.Notifier.Kakao.AccessToken = secrets.KakaoAccessToken
	}
}

// LoadSecretsFromAWS retrieves secrets from AWS Secrets Manager and overlays them onto the configuration
func LoadSecretsFromAWS(ctx context.Context, cfg *Config) error {
	if !cfg.Secrets.Enabled {
		return nil
	}
	client, err := newSecretsClient(ctx, cfg.Secrets.Region)
	if err != nil {
		return err
	}
	return applySecrets(ctx, cfg, client)
}

func applySecrets(ctx context.Context, cfg *Config, client secretsClient) error {
	secrets, err := fetchSecrets(ctx, client, cfg.Secrets.SecretName)
	if err != nil {
		return err
	}
	overlaySecretsOnConfig(cfg, secrets)
	return nil
}
