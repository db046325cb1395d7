package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/stock-screener/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("timeframe", validateTimeframe)
	_ = v.RegisterValidation("level", validateLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateTimeframe(fl validator.FieldLevel) bool {
	_, err := models.LookupTimeframe(fl.Field().String())
	return err == nil
}

func validateLevel(fl validator.FieldLevel) bool {
	_, err := models.ParseLevel(fl.Field().String())
	return err == nil
}

// validateCrossField performs checks spanning more than one field
func validateCrossField(cfg *Config) error {
	if cfg.Optimizer.FallbackTarget > cfg.Optimizer.TargetReturn {
		return fmt.Errorf("optimizer fallback_target must not exceed target_return")
	}

	if len(cfg.Optimizer.Grid) > 0 {
		if _, err := cfg.OptimizerGrid(); err != nil {
			return fmt.Errorf("invalid optimizer grid: %w", err)
		}
	}

	if cfg.DataSource.Provider == "alpaca" && (cfg.DataSource.APIKey == "" || cfg.DataSource.APISecret == "") {
		return fmt.Errorf("alpaca provider requires api_key and api_secret")
	}

	if cfg.Scheduler.Enabled {
		if _, err := cron.ParseStandard(cfg.Scheduler.ScanCron); err != nil {
			return fmt.Errorf("invalid scheduler scan_cron: %w", err)
		}
		if cfg.Scheduler.Timezone != "" {
			if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
				return fmt.Errorf("invalid scheduler timezone: %w", err)
			}
		}
	}

	if cfg.Server.HealthPort != 0 && cfg.Server.HealthPort == cfg.Server.Port {
		return fmt.Errorf("server health_port must differ from port")
	}

	return ValidateEnvironment(cfg)
}

// formatValidationErrors formats validation errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	var b strings.Builder
	for _, err := range errs {
		field := err.Namespace()
		switch err.Tag() {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "gt", "gte":
			fmt.Fprintf(&b, "- Field '%s' must be at least %s\n", field, err.Param())
		case "max", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' must be at most %s\n", field, err.Param())
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v' (allowed: %s)\n", field, err.Value(), err.Param())
		case "environment", "loglevel", "timeframe", "level":
			fmt.Fprintf(&b, "- Field '%s' has invalid %s '%v'\n", field, err.Tag(), err.Value())
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, err.Tag())
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if !cfg.IsProduction() {
		return nil
	}
	if cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
	}
	if cfg.Notifier.Telegram.Enabled && isTestCredential(cfg.Notifier.Telegram.BotToken) {
		return fmt.Errorf("production environment should not use test Telegram credentials")
	}
	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)test|demo|example|placeholder|YOUR_`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return testCredentialPattern.MatchString(credential)
}
