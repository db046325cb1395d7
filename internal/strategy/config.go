// Package strategy defines entry/exit configurations and the generators that
// enumerate them for parameter sweeps.
package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/stock-screener/internal/models"
)

// Defaults applied by callers that do not sweep exit parameters.
const (
	DefaultCapital    = 100000.0
	DefaultStopLoss   = 0.05
	DefaultTakeProfit = 0.10
	DefaultMaxHold    = 5
)

// Config fully determines engine behaviour for a bar series. Build it with
// NewConfig so invalid values are rejected before a backtest starts.
type Config struct {
	EntryLevel models.Level `json:"entry_level"`
	MinScore   float64      `json:"min_score"`
	MaxHold    int          `json:"max_hold"`
	StopLoss   float64      `json:"stop_loss"`
	TakeProfit float64      `json:"take_profit"`
}

// NewConfig validates and returns a configuration.
func NewConfig(level models.Level, minScore float64, maxHold int, stopLoss, takeProfit float64) (Config, error) {
	cfg := Config{
		EntryLevel: level,
		MinScore:   minScore,
		MaxHold:    maxHold,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustConfig is NewConfig for static tables; it panics on invalid input.
func MustConfig(level models.Level, minScore float64, maxHold int, stopLoss, takeProfit float64) Config {
	cfg, err := NewConfig(level, minScore, maxHold, stopLoss, takeProfit)
	if err != nil {
		panic(err)
	}
	return cfg
}

// DefaultConfig uses the default exit parameters for an entry tier.
func DefaultConfig(level models.Level, minScore float64) Config {
	return MustConfig(level, minScore, DefaultMaxHold, DefaultStopLoss, DefaultTakeProfit)
}

// Validate checks every field.
func (c Config) Validate() error {
	if !c.EntryLevel.Valid() {
		return fmt.Errorf("entry level: %w: %q", models.ErrInvalidLevel, c.EntryLevel)
	}
	if err := validateMinScore(c.MinScore); err != nil {
		return err
	}
	if err := validateMaxHold(c.MaxHold); err != nil {
		return err
	}
	if err := validateStopLoss(c.StopLoss); err != nil {
		return err
	}
	return validateTakeProfit(c.TakeProfit)
}

func validateMinScore(v float64) error {
	if v < 0 || v > 10 {
		return fmt.Errorf("min score must be within [0, 10], got %v", v)
	}
	return nil
}

func validateMaxHold(v int) error {
	if v <= 0 {
		return fmt.Errorf("max hold must be positive, got %d", v)
	}
	return nil
}

func validateStopLoss(v float64) error {
	if v <= 0 || v >= 1 {
		return fmt.Errorf("stop loss must be within (0, 1), got %v", v)
	}
	return nil
}

func validateTakeProfit(v float64) error {
	if v <= 0 {
		return fmt.Errorf("take profit must be positive, got %v", v)
	}
	return nil
}

// ShouldEnter reports whether a bar satisfies the entry rule.
func (c Config) ShouldEnter(bar models.Bar) bool {
	return bar.Score != nil && bar.Level == c.EntryLevel && *bar.Score >= c.MinScore
}

// Key identifies the combination, e.g. BUY_score7.0_hold10_sl0.05_tp0.3.
func (c Config) Key() string {
	var b strings.Builder
	b.WriteString(string(c.EntryLevel))
	b.WriteString("_score")
	b.WriteString(formatKeyFloat(c.MinScore))
	b.WriteString("_hold")
	b.WriteString(strconv.Itoa(c.MaxHold))
	b.WriteString("_sl")
	b.WriteString(formatKeyFloat(c.StopLoss))
	b.WriteString("_tp")
	b.WriteString(formatKeyFloat(c.TakeProfit))
	return b.String()
}

// Parameters returns the configuration as a generic map.
func (c Config) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"entry_level": string(c.EntryLevel),
		"min_score":   c.MinScore,
		"max_hold":    c.MaxHold,
		"stop_loss":   c.StopLoss,
		"take_profit": c.TakeProfit,
	}
}

// formatKeyFloat keeps one decimal on whole numbers so 9 renders as 9.0.
func formatKeyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
