package datasource

import (
	"fmt"
	"math"

	"github.com/yourusername/stock-screener/internal/models"
)

// ValidateBars checks that a series is usable by the scorer and engine:
// ascending timestamps, positive finite closes and a sane high/low range.
func ValidateBars(bars []models.Bar) error {
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return fmt.Errorf("bar %d: %w: close %v", i, ErrInvalidData, b.Close)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: %w: high %v below low %v", i, ErrInvalidData, b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d: %w: negative volume", i, ErrInvalidData)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bar %d: %w: timestamp not ascending", i, ErrInvalidData)
		}
	}
	return nil
}
