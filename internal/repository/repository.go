package repository

import (
	"fmt"

	"github.com/yourusername/stock-screener/internal/database"
)

// DefaultLatestSignalScore is the score floor for the latest-signals view.
const DefaultLatestSignalScore = 6.5

// Repositories holds all repository implementations
type Repositories struct {
	Scans        ScanRepository
	Prices       PriceRepository
	BacktestRuns BacktestRunRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	prices := NewPostgresPriceRepository(db)
	return &Repositories{
		Scans:        NewPostgresScanRepository(db, prices),
		Prices:       prices,
		BacktestRuns: NewPostgresBacktestRunRepository(db),
	}, nil
}

// PeriodDays converts a top-performer period name into a day window.
func PeriodDays(period string) (int, error) {
	switch period {
	case "week", "":
		return 7, nil
	case "month":
		return 30, nil
	default:
		return 0, fmt.Errorf("unknown period %q: want week or month", period)
	}
}
