package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/stock-screener/internal/models"
)

// ScanRepository defines the interface for scan and signal history access
type ScanRepository interface {
	SaveScan(ctx context.Context, snapshot *models.ScanSnapshot, records []models.SignalRecord, prices []models.DailyPrice) error
	GetRecent(ctx context.Context, limit int) ([]*models.ScanSnapshot, error)
	GetSignals(ctx context.Context, scanID uuid.UUID) ([]*models.SignalRecord, error)
	GetSymbolHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error)
	GetLatestSignals(ctx context.Context, minScore float64, limit int) ([]*models.SignalRecord, error)
}

// PriceRepository defines the interface for daily price access
type PriceRepository interface {
	Upsert(ctx context.Context, prices []models.DailyPrice) error
	GetBySymbol(ctx context.Context, symbol string, days int) ([]*models.DailyPrice, error)
	GetTopPerformers(ctx context.Context, days, limit int) ([]*models.TopPerformer, error)
}

// BacktestRunRepository defines backtest run persistence
type BacktestRunRepository interface {
	Create(ctx context.Context, run *models.BacktestRun) error
	CreateBatch(ctx context.Context, runs []*models.BacktestRun) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
}
