package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/stock-screener/internal/database"
	"github.com/yourusername/stock-screener/internal/models"
)

const errScanBacktestRun = "failed to scan backtest run: %w"

const backtestRunColumns = `id, run_id, strategy_key, symbol, timeframe, method, run_date,
	initial_capital, final_capital, total_return, annual_return, max_drawdown,
	total_trades, win_rate, profit_factor, parameters, full_results, created_at`

const insertBacktestRun = `INSERT INTO backtest_runs (` + backtestRunColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

// PostgresBacktestRunRepository implements BacktestRunRepository for PostgreSQL
type PostgresBacktestRunRepository struct {
	db *database.DB
}

// NewPostgresBacktestRunRepository creates a new backtest run repository
func NewPostgresBacktestRunRepository(db *database.DB) *PostgresBacktestRunRepository {
	return &PostgresBacktestRunRepository{db: db}
}

func prepareRun(run *models.BacktestRun) []interface{} {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.RunID == uuid.Nil {
		run.RunID = run.ID
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.RunDate.IsZero() {
		run.RunDate = run.CreatedAt
	}
	return []interface{}{
		run.ID, run.RunID, run.StrategyKey, run.Symbol, run.Timeframe, run.Method, run.RunDate,
		run.InitialCapital, run.FinalCapital, run.TotalReturn, run.AnnualReturn, run.MaxDrawdown,
		run.TotalTrades, run.WinRate, run.ProfitFactor, jsonOrNil(run.Parameters), jsonOrNil(run.FullResults), run.CreatedAt,
	}
}

func jsonOrNil(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Create inserts a backtest run
func (r *PostgresBacktestRunRepository) Create(ctx context.Context, run *models.BacktestRun) error {
	if _, err := r.db.Querier(ctx).Exec(ctx, insertBacktestRun, prepareRun(run)...); err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// CreateBatch inserts runs in one transaction
func (r *PostgresBacktestRunRepository) CreateBatch(ctx context.Context, runs []*models.BacktestRun) error {
	if len(runs) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, run := range runs {
			batch.Queue(insertBacktestRun, prepareRun(run)...)
		}
		results := r.db.Querier(ctx).SendBatch(ctx, batch)
		defer results.Close()
		for range runs {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("failed to save backtest run: %w", err)
			}
		}
		return nil
	})
}

// GetByRunID returns every run stored under one sweep, best annual return first
func (r *PostgresBacktestRunRepository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.BacktestRun, error) {
	return r.query(ctx, `SELECT `+backtestRunColumns+`
		FROM backtest_runs WHERE run_id = $1 ORDER BY annual_return DESC, strategy_key`, runID)
}

// GetLatest retrieves the newest backtest runs
func (r *PostgresBacktestRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	return r.query(ctx, `SELECT `+backtestRunColumns+`
		FROM backtest_runs ORDER BY run_date DESC LIMIT $1`, limit)
}

func (r *PostgresBacktestRunRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.BacktestRun, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run := &models.BacktestRun{}
		if err := rows.Scan(
			&run.ID, &run.RunID, &run.StrategyKey, &run.Symbol, &run.Timeframe, &run.Method, &run.RunDate,
			&run.InitialCapital, &run.FinalCapital, &run.TotalReturn, &run.AnnualReturn, &run.MaxDrawdown,
			&run.TotalTrades, &run.WinRate, &run.ProfitFactor, &run.Parameters, &run.FullResults, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanBacktestRun, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
