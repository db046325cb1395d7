package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/stock-screener/internal/database"
	"github.com/yourusername/stock-screener/internal/models"
)

// PostgresPriceRepository implements PriceRepository for PostgreSQL
type PostgresPriceRepository struct {
	db *database.DB
}

// NewPostgresPriceRepository creates a new daily price repository
func NewPostgresPriceRepository(db *database.DB) *PostgresPriceRepository {
	return &PostgresPriceRepository{db: db}
}

const upsertDailyPrice = `
	INSERT INTO daily_prices (symbol, price_date, open, high, low, close, volume, score, level)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (symbol, price_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		score = EXCLUDED.score,
		level = EXCLUDED.level
`

// Upsert stores prices, replacing any row for the same symbol and date
func (r *PostgresPriceRepository) Upsert(ctx context.Context, prices []models.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(upsertDailyPrice,
			p.Symbol, p.PriceDate, p.Open, p.High, p.Low, p.Close, p.Volume, p.Score, string(p.Level))
	}

	results := r.db.Querier(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range prices {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert daily price: %w", err)
		}
	}
	return nil
}

// GetBySymbol returns a symbol's prices over the last days, oldest first
func (r *PostgresPriceRepository) GetBySymbol(ctx context.Context, symbol string, days int) ([]*models.DailyPrice, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT symbol, price_date, open, high, low, close, volume, COALESCE(score, 0), COALESCE(level, '')
		FROM daily_prices
		WHERE symbol = $1 AND price_date >= CURRENT_DATE - $2::int
		ORDER BY price_date ASC
	`, symbol, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []*models.DailyPrice
	for rows.Next() {
		p := &models.DailyPrice{}
		var level string
		if err := rows.Scan(&p.Symbol, &p.PriceDate, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.Score, &level); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Level = models.Level(level)
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// GetTopPerformers ranks symbols by the return from their first to their
// latest close inside the window, with their average signal score
func (r *PostgresPriceRepository) GetTopPerformers(ctx context.Context, days, limit int) ([]*models.TopPerformer, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		WITH windowed AS (
			SELECT symbol, price_date, close
			FROM daily_prices
			WHERE price_date >= CURRENT_DATE - $1::int AND close > 0
		),
		first_prices AS (
			SELECT DISTINCT ON (symbol) symbol, close AS first_price
			FROM windowed ORDER BY symbol, price_date ASC
		),
		latest_prices AS (
			SELECT DISTINCT ON (symbol) symbol, close AS latest_price
			FROM windowed ORDER BY symbol, price_date DESC
		),
		avg_scores AS (
			SELECT sh.symbol, AVG(sh.score) AS avg_score
			FROM signal_history sh
			JOIN scans s ON sh.scan_id = s.id
			WHERE s.scan_date >= NOW() - make_interval(days => $1::int)
			GROUP BY sh.symbol
		)
		SELECT fp.symbol, fp.first_price, lp.latest_price,
			(lp.latest_price - fp.first_price) / fp.first_price * 100 AS return_pct,
			COALESCE(a.avg_score, 0) AS avg_score
		FROM first_prices fp
		JOIN latest_prices lp ON fp.symbol = lp.symbol
		LEFT JOIN avg_scores a ON fp.symbol = a.symbol
		ORDER BY return_pct DESC
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top performers: %w", err)
	}
	defer rows.Close()

	var performers []*models.TopPerformer
	for rows.Next() {
		p := &models.TopPerformer{}
		if err := rows.Scan(&p.Symbol, &p.FirstPrice, &p.LastPrice, &p.ReturnPct, &p.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan top performer: %w", err)
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}
