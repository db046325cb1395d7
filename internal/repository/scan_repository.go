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

const errScanSignalRecord = "failed to scan signal record: %w"

// PostgresScanRepository implements ScanRepository for PostgreSQL
type PostgresScanRepository struct {
	db     *database.DB
	prices PriceRepository
}

// NewPostgresScanRepository creates a new scan repository. Prices passed to
// SaveScan are written through prices in the same transaction.
func NewPostgresScanRepository(db *database.DB, prices PriceRepository) *PostgresScanRepository {
	return &PostgresScanRepository{db: db, prices: prices}
}

// SaveScan stores a scan header, its signals and the day's prices atomically.
func (r *PostgresScanRepository) SaveScan(ctx context.Context, snapshot *models.ScanSnapshot, records []models.SignalRecord, prices []models.DailyPrice) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		q := r.db.Querier(ctx)
		_, err := q.Exec(ctx,
			`INSERT INTO scans (id, scan_date, signal_count, created_at) VALUES ($1, $2, $3, $4)`,
			snapshot.ID, snapshot.ScanDate, snapshot.SignalCount, snapshot.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scan: %w", err)
		}

		if len(records) > 0 {
			columns := []string{"scan_id", "symbol", "level", "score", "price", "signal_date"}
			rows := make([][]interface{}, len(records))
			for i, rec := range records {
				rows[i] = []interface{}{snapshot.ID, rec.Symbol, string(rec.Level), rec.Score, rec.Price, rec.SignalDate}
			}
			count, err := q.CopyFrom(ctx, pgx.Identifier{"signal_history"}, columns, pgx.CopyFromRows(rows))
			if err != nil {
				return fmt.Errorf("failed to batch insert signals: %w", err)
			}
			if count != int64(len(records)) {
				return fmt.Errorf("inserted %d signals, expected %d", count, len(records))
			}
		}

		if r.prices != nil && len(prices) > 0 {
			return r.prices.Upsert(ctx, prices)
		}
		return nil
	})
}

// GetRecent returns the newest scans first
func (r *PostgresScanRepository) GetRecent(ctx context.Context, limit int) ([]*models.ScanSnapshot, error) {
	rows, err := r.db.Querier(ctx).Query(ctx,
		`SELECT id, scan_date, signal_count, created_at FROM scans ORDER BY scan_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.ScanSnapshot
	for rows.Next() {
		s := &models.ScanSnapshot{}
		if err := rows.Scan(&s.ID, &s.ScanDate, &s.SignalCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scan row: %w", err)
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// GetSignals returns the signals stored with one scan, highest score first
func (r *PostgresScanRepository) GetSignals(ctx context.Context, scanID uuid.UUID) ([]*models.SignalRecord, error) {
	return r.querySignals(ctx, `
		SELECT scan_id, symbol, level, score, price, signal_date
		FROM signal_history WHERE scan_id = $1 ORDER BY score DESC
	`, scanID)
}

// GetSymbolHistory returns a symbol's signals, newest scan first
func (r *PostgresScanRepository) GetSymbolHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error) {
	return r.querySignals(ctx, `
		SELECT sh.scan_id, sh.symbol, sh.level, sh.score, sh.price, sh.signal_date
		FROM signal_history sh
		JOIN scans s ON sh.scan_id = s.id
		WHERE sh.symbol = $1
		ORDER BY s.scan_date DESC
		LIMIT $2
	`, symbol, limit)
}

// GetLatestSignals returns the most recent signal per symbol at or above
// minScore, highest score first
func (r *PostgresScanRepository) GetLatestSignals(ctx context.Context, minScore float64, limit int) ([]*models.SignalRecord, error) {
	return r.querySignals(ctx, `
		SELECT scan_id, symbol, level, score, price, signal_date FROM (
			SELECT DISTINCT ON (sh.symbol)
				sh.scan_id, sh.symbol, sh.level, sh.score, sh.price, sh.signal_date
			FROM signal_history sh
			JOIN scans s ON sh.scan_id = s.id
			WHERE sh.score >= $1
			ORDER BY sh.symbol, s.scan_date DESC
		) latest
		ORDER BY score DESC
		LIMIT $2
	`, minScore, limit)
}

func (r *PostgresScanRepository) querySignals(ctx context.Context, query string, args ...interface{}) ([]*models.SignalRecord, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var records []*models.SignalRecord
	for rows.Next() {
		rec := &models.SignalRecord{}
		var level string
		if err := rows.Scan(&rec.ScanID, &rec.Symbol, &level, &rec.Score, &rec.Price, &rec.SignalDate); err != nil {
			return nil, fmt.Errorf(errScanSignalRecord, err)
		}
		rec.Level = models.Level(level)
		records = append(records, rec)
	}
	return records, rows.Err()
}
