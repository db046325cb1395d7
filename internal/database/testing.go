package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDSNEnv names the variable holding the integration test database URL.
const TestDSNEnv = "STOCK_SCREENER_TEST_DSN"

// SetupTestDB connects to the database named by STOCK_SCREENER_TEST_DSN and
// applies the schema. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv(TestDSNEnv)
	if dsn == "" {
		t.Skipf("integration test - set %s to run", TestDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	db := &DB{pool: pool}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to ping test database: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// TeardownTestDB truncates the screener tables and closes the pool.
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.pool.Exec(ctx, "TRUNCATE signal_history, scans, daily_prices, backtest_runs"); err != nil {
		t.Logf("warning: failed to truncate test tables: %v", err)
	}
	db.Close()
}
