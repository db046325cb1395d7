package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/config"
)

func TestConnStringDefaults(t *testing.T) {
	dsn := ConnString(&config.DatabaseConfig{Host: "db", User: "screener", Password: "pw", Name: "signals"})
	assert.Equal(t, "host=db port=5432 user=screener password=pw dbname=signals sslmode=disable", dsn)

	dsn = ConnString(&config.DatabaseConfig{Host: "db", Port: 6432, User: "u", Name: "n", SSLMode: "require"})
	assert.Contains(t, dsn, "port=6432")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestSchemaDefinesTables(t *testing.T) {
	for _, table := range []string{"scans", "signal_history", "daily_prices", "backtest_runs", "schema_migrations"} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema(), "PRIMARY KEY (symbol, price_date)")
}

func TestInitializeRequiresEnabled(t *testing.T) {
	_, err := Initialize(context.Background(), &config.Config{}, nil)
	require.Error(t, err)
}

func TestTransactionIntegration(t *testing.T) {
	db := SetupTestDB(t)
	defer TeardownTestDB(t, db)

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := db.Querier(txCtx).Exec(txCtx, "INSERT INTO scans (id, scan_date, signal_count) VALUES (gen_random_uuid(), NOW(), 0)")
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var n int
	require.NoError(t, db.Querier(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM scans").Scan(&n))
	assert.Zero(t, n)
}
