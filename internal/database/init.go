package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/config"
)

// SchemaVersion is the version recorded by Migrate.
const SchemaVersion = 1

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schemaSQL
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Initialize opens the pool, applies the schema and checks the recorded version.
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	if !cfg.Database.Enabled {
		return nil, fmt.Errorf("database is disabled in configuration")
	}
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	var version int
	err = db.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if version < SchemaVersion {
		logger.WithField("version", version).Warn("Schema version is behind the application")
	}

	logger.WithFields(logrus.Fields{
		"host":    cfg.Database.Host,
		"name":    cfg.Database.Name,
		"version": version,
	}).Info("Database initialized")
	return db, nil
}
