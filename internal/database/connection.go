package database

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/blackpearlke/blackpearl-api/internal/config"
)

type DB struct {
	*sql.DB
}

// normalizeDSN forces clientFoundRows on the connection. The stores infer
// "row not found" from RowsAffected on conditional UPDATEs; without
// CLIENT_FOUND_ROWS the driver reports changed rows, so an update that
// sets a column to its current value looks like a missing row.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DSN: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// NewConnection creates a new database connection using the provided config
func NewConnection(cfg *config.DBConfig) (*DB, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// HealthCheck performs a simple health check on the database
func (db *DB) HealthCheck() error {
	return db.Ping()
}

// Migrate applies the schema DDL. Statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so migrate can run on every deploy.
func (db *DB) Migrate() error {
	for _, stmt := range SchemaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
