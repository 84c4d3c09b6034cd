// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"place-intelligence/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled lib/pq connection. Nothing is dialled until first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// snapshotDDL is applied at startup; the visit_reports table is owned by the app backend.
const snapshotDDL = `
CREATE TABLE IF NOT EXISTS place_intelligence_snapshots (
	id            UUID PRIMARY KEY,
	venue_id      TEXT NOT NULL,
	user_id       TEXT,
	model_version TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	work_score    INTEGER NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSnapshotTable creates the telemetry table if it is missing.
func (c *PostgresClient) EnsureSnapshotTable(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, snapshotDDL); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}
