// Package repository implements the historical data source on PostgreSQL.
// OHLCV bars live in the ohlc_bars table, keyed by (symbol, timestamp,
// timeframe), and are read with offset/limit pagination so backtests never
// hold a full date range in memory.
package repository

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database holds the connection pool and the row-level bar queries. The
// barsRepository indirection exists so tests can substitute a fake store.
type Database struct {
	bars barsRepository
	conn *pgxpool.Pool
}

// NewDatabase opens a connection pool against dbURL, registers shopspring
// decimal codecs, and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Database{
		bars: pgBars{pool: conn},
		conn: conn,
	}, nil
}

// Close releases the connection pool.
func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
