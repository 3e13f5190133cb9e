// Package postgres manages the PostgreSQL connection used by the corpus
// loader.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
	_ "github.com/lib/pq"
)

// Client wraps a pooled database handle.
type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

// New opens a connection pool and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Table returns the configured corpus table name.
func (c *Client) Table() string {
	return c.cfg.Table
}

func (c *Client) Close() error {
	return c.DB.Close()
}
