package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"oncebutler/internal/store"
)

var _ store.Store = (*Client)(nil)

// Options tunes the connection pool. Zero values keep the pgx defaults.
type Options struct {
	MaxConns int32
}

type Client struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, opts Options) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{pool: pool}, nil
}

// MaxConns reports the pool size in effect.
func (c *Client) MaxConns() int32 {
	return c.pool.Config().MaxConns
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}
