package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"oncebutler/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Client, error) {
	driverDSN, memory, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", withPragmas(driverDSN))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}

// withPragmas applies connection pragmas through the DSN so that every pooled
// connection gets them, not only the one that happened to run an Exec.
func withPragmas(driverDSN string) string {
	pragmas := []string{
		"_pragma=busy_timeout(30000)",
		"_pragma=foreign_keys(1)",
	}
	if driverDSN != ":memory:" {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(driverDSN, "?") {
		sep = "&"
	}
	return driverDSN + sep + strings.Join(pragmas, "&")
}

func toMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
