package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"oncebutler/internal/config"
	"oncebutler/internal/store"
	"oncebutler/internal/store/postgres"
	"oncebutler/internal/store/sqlite"
)

// openStore connects to the backend named by the DSN scheme and makes sure
// the schema exists.
func openStore(ctx context.Context, dbCfg config.DatabaseConfig) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch {
	case isSQLite(dbCfg.DSN):
		db, err = sqlite.New(ctx, dbCfg.DSN)
	case strings.HasPrefix(dbCfg.DSN, "postgres://"), strings.HasPrefix(dbCfg.DSN, "postgresql://"):
		db, err = postgres.New(ctx, dbCfg.DSN, postgres.Options{MaxConns: dbCfg.MaxConns})
	default:
		return nil, fmt.Errorf("unsupported database dsn %q: expected sqlite:// or postgres://", redactDSN(dbCfg.DSN))
	}
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return db, nil
}

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	return openStore(ctx, cfg.Database)
}

// openConfiguredDB loads the project config and opens its store, for commands
// that never talk to Discord.
func openConfiguredDB(ctx context.Context) (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openDB(ctx, cfg)
}

func isSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "sqlite://")
}

// engineConcurrency caps the member fan-out at 1 on SQLite: ledger writes
// hold the single write lock across the Discord call, so parallel members
// would only queue on busy_timeout.
func engineConcurrency(cfg *config.ProjectConfig) int {
	n := cfg.Engine.Concurrency
	if isSQLite(cfg.Database.DSN) && n > 1 {
		logger.Warn("sqlite store: running members sequentially", zap.Int("configured_concurrency", n))
		return 1
	}
	return n
}

// redactDSN drops everything after the scheme so credentials never reach
// error output.
func redactDSN(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return "<invalid>"
	}
	return scheme + "://..."
}
