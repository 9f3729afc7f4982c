package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS member_stats (
		guild_id         TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		mood             REAL NOT NULL DEFAULT 50,
		energy           REAL NOT NULL DEFAULT 50,
		activity         REAL NOT NULL DEFAULT 0,
		chaos_role       TEXT NOT NULL DEFAULT '',
		chaos_expires_at INTEGER,
		voice_minutes    REAL NOT NULL DEFAULT 0,
		online_minutes   REAL NOT NULL DEFAULT 0,
		last_role_update INTEGER,
		updated_at       INTEGER NOT NULL,
		PRIMARY KEY (guild_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS custom_role_rules (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id         TEXT NOT NULL,
		role_id          TEXT NOT NULL,
		stat_type        TEXT NOT NULL,
		operator         TEXT NOT NULL,
		value            REAL NOT NULL,
		is_temporary     INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER,
		enabled          INTEGER NOT NULL DEFAULT 1,
		created_at       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS role_assignments (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		rule_id     INTEGER NOT NULL,
		role_id     TEXT NOT NULL,
		assigned_at INTEGER NOT NULL,
		expires_at  INTEGER,
		CONSTRAINT uq_assignment_member_rule UNIQUE (guild_id, user_id, rule_id)
	);

	CREATE INDEX IF NOT EXISTS idx_rules_guild_enabled ON custom_role_rules (guild_id, enabled);
	CREATE INDEX IF NOT EXISTS idx_assignments_guild_user ON role_assignments (guild_id, user_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_rule ON role_assignments (rule_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_expires ON role_assignments (expires_at) WHERE expires_at IS NOT NULL;
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}

	return statements
}
