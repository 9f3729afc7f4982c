package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// The DDL runs as one multi-statement call, which PostgreSQL executes in
	// an implicit transaction. IF NOT EXISTS keeps reruns idempotent.
	ddl := `
CREATE TABLE IF NOT EXISTS member_stats (
    guild_id         TEXT NOT NULL,
    user_id          TEXT NOT NULL,
    mood             DOUBLE PRECISION NOT NULL DEFAULT 50,
    energy           DOUBLE PRECISION NOT NULL DEFAULT 50,
    activity         DOUBLE PRECISION NOT NULL DEFAULT 0,
    chaos_role       TEXT NOT NULL DEFAULT '',
    chaos_expires_at TIMESTAMPTZ,
    voice_minutes    DOUBLE PRECISION NOT NULL DEFAULT 0,
    online_minutes   DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_role_update TIMESTAMPTZ,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (guild_id, user_id)
);

CREATE TABLE IF NOT EXISTS custom_role_rules (
    id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    guild_id         TEXT NOT NULL,
    role_id          TEXT NOT NULL,
    stat_type        TEXT NOT NULL,
    operator         TEXT NOT NULL,
    value            DOUBLE PRECISION NOT NULL,
    is_temporary     BOOLEAN NOT NULL DEFAULT FALSE,
    duration_minutes INTEGER,
    enabled          BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS role_assignments (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    guild_id    TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    rule_id     BIGINT NOT NULL,
    role_id     TEXT NOT NULL,
    assigned_at TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ,
    CONSTRAINT uq_assignment_member_rule UNIQUE (guild_id, user_id, rule_id)
);

CREATE INDEX IF NOT EXISTS idx_rules_guild_enabled ON custom_role_rules (guild_id, enabled);
CREATE INDEX IF NOT EXISTS idx_assignments_guild_user ON role_assignments (guild_id, user_id);
CREATE INDEX IF NOT EXISTS idx_assignments_rule ON role_assignments (rule_id);
CREATE INDEX IF NOT EXISTS idx_assignments_expires ON role_assignments (expires_at) WHERE expires_at IS NOT NULL;
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
