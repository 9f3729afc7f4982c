package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"oncebutler/internal/store"
)

const ruleColumns = "id, guild_id, role_id, stat_type, operator, value, is_temporary, duration_minutes, enabled, created_at"

func (c *Client) CreateRule(ctx context.Context, r store.CustomRoleRule) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var duration *int32
	if r.DurationMinutes > 0 {
		d := int32(r.DurationMinutes)
		duration = &d
	}

	var id int64
	err := c.pool.QueryRow(ctx, `
INSERT INTO custom_role_rules (guild_id, role_id, stat_type, operator, value, is_temporary, duration_minutes, enabled, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`,
		r.GuildID,
		r.RoleID,
		string(r.StatType),
		string(r.Operator),
		r.Value,
		r.IsTemporary,
		duration,
		r.Enabled,
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating rule: %w", err)
	}
	return id, nil
}

func (c *Client) GetRule(ctx context.Context, id int64) (*store.CustomRoleRule, error) {
	r, err := scanRule(c.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM custom_role_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule: %w", err)
	}
	return r, nil
}

func (c *Client) ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error) {
	query := `
SELECT ` + ruleColumns + `
FROM custom_role_rules
WHERE ($1 = '' OR guild_id = $1)
  AND (NOT $2 OR enabled)
ORDER BY id
`

	rows, err := c.pool.Query(ctx, query, guildID, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	rules := []store.CustomRoleRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

func (c *Client) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := c.pool.Exec(ctx, "UPDATE custom_role_rules SET enabled = $1 WHERE id = $2", enabled, id)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}

func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, "DELETE FROM custom_role_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}

func scanRule(row pgx.Row) (*store.CustomRoleRule, error) {
	var r store.CustomRoleRule
	var statType, operator string
	var duration *int32
	err := row.Scan(
		&r.ID,
		&r.GuildID,
		&r.RoleID,
		&statType,
		&operator,
		&r.Value,
		&r.IsTemporary,
		&duration,
		&r.Enabled,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.StatType = store.StatType(statType)
	r.Operator = store.Operator(operator)
	if duration != nil {
		r.DurationMinutes = int(*duration)
	}
	return &r, nil
}
