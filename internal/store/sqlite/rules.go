package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oncebutler/internal/store"
)

func (c *Client) CreateRule(ctx context.Context, r store.CustomRoleRule) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var duration any
	if r.DurationMinutes > 0 {
		duration = r.DurationMinutes
	}

	result, err := c.db.ExecContext(ctx, `
	INSERT INTO custom_role_rules (guild_id, role_id, stat_type, operator, value, is_temporary, duration_minutes, enabled, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.GuildID,
		r.RoleID,
		string(r.StatType),
		string(r.Operator),
		r.Value,
		r.IsTemporary,
		duration,
		r.Enabled,
		createdAt.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting rule id: %w", err)
	}
	return id, nil
}

func (c *Client) GetRule(ctx context.Context, id int64) (*store.CustomRoleRule, error) {
	query := `
	SELECT id, guild_id, role_id, stat_type, operator, value, is_temporary, duration_minutes, enabled, created_at
	FROM custom_role_rules
	WHERE id = ?
	`

	r, err := scanRule(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rule: %w", err)
	}
	return r, nil
}

func (c *Client) ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error) {
	query := `
	SELECT id, guild_id, role_id, stat_type, operator, value, is_temporary, duration_minutes, enabled, created_at
	FROM custom_role_rules
	WHERE (? = '' OR guild_id = ?)
	  AND (? = 0 OR enabled = 1)
	ORDER BY id
	`

	rows, err := c.db.QueryContext(ctx, query, guildID, guildID, enabledOnly)
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
	result, err := c.db.ExecContext(ctx, "UPDATE custom_role_rules SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}

func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM custom_role_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}

func scanRule(row rowScanner) (*store.CustomRoleRule, error) {
	var r store.CustomRoleRule
	var statType, operator string
	var duration sql.NullInt64
	var createdAt int64
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
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	r.StatType = store.StatType(statType)
	r.Operator = store.Operator(operator)
	if duration.Valid {
		r.DurationMinutes = int(duration.Int64)
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &r, nil
}
