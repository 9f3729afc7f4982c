package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oncebutler/internal/store"
)

const assignmentColumns = "guild_id, user_id, rule_id, role_id, assigned_at, expires_at"

func (c *Client) GetAssignment(ctx context.Context, key store.AssignmentKey) (*store.RoleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
	FROM role_assignments
	WHERE guild_id = ? AND user_id = ? AND rule_id = ?
	`

	a, err := scanAssignment(c.db.QueryRowContext(ctx, query, key.GuildID, key.UserID, key.RuleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return a, nil
}

// CreateAssignment inserts the ledger row and runs apply in the same
// transaction. It reports false without calling apply when a row for the
// same (guild, user, rule) already exists.
func (c *Client) CreateAssignment(ctx context.Context, a store.RoleAssignment, apply store.ApplyFunc) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO role_assignments (`+assignmentColumns+`)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (guild_id, user_id, rule_id) DO NOTHING
	`,
		a.GuildID,
		a.UserID,
		a.RuleID,
		a.RoleID,
		a.AssignedAt.UTC().UnixMilli(),
		toMillis(a.ExpiresAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, fmt.Errorf("applying assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing assignment: %w", err)
	}
	return true, nil
}

// DeleteAssignment removes the ledger row and runs apply in the same
// transaction. It reports false without calling apply when no row exists.
func (c *Client) DeleteAssignment(ctx context.Context, key store.AssignmentKey, apply store.ApplyFunc) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM role_assignments WHERE guild_id = ? AND user_id = ? AND rule_id = ?",
		key.GuildID, key.UserID, key.RuleID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, fmt.Errorf("applying unassignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing unassignment: %w", err)
	}
	return true, nil
}

func (c *Client) ListAssignments(ctx context.Context, guildID, userID string) ([]store.RoleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
	FROM role_assignments
	WHERE (? = '' OR guild_id = ?)
	  AND (? = '' OR user_id = ?)
	ORDER BY guild_id, user_id, rule_id
	`
	return c.queryAssignments(ctx, query, guildID, guildID, userID, userID)
}

func (c *Client) ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
	FROM role_assignments
	WHERE expires_at IS NOT NULL
	  AND expires_at <= ?
	  AND (? = '' OR guild_id = ?)
	ORDER BY expires_at
	`
	return c.queryAssignments(ctx, query, now.UTC().UnixMilli(), guildID, guildID)
}

// ListOrphanedAssignments returns records whose rule no longer exists. An
// empty guildID matches every guild.
func (c *Client) ListOrphanedAssignments(ctx context.Context, guildID string) ([]store.RoleAssignment, error) {
	query := `
	SELECT a.guild_id, a.user_id, a.rule_id, a.role_id, a.assigned_at, a.expires_at
	FROM role_assignments a
	LEFT JOIN custom_role_rules r ON r.id = a.rule_id
	WHERE r.id IS NULL
	  AND (? = '' OR a.guild_id = ?)
	ORDER BY a.guild_id, a.user_id, a.rule_id
	`
	return c.queryAssignments(ctx, query, guildID, guildID)
}

func (c *Client) queryAssignments(ctx context.Context, query string, args ...any) ([]store.RoleAssignment, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	assignments := []store.RoleAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return assignments, nil
}

func scanAssignment(row rowScanner) (*store.RoleAssignment, error) {
	var a store.RoleAssignment
	var assignedAt int64
	var expiresAt sql.NullInt64
	if err := row.Scan(&a.GuildID, &a.UserID, &a.RuleID, &a.RoleID, &assignedAt, &expiresAt); err != nil {
		return nil, err
	}
	a.AssignedAt = time.UnixMilli(assignedAt).UTC()
	a.ExpiresAt = fromMillis(expiresAt)
	return &a, nil
}
