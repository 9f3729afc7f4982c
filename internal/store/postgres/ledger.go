package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"oncebutler/internal/store"
)

const assignmentColumns = "guild_id, user_id, rule_id, role_id, assigned_at, expires_at"

func (c *Client) GetAssignment(ctx context.Context, key store.AssignmentKey) (*store.RoleAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM role_assignments WHERE guild_id = $1 AND user_id = $2 AND rule_id = $3`

	a, err := scanAssignment(c.pool.QueryRow(ctx, query, key.GuildID, key.UserID, key.RuleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return a, nil
}

// CreateAssignment inserts the ledger row and runs apply before committing.
// A concurrent insert for the same key blocks on the unique constraint until
// this transaction finishes, then becomes a no-op.
func (c *Client) CreateAssignment(ctx context.Context, a store.RoleAssignment, apply store.ApplyFunc) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
INSERT INTO role_assignments (`+assignmentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (guild_id, user_id, rule_id) DO NOTHING
`,
		a.GuildID,
		a.UserID,
		a.RuleID,
		a.RoleID,
		a.AssignedAt,
		a.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, fmt.Errorf("applying assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing assignment: %w", err)
	}
	return true, nil
}

func (c *Client) DeleteAssignment(ctx context.Context, key store.AssignmentKey, apply store.ApplyFunc) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM role_assignments WHERE guild_id = $1 AND user_id = $2 AND rule_id = $3",
		key.GuildID, key.UserID, key.RuleID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, fmt.Errorf("applying unassignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing unassignment: %w", err)
	}
	return true, nil
}

func (c *Client) ListAssignments(ctx context.Context, guildID, userID string) ([]store.RoleAssignment, error) {
	query := `
SELECT ` + assignmentColumns + `
FROM role_assignments
WHERE ($1 = '' OR guild_id = $1)
  AND ($2 = '' OR user_id = $2)
ORDER BY guild_id, user_id, rule_id
`
	return c.queryAssignments(ctx, query, guildID, userID)
}

func (c *Client) ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error) {
	query := `
SELECT ` + assignmentColumns + `
FROM role_assignments
WHERE expires_at IS NOT NULL
  AND expires_at <= $1
  AND ($2 = '' OR guild_id = $2)
ORDER BY expires_at
`
	return c.queryAssignments(ctx, query, now, guildID)
}

func (c *Client) ListOrphanedAssignments(ctx context.Context, guildID string) ([]store.RoleAssignment, error) {
	query := `
SELECT a.guild_id, a.user_id, a.rule_id, a.role_id, a.assigned_at, a.expires_at
FROM role_assignments a
LEFT JOIN custom_role_rules r ON r.id = a.rule_id
WHERE r.id IS NULL
  AND ($1 = '' OR a.guild_id = $1)
ORDER BY a.guild_id, a.user_id, a.rule_id
`
	return c.queryAssignments(ctx, query, guildID)
}

func (c *Client) queryAssignments(ctx context.Context, query string, args ...any) ([]store.RoleAssignment, error) {
	rows, err := c.pool.Query(ctx, query, args...)
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

func scanAssignment(row pgx.Row) (*store.RoleAssignment, error) {
	var a store.RoleAssignment
	if err := row.Scan(&a.GuildID, &a.UserID, &a.RuleID, &a.RoleID, &a.AssignedAt, &a.ExpiresAt); err != nil {
		return nil, err
	}
	return &a, nil
}
