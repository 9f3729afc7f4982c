package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"oncebutler/internal/store"
)

const memberStatsColumns = "guild_id, user_id, mood, energy, activity, chaos_role, chaos_expires_at, voice_minutes, online_minutes, last_role_update, updated_at"

func (c *Client) UpsertMemberStats(ctx context.Context, s store.MemberStats) error {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
INSERT INTO member_stats (` + memberStatsColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
    mood = EXCLUDED.mood,
    energy = EXCLUDED.energy,
    activity = EXCLUDED.activity,
    chaos_role = EXCLUDED.chaos_role,
    chaos_expires_at = EXCLUDED.chaos_expires_at,
    voice_minutes = EXCLUDED.voice_minutes,
    online_minutes = EXCLUDED.online_minutes,
    last_role_update = COALESCE(EXCLUDED.last_role_update, member_stats.last_role_update),
    updated_at = EXCLUDED.updated_at
`

	_, err := c.pool.Exec(ctx, query,
		s.GuildID,
		s.UserID,
		s.Mood,
		s.Energy,
		s.Activity,
		s.ChaosRole,
		s.ChaosExpiresAt,
		s.VoiceMinutes,
		s.OnlineMinutes,
		s.LastRoleUpdate,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting member stats: %w", err)
	}
	return nil
}

func (c *Client) GetMemberStats(ctx context.Context, guildID, userID string) (*store.MemberStats, error) {
	query := `SELECT ` + memberStatsColumns + ` FROM member_stats WHERE guild_id = $1 AND user_id = $2`

	s, err := scanMemberStats(c.pool.QueryRow(ctx, query, guildID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member stats: %w", err)
	}
	return s, nil
}

func (c *Client) ListMemberStats(ctx context.Context, guildID string) ([]store.MemberStats, error) {
	query := `SELECT ` + memberStatsColumns + ` FROM member_stats WHERE guild_id = $1 ORDER BY user_id`

	rows, err := c.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing member stats: %w", err)
	}
	defer rows.Close()

	stats := []store.MemberStats{}
	for rows.Next() {
		s, err := scanMemberStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member stats: %w", err)
		}
		stats = append(stats, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member stats: %w", err)
	}
	return stats, nil
}

func (c *Client) MarkRoleUpdate(ctx context.Context, guildID, userID string, at time.Time) error {
	tag, err := c.pool.Exec(ctx,
		"UPDATE member_stats SET last_role_update = $1 WHERE guild_id = $2 AND user_id = $3",
		at, guildID, userID,
	)
	if err != nil {
		return fmt.Errorf("marking role update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking role update: no stats for member %s in guild %s", userID, guildID)
	}
	return nil
}

func scanMemberStats(row pgx.Row) (*store.MemberStats, error) {
	var s store.MemberStats
	err := row.Scan(
		&s.GuildID,
		&s.UserID,
		&s.Mood,
		&s.Energy,
		&s.Activity,
		&s.ChaosRole,
		&s.ChaosExpiresAt,
		&s.VoiceMinutes,
		&s.OnlineMinutes,
		&s.LastRoleUpdate,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
