package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oncebutler/internal/store"
)

func (c *Client) UpsertMemberStats(ctx context.Context, s store.MemberStats) error {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
	INSERT INTO member_stats (guild_id, user_id, mood, energy, activity, chaos_role, chaos_expires_at, voice_minutes, online_minutes, last_role_update, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (guild_id, user_id) DO UPDATE SET
		mood = excluded.mood,
		energy = excluded.energy,
		activity = excluded.activity,
		chaos_role = excluded.chaos_role,
		chaos_expires_at = excluded.chaos_expires_at,
		voice_minutes = excluded.voice_minutes,
		online_minutes = excluded.online_minutes,
		last_role_update = COALESCE(excluded.last_role_update, member_stats.last_role_update),
		updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(ctx, query,
		s.GuildID,
		s.UserID,
		s.Mood,
		s.Energy,
		s.Activity,
		s.ChaosRole,
		toMillis(s.ChaosExpiresAt),
		s.VoiceMinutes,
		s.OnlineMinutes,
		toMillis(s.LastRoleUpdate),
		updatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting member stats: %w", err)
	}
	return nil
}

func (c *Client) GetMemberStats(ctx context.Context, guildID, userID string) (*store.MemberStats, error) {
	query := `
	SELECT guild_id, user_id, mood, energy, activity, chaos_role, chaos_expires_at, voice_minutes, online_minutes, last_role_update, updated_at
	FROM member_stats
	WHERE guild_id = ? AND user_id = ?
	`

	s, err := scanMemberStats(c.db.QueryRowContext(ctx, query, guildID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member stats: %w", err)
	}
	return s, nil
}

func (c *Client) ListMemberStats(ctx context.Context, guildID string) ([]store.MemberStats, error) {
	query := `
	SELECT guild_id, user_id, mood, energy, activity, chaos_role, chaos_expires_at, voice_minutes, online_minutes, last_role_update, updated_at
	FROM member_stats
	WHERE guild_id = ?
	ORDER BY user_id
	`

	rows, err := c.db.QueryContext(ctx, query, guildID)
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
	result, err := c.db.ExecContext(ctx,
		"UPDATE member_stats SET last_role_update = ? WHERE guild_id = ? AND user_id = ?",
		at.UTC().UnixMilli(), guildID, userID,
	)
	if err != nil {
		return fmt.Errorf("marking role update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("marking role update: no stats for member %s in guild %s", userID, guildID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemberStats(row rowScanner) (*store.MemberStats, error) {
	var s store.MemberStats
	var chaosExpires, lastUpdate sql.NullInt64
	var updatedAt int64
	err := row.Scan(
		&s.GuildID,
		&s.UserID,
		&s.Mood,
		&s.Energy,
		&s.Activity,
		&s.ChaosRole,
		&chaosExpires,
		&s.VoiceMinutes,
		&s.OnlineMinutes,
		&lastUpdate,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ChaosExpiresAt = fromMillis(chaosExpires)
	s.LastRoleUpdate = fromMillis(lastUpdate)
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &s, nil
}
