package roles

import (
	"context"
	"fmt"

	"oncebutler/internal/store"
)

var (
	_ StatsProvider    = (*StorePorts)(nil)
	_ RuleSource       = (*StorePorts)(nil)
	_ Ledger           = (*StorePorts)(nil)
	_ CooldownRecorder = (*StorePorts)(nil)
	_ MemberLister     = (*StorePorts)(nil)
)

// StorePorts serves the engine's storage ports from a Store. Ledger and
// cooldown methods come straight from the embedded Store.
type StorePorts struct {
	store.Store
}

func NewStorePorts(st store.Store) *StorePorts {
	return &StorePorts{Store: st}
}

func (p *StorePorts) Snapshot(ctx context.Context, guildID, userID string) (*Snapshot, error) {
	s, err := p.stats(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Mood:           s.Mood,
		Energy:         s.Energy,
		Activity:       s.Activity,
		ChaosLabel:     s.ChaosRole,
		ChaosExpiresAt: s.ChaosExpiresAt,
		LastRoleUpdate: s.LastRoleUpdate,
	}, nil
}

func (p *StorePorts) Progress(ctx context.Context, guildID, userID string) (*Progress, error) {
	s, err := p.stats(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	return &Progress{VoiceMinutes: s.VoiceMinutes, OnlineMinutes: s.OnlineMinutes}, nil
}

func (p *StorePorts) stats(ctx context.Context, guildID, userID string) (*store.MemberStats, error) {
	s, err := p.GetMemberStats(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("stats for member %s in guild %s: %w", userID, guildID, ErrNotFound)
	}
	return s, nil
}

func (p *StorePorts) EnabledRules(ctx context.Context, guildID string) ([]store.CustomRoleRule, error) {
	return p.ListRules(ctx, guildID, true)
}

// GuildMembers lists every member with a stats row in the guild.
func (p *StorePorts) GuildMembers(ctx context.Context, guildID string) ([]Member, error) {
	stats, err := p.ListMemberStats(ctx, guildID)
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(stats))
	for i, s := range stats {
		members[i] = Member{GuildID: s.GuildID, UserID: s.UserID}
	}
	return members, nil
}
