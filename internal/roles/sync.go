package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultCooldown = 5 * time.Minute

type SyncOptions struct {
	Cooldown time.Duration
	MaxRoles int
	Periods  PeriodHours
	Location *time.Location
}

func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		Cooldown: DefaultCooldown,
		MaxRoles: DefaultMaxRoles,
		Periods:  DefaultPeriodHours(),
		Location: time.UTC,
	}
}

type SyncOutcome string

const (
	SyncCooldown SyncOutcome = "cooldown"
	SyncNoop     SyncOutcome = "noop"
	SyncApplied  SyncOutcome = "applied"
)

type SyncResult struct {
	Outcome SyncOutcome `json:"outcome"`
	Target  []string    `json:"target"`
	Added   []string    `json:"added,omitempty"`
	Removed []string    `json:"removed,omitempty"`
}

// Syncer converges a member's managed roles toward the priority target.
type Syncer struct {
	catalogs  CatalogSource
	roles     RoleManager
	cooldowns CooldownRecorder
	opts      SyncOptions
	logger    *zap.Logger
	now       func() time.Time
}

func NewSyncer(catalogs CatalogSource, rm RoleManager, cooldowns CooldownRecorder, opts SyncOptions, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Syncer{
		catalogs:  catalogs,
		roles:     rm,
		cooldowns: cooldowns,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncMember removes stale managed roles and adds missing target roles in
// one batch each, removals first. Only a successful change refreshes the
// member's cooldown stamp.
func (s *Syncer) SyncMember(ctx context.Context, m Member, snap Snapshot) (*SyncResult, error) {
	now := s.now()
	log := s.logger.With(zap.String("guild", m.GuildID), zap.String("user", m.UserID))

	if snap.LastRoleUpdate != nil && now.Sub(*snap.LastRoleUpdate) < s.opts.Cooldown {
		log.Debug("role sync cooling down", zap.Time("last_role_update", *snap.LastRoleUpdate))
		return &SyncResult{Outcome: SyncCooldown}, nil
	}

	catalog := s.catalogs.CatalogFor(m.GuildID)
	period := PeriodAt(now.In(s.opts.Location), s.opts.Periods)
	target := Names(catalog.Target(snap, period, now, s.opts.MaxRoles))
	result := &SyncResult{Outcome: SyncNoop, Target: target}

	held, err := s.roles.MemberRoles(ctx, m)
	if err != nil {
		log.Error("listing member roles", zap.Error(err))
		return result, fmt.Errorf("listing member roles: %w", err)
	}

	toAdd, toRemove := diffManaged(catalog, held, target)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return result, nil
	}

	removeHandles, err := s.resolve(ctx, m.GuildID, toRemove, log)
	if err != nil {
		return result, err
	}
	addHandles, err := s.resolve(ctx, m.GuildID, toAdd, log)
	if err != nil {
		return result, err
	}
	if len(removeHandles) == 0 && len(addHandles) == 0 {
		return result, nil
	}

	if len(removeHandles) > 0 {
		if err := s.roles.RemoveRoles(ctx, m, removeHandles); err != nil {
			log.Error("removing roles", zap.Strings("roles", handleNames(removeHandles)), zap.Error(err))
			return result, fmt.Errorf("removing roles: %w", err)
		}
		result.Removed = handleNames(removeHandles)
	}
	if len(addHandles) > 0 {
		if err := s.roles.AddRoles(ctx, m, addHandles); err != nil {
			log.Error("adding roles", zap.Strings("roles", handleNames(addHandles)), zap.Error(err))
			return result, fmt.Errorf("adding roles: %w", err)
		}
		result.Added = handleNames(addHandles)
	}
	result.Outcome = SyncApplied

	if err := s.cooldowns.MarkRoleUpdate(ctx, m.GuildID, m.UserID, now); err != nil {
		log.Warn("persisting role update stamp", zap.Error(err))
	}
	log.Info("synced roles", zap.Strings("added", result.Added), zap.Strings("removed", result.Removed))
	return result, nil
}

// diffManaged compares held role names restricted to the catalog with the
// target names.
func diffManaged(catalog *Catalog, held, target []string) (toAdd, toRemove []string) {
	current := make(map[string]bool, len(held))
	for _, name := range held {
		if _, ok := catalog.Lookup(name); ok {
			current[name] = true
		}
	}
	wanted := make(map[string]bool, len(target))
	for _, name := range target {
		wanted[name] = true
		if !current[name] {
			toAdd = append(toAdd, name)
		}
	}
	for _, name := range held {
		if current[name] && !wanted[name] {
			toRemove = append(toRemove, name)
			delete(current, name)
		}
	}
	return toAdd, toRemove
}

// resolve drops labels with no matching guild role.
func (s *Syncer) resolve(ctx context.Context, guildID string, names []string, log *zap.Logger) ([]RoleHandle, error) {
	handles := make([]RoleHandle, 0, len(names))
	for _, name := range names {
		h, err := s.roles.ResolveRole(ctx, guildID, name)
		if errors.Is(err, ErrNotFound) {
			h, err = nil, nil
		}
		if err != nil {
			log.Error("resolving role", zap.String("role", name), zap.Error(err))
			return nil, fmt.Errorf("resolving role %q: %w", name, err)
		}
		if h == nil {
			log.Debug("managed role missing from guild", zap.String("role", name))
			continue
		}
		handles = append(handles, *h)
	}
	return handles, nil
}

func handleNames(handles []RoleHandle) []string {
	names := make([]string, len(handles))
	for i, h := range handles {
		names[i] = h.Name
	}
	return names
}
