package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"oncebutler/internal/config"
	"oncebutler/internal/discord"
	"oncebutler/internal/roles"
	"oncebutler/internal/store"
)

// botRuntime bundles everything a command that touches Discord needs.
type botRuntime struct {
	cfg      *config.ProjectConfig
	db       store.Store
	ports    *roles.StorePorts
	roles    *discord.RoleManager
	catalogs *roles.GuildCatalogs
	opts     roles.SyncOptions
}

func openRuntime(ctx context.Context) (*botRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catalogs, opts, err := loadCatalogs(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required (set ONCEBUTLER_DISCORD_TOKEN)")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	session, botID, err := discord.Connect(ctx, cfg.Discord.Token)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	logger.Debug("connected to discord", zap.String("bot", botID))

	return &botRuntime{
		cfg:      cfg,
		db:       db,
		ports:    roles.NewStorePorts(db),
		roles:    discord.NewRoleManager(session, botID, logger),
		catalogs: catalogs,
		opts:     opts,
	}, nil
}

func (rt *botRuntime) Close(ctx context.Context) error {
	return rt.db.Close(ctx)
}

func (rt *botRuntime) syncer() *roles.Syncer {
	return roles.NewSyncer(rt.catalogs, rt.roles, rt.ports, rt.opts, logger)
}

func (rt *botRuntime) evaluator() *roles.RuleEvaluator {
	return roles.NewRuleEvaluator(rt.ports, rt.ports, rt.ports, rt.roles, logger)
}

func (rt *botRuntime) reaper() *roles.Reaper {
	return roles.NewReaper(rt.ports, rt.roles, logger)
}

// engine lists members from stored stats unless liveMembers asks for the
// guild's Discord member list.
func (rt *botRuntime) engine(liveMembers bool) *roles.Engine {
	var members roles.MemberLister = rt.ports
	if liveMembers {
		members = rt.roles
	}
	return roles.NewEngine(members, rt.ports, rt.syncer(), rt.evaluator(), engineConcurrency(rt.cfg), logger)
}

func loadCatalogs(cfg *config.ProjectConfig) (*roles.GuildCatalogs, roles.SyncOptions, error) {
	opts, err := cfg.Engine.SyncOptions()
	if err != nil {
		return nil, roles.SyncOptions{}, err
	}
	catalogs, err := config.BuildCatalogs(cfg, filepath.Dir(configPath))
	if err != nil {
		return nil, roles.SyncOptions{}, err
	}
	return catalogs, opts, nil
}

// targetGuilds returns the single guild given on the command line or every
// configured guild.
func targetGuilds(cfg *config.ProjectConfig, guild string) ([]string, error) {
	if guild != "" {
		return []string{guild}, nil
	}
	ids := cfg.GuildIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("no guilds configured")
	}
	return ids, nil
}
