package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"oncebutler/internal/roles"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Discord  DiscordConfig  `yaml:"discord"`
	Guilds   []GuildConfig  `yaml:"guilds"`
	Engine   EngineConfig   `yaml:"engine"`
	Presets  []PresetRef    `yaml:"presets"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	// MaxConns caps the postgres pool; 0 keeps the driver default.
	MaxConns int32  `yaml:"max_conns"`
}

type DiscordConfig struct {
	Token string `yaml:"token"`
}

type GuildConfig struct {
	ID     string `yaml:"id"`
	Locale string `yaml:"locale"`
}

type EngineConfig struct {
	Cooldown    time.Duration     `yaml:"cooldown"`
	MaxRoles    int               `yaml:"max_roles"`
	Interval    time.Duration     `yaml:"interval"`
	Concurrency int               `yaml:"concurrency"`
	Timezone    string            `yaml:"timezone"`
	Periods     roles.PeriodHours `yaml:"periods"`
}

type PresetRef struct {
	Locale string `yaml:"locale"`
	Path   string `yaml:"path"`
}

const DefaultInterval = 2 * time.Minute

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		LogLevel: "info",
		Engine: EngineConfig{
			Cooldown:    roles.DefaultCooldown,
			MaxRoles:    roles.DefaultMaxRoles,
			Interval:    DefaultInterval,
			Concurrency: 1,
			Timezone:    "UTC",
			Periods:     roles.DefaultPeriodHours(),
		},
	}
}

// LoadProjectConfig reads the yaml file at path over the defaults, applies
// ONCEBUTLER_* environment overrides and validates the result.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Database.MaxConns < 0 {
		return fmt.Errorf("database max_conns must not be negative")
	}

	seen := make(map[string]struct{})
	for i, guild := range cfg.Guilds {
		if strings.TrimSpace(guild.ID) == "" {
			return fmt.Errorf("guild %d id is required", i)
		}
		if _, exists := seen[guild.ID]; exists {
			return fmt.Errorf("duplicate guild id: %s", guild.ID)
		}
		seen[guild.ID] = struct{}{}
	}

	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}

	locales := make(map[string]struct{})
	for i, preset := range cfg.Presets {
		if strings.TrimSpace(preset.Path) == "" {
			return fmt.Errorf("preset %d path is required", i)
		}
		key := strings.ToLower(preset.Locale)
		if key == "" {
			return fmt.Errorf("preset %d locale is required", i)
		}
		if _, exists := locales[key]; exists {
			return fmt.Errorf("duplicate preset locale: %s", preset.Locale)
		}
		locales[key] = struct{}{}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}

	return nil
}

func validateEngine(e *EngineConfig) error {
	if e.Cooldown < 0 {
		return fmt.Errorf("engine cooldown must not be negative")
	}
	if e.MaxRoles < 1 {
		return fmt.Errorf("engine max_roles must be at least 1")
	}
	if e.Interval <= 0 {
		return fmt.Errorf("engine interval must be positive")
	}
	if e.Concurrency < 1 {
		return fmt.Errorf("engine concurrency must be at least 1")
	}
	if _, err := time.LoadLocation(e.Timezone); err != nil {
		return fmt.Errorf("engine timezone: %w", err)
	}
	if err := e.Periods.Validate(); err != nil {
		return fmt.Errorf("engine periods: %w", err)
	}
	return nil
}

// SyncOptions converts the engine settings for roles.NewSyncer.
func (e EngineConfig) SyncOptions() (roles.SyncOptions, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return roles.SyncOptions{}, fmt.Errorf("engine timezone: %w", err)
	}
	return roles.SyncOptions{
		Cooldown: e.Cooldown,
		MaxRoles: e.MaxRoles,
		Periods:  e.Periods,
		Location: loc,
	}, nil
}

func (c *ProjectConfig) GuildIDs() []string {
	ids := make([]string, len(c.Guilds))
	for i, g := range c.Guilds {
		ids[i] = g.ID
	}
	return ids
}
