package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are settings that may come from the environment instead of
// the project file. Secrets normally live here.
type EnvOverrides struct {
	DatabaseDSN  string `env:"ONCEBUTLER_DATABASE_DSN"`
	DiscordToken string `env:"ONCEBUTLER_DISCORD_TOKEN"`
	LogLevel     string `env:"ONCEBUTLER_LOG_LEVEL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func applyEnv(cfg *ProjectConfig) error {
	var overrides EnvOverrides
	if err := ParseEnv(&overrides); err != nil {
		return err
	}
	if overrides.DatabaseDSN != "" {
		cfg.Database.DSN = overrides.DatabaseDSN
	}
	if overrides.DiscordToken != "" {
		cfg.Discord.Token = overrides.DiscordToken
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	return nil
}
