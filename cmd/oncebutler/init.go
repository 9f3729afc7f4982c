package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"oncebutler/internal/config"
	"oncebutler/internal/roles"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	var guilds []string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold an oncebutler project in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if err := runInit(".", projectName, dsn, guilds); err != nil {
				return err
			}
			cmd.Println("Wrote oncebutler.yaml and presets/en.yaml")
			return nil
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://./oncebutler.db", "Database DSN")
	cmd.Flags().StringSliceVar(&guilds, "guild", nil, "Guild ID to manage (repeatable)")
	return cmd
}

func runInit(dir, projectName, dsn string, guilds []string) error {
	configPath := filepath.Join(dir, "oncebutler.yaml")
	presetPath := filepath.Join(dir, "presets", "en.yaml")
	for _, path := range []string{configPath, presetPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "project: %q\nversion: 1\nlog_level: info\n\n", projectName)
	fmt.Fprintf(&b, "database:\n  dsn: %q\n\n", dsn)
	b.WriteString("# discord.token is read from ONCEBUTLER_DISCORD_TOKEN\n\n")
	if len(guilds) == 0 {
		b.WriteString("guilds: []\n\n")
	} else {
		b.WriteString("guilds:\n")
		for _, id := range guilds {
			fmt.Fprintf(&b, "  - id: %q\n    locale: en\n", id)
		}
		b.WriteString("\n")
	}
	hours := roles.DefaultPeriodHours()
	fmt.Fprintf(&b, "engine:\n  cooldown: %s\n  max_roles: %d\n  interval: %s\n  concurrency: 1\n  timezone: UTC\n",
		roles.DefaultCooldown, roles.DefaultMaxRoles, config.DefaultInterval)
	fmt.Fprintf(&b, "  periods:\n    night: %d\n    day: %d\n    evening: %d\n\n", hours.Night, hours.Day, hours.Evening)
	b.WriteString("presets:\n  - locale: en\n    path: presets/en.yaml\n")

	spec := roles.DefaultCatalogSpec()
	preset, err := yaml.Marshal(config.Preset{
		Version:  1,
		Locale:   spec.Locale,
		Mood:     spec.Mood,
		Energy:   spec.Energy,
		Activity: spec.Activity,
		Times:    spec.Times,
		Chaos:    spec.Chaos,
	})
	if err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(presetPath), 0o755); err != nil {
		return fmt.Errorf("creating presets dir: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(presetPath, preset, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", presetPath, err)
	}
	return nil
}
