package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"oncebutler/internal/roles"
)

// Preset is a role catalog file. Band tiers are explicit so that ranking
// never depends on label text in any language.
type Preset struct {
	Version  int                     `yaml:"version"`
	Locale   string                  `yaml:"locale"`
	Mood     []roles.Band            `yaml:"mood"`
	Energy   []roles.Band            `yaml:"energy"`
	Activity []roles.Band            `yaml:"activity"`
	Times    map[roles.Period]string `yaml:"times"`
	Chaos    []string                `yaml:"chaos"`
}

func (p Preset) Spec() roles.CatalogSpec {
	return roles.CatalogSpec{
		Locale:   p.Locale,
		Mood:     p.Mood,
		Energy:   p.Energy,
		Activity: p.Activity,
		Times:    p.Times,
		Chaos:    p.Chaos,
	}
}

func LoadPreset(path string) (*roles.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading preset: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("loading preset: %w", err)
	}
	if preset.Version != 1 {
		return nil, fmt.Errorf("loading preset: unsupported version: %d", preset.Version)
	}
	if strings.TrimSpace(preset.Locale) == "" {
		return nil, fmt.Errorf("loading preset: locale is required")
	}
	if _, err := language.Parse(preset.Locale); err != nil {
		return nil, fmt.Errorf("loading preset: locale %q: %w", preset.Locale, err)
	}

	catalog, err := roles.NewCatalog(preset.Spec())
	if err != nil {
		return nil, fmt.Errorf("loading preset %s: %w", path, err)
	}
	return catalog, nil
}

// DefaultPreset is the built-in English catalog.
func DefaultPreset() *roles.Catalog {
	return roles.DefaultCatalog()
}

// BuildCatalogs loads the configured presets and assigns each guild the
// preset that best matches its locale. Relative preset paths resolve against
// baseDir. Without presets every guild uses DefaultPreset; otherwise the first
// preset is the fallback.
func BuildCatalogs(cfg *ProjectConfig, baseDir string) (*roles.GuildCatalogs, error) {
	catalogs := make([]*roles.Catalog, 0, len(cfg.Presets)+1)
	tags := make([]language.Tag, 0, len(cfg.Presets)+1)
	for _, ref := range cfg.Presets {
		path := ref.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		catalog, err := LoadPreset(path)
		if err != nil {
			return nil, err
		}
		tag, err := language.Parse(ref.Locale)
		if err != nil {
			return nil, fmt.Errorf("preset locale %q: %w", ref.Locale, err)
		}
		catalogs = append(catalogs, catalog)
		tags = append(tags, tag)
	}
	if len(catalogs) == 0 {
		catalogs = append(catalogs, DefaultPreset())
		tags = append(tags, language.English)
	}

	matcher := language.NewMatcher(tags)
	byGuild := make(map[string]*roles.Catalog, len(cfg.Guilds))
	for _, guild := range cfg.Guilds {
		if guild.Locale == "" {
			continue
		}
		tag, err := language.Parse(guild.Locale)
		if err != nil {
			return nil, fmt.Errorf("guild %s locale %q: %w", guild.ID, guild.Locale, err)
		}
		_, idx, confidence := matcher.Match(tag)
		if confidence == language.No {
			continue
		}
		byGuild[guild.ID] = catalogs[idx]
	}

	return roles.NewGuildCatalogs(catalogs[0], byGuild), nil
}
