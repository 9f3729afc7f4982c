package rulefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"oncebutler/internal/store"
)

var (
	ErrUnknownStat     = errors.New("unknown stat type")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrNoDuration      = errors.New("temporary rule needs a positive duration")
)

// File is a yaml list of custom role rules for one guild.
type File struct {
	Version int        `yaml:"version"`
	Guild   string     `yaml:"guild"`
	Rules   []RuleSpec `yaml:"rules"`
}

type RuleSpec struct {
	Role            string  `yaml:"role"`
	Stat            string  `yaml:"stat"`
	Operator        string  `yaml:"operator"`
	Value           float64 `yaml:"value"`
	Temporary       bool    `yaml:"temporary"`
	DurationMinutes int     `yaml:"duration_minutes"`
	Enabled         *bool   `yaml:"enabled"`
}

func (s RuleSpec) Rule(guildID string) store.CustomRoleRule {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	return store.CustomRoleRule{
		GuildID:         guildID,
		RoleID:          strings.TrimSpace(s.Role),
		StatType:        store.StatType(strings.TrimSpace(s.Stat)),
		Operator:        store.Operator(strings.TrimSpace(s.Operator)),
		Value:           s.Value,
		IsTemporary:     s.Temporary,
		DurationMinutes: s.DurationMinutes,
		Enabled:         enabled,
	}
}

// Validate checks a rule before it is stored.
func Validate(r store.CustomRoleRule) error {
	if strings.TrimSpace(r.GuildID) == "" {
		return fmt.Errorf("guild is required")
	}
	if strings.TrimSpace(r.RoleID) == "" {
		return fmt.Errorf("role is required")
	}
	if !r.StatType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStat, r.StatType)
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, r.Operator)
	}
	if r.IsTemporary && r.DurationMinutes <= 0 {
		return ErrNoDuration
	}
	if r.DurationMinutes < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}

func Parse(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("parsing rule file: unsupported version: %d", f.Version)
	}
	return &f, nil
}

type Store interface {
	ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error)
	CreateRule(ctx context.Context, r store.CustomRoleRule) (int64, error)
}

type Options struct {
	// Guild overrides the file's guild.
	Guild  string
	DryRun bool
}

type Result struct {
	Created int
	Skipped int
	Errors  []error
}

// Import stores every valid rule of the file that the guild does not already
// have. Invalid rules are reported in Result.Errors and do not stop the run.
func Import(ctx context.Context, path string, db Store, opts Options) (*Result, error) {
	f, err := Parse(path)
	if err != nil {
		return nil, err
	}
	guildID := f.Guild
	if opts.Guild != "" {
		guildID = opts.Guild
	}
	if strings.TrimSpace(guildID) == "" {
		return nil, fmt.Errorf("rule file has no guild")
	}

	existing, err := db.ListRules(ctx, guildID, false)
	if err != nil {
		return nil, fmt.Errorf("listing existing rules: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		known[definitionKey(r)] = struct{}{}
	}

	result := &Result{}
	now := time.Now()
	for i, spec := range f.Rules {
		rule := spec.Rule(guildID)
		if err := Validate(rule); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("rule %d: %w", i, err))
			continue
		}
		key := definitionKey(rule)
		if _, ok := known[key]; ok {
			result.Skipped++
			continue
		}
		known[key] = struct{}{}

		if opts.DryRun {
			result.Created++
			continue
		}
		rule.CreatedAt = now
		if _, err := db.CreateRule(ctx, rule); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("rule %d: %w", i, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// definitionKey identifies a rule by everything but its ID and enabled flag.
func definitionKey(r store.CustomRoleRule) string {
	return fmt.Sprintf("%s|%s|%s|%g|%t|%d", r.RoleID, r.StatType, r.Operator, r.Value, r.IsTemporary, r.DurationMinutes)
}
