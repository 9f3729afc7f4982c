package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"oncebutler/internal/roles"
	"oncebutler/internal/store"
)

type PreviewRolesInput struct {
	GuildID      string  `json:"guild_id,omitempty" jsonschema:"guild whose catalog to use"`
	Mood         float64 `json:"mood" jsonschema:"mood from 0 to 100"`
	Energy       float64 `json:"energy" jsonschema:"energy from 0 to 100"`
	Activity     float64 `json:"activity" jsonschema:"activity from 0 to 100"`
	Period       string  `json:"period,omitempty" jsonschema:"night, day or evening; defaults to the current period"`
	ChaosLabel   string  `json:"chaos_label,omitempty" jsonschema:"active chaos role"`
	ChaosMinutes int     `json:"chaos_minutes,omitempty" jsonschema:"minutes until the chaos role expires"`
	MaxRoles     int     `json:"max_roles,omitempty" jsonschema:"maximum roles to select"`
}

type GetMemberStatsInput struct {
	GuildID string `json:"guild_id" jsonschema:"guild ID"`
	UserID  string `json:"user_id" jsonschema:"user ID"`
}

type ListRulesInput struct {
	GuildID     string `json:"guild_id,omitempty" jsonschema:"guild filter"`
	EnabledOnly bool   `json:"enabled_only,omitempty" jsonschema:"only enabled rules"`
}

type ListAssignmentsInput struct {
	GuildID string `json:"guild_id,omitempty" jsonschema:"guild filter"`
	UserID  string `json:"user_id,omitempty" jsonschema:"user filter"`
}

type GetCatalogInput struct {
	GuildID string `json:"guild_id,omitempty" jsonschema:"guild whose catalog to return"`
}

type PreviewOutput struct {
	Period     string           `json:"period"`
	Assignment roles.Assignment `json:"assignment"`
	Candidates []roles.Label    `json:"candidates"`
	Target     []string         `json:"target"`
}

type MemberStatsOutput struct {
	GuildID        string   `json:"guild_id"`
	UserID         string   `json:"user_id"`
	Mood           float64  `json:"mood"`
	Energy         float64  `json:"energy"`
	Activity       float64  `json:"activity"`
	ChaosRole      string   `json:"chaos_role,omitempty"`
	ChaosExpiresAt string   `json:"chaos_expires_at,omitempty"`
	VoiceMinutes   float64  `json:"voice_minutes"`
	OnlineMinutes  float64  `json:"online_minutes"`
	LastRoleUpdate string   `json:"last_role_update,omitempty"`
	Target         []string `json:"target"`
}

type RuleOutput struct {
	ID              int64   `json:"id"`
	GuildID         string  `json:"guild_id"`
	RoleID          string  `json:"role_id"`
	StatType        string  `json:"stat_type"`
	Operator        string  `json:"operator"`
	Value           float64 `json:"value"`
	IsTemporary     bool    `json:"is_temporary"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Enabled         bool    `json:"enabled"`
}

type ListRulesOutput struct {
	Rules []RuleOutput `json:"rules"`
}

type AssignmentOutput struct {
	GuildID    string `json:"guild_id"`
	UserID     string `json:"user_id"`
	RuleID     int64  `json:"rule_id"`
	RoleID     string `json:"role_id"`
	AssignedAt string `json:"assigned_at"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

type ListAssignmentsOutput struct {
	Assignments []AssignmentOutput `json:"assignments"`
}

type CatalogOutput struct {
	Locale   string            `json:"locale"`
	Mood     []roles.Band      `json:"mood"`
	Energy   []roles.Band      `json:"energy"`
	Activity []roles.Band      `json:"activity"`
	Times    map[string]string `json:"times"`
	Chaos    []string          `json:"chaos"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "preview_roles",
		Description: "Compute the managed roles a member with the given stats would receive",
	}, s.handlePreviewRoles)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_member_stats",
		Description: "Return a member's stored stats and current target roles",
	}, s.handleGetMemberStats)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_rules",
		Description: "List custom role rules",
	}, s.handleListRules)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_assignments",
		Description: "List custom rule role assignments in the ledger",
	}, s.handleListAssignments)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_catalog",
		Description: "Return the managed role catalog for a guild",
	}, s.handleGetCatalog)
}

func (s *Server) handlePreviewRoles(ctx context.Context, req *sdk.CallToolRequest, input PreviewRolesInput) (*sdk.CallToolResult, PreviewOutput, error) {
	now := s.now()
	period := roles.Period(input.Period)
	if period == "" {
		period = roles.PeriodAt(now.In(s.opts.Location), s.opts.Periods)
	}
	if !period.Valid() {
		return nil, PreviewOutput{}, fmt.Errorf("unknown period: %s", input.Period)
	}
	maxRoles := input.MaxRoles
	if maxRoles <= 0 {
		maxRoles = s.opts.MaxRoles
	}

	snap := roles.Snapshot{Mood: input.Mood, Energy: input.Energy, Activity: input.Activity}
	if input.ChaosLabel != "" && input.ChaosMinutes > 0 {
		until := now.Add(time.Duration(input.ChaosMinutes) * time.Minute)
		snap.ChaosLabel = input.ChaosLabel
		snap.ChaosExpiresAt = &until
	}

	catalog := s.catalogs.CatalogFor(input.GuildID)
	assignment := catalog.Assign(snap, period)
	candidates := roles.Candidates(assignment, catalog.ActiveChaos(snap, now))
	return nil, PreviewOutput{
		Period:     string(period),
		Assignment: assignment,
		Candidates: candidates,
		Target:     roles.Names(roles.SelectPriorityRoles(candidates, maxRoles)),
	}, nil
}

func (s *Server) handleGetMemberStats(ctx context.Context, req *sdk.CallToolRequest, input GetMemberStatsInput) (*sdk.CallToolResult, MemberStatsOutput, error) {
	if input.GuildID == "" || input.UserID == "" {
		return nil, MemberStatsOutput{}, fmt.Errorf("guild_id and user_id are required")
	}
	stats, err := s.db.GetMemberStats(ctx, input.GuildID, input.UserID)
	if err != nil {
		return nil, MemberStatsOutput{}, err
	}
	if stats == nil {
		return nil, MemberStatsOutput{}, fmt.Errorf("no stats for member %s in guild %s", input.UserID, input.GuildID)
	}

	now := s.now()
	snap := roles.Snapshot{
		Mood:           stats.Mood,
		Energy:         stats.Energy,
		Activity:       stats.Activity,
		ChaosLabel:     stats.ChaosRole,
		ChaosExpiresAt: stats.ChaosExpiresAt,
	}
	period := roles.PeriodAt(now.In(s.opts.Location), s.opts.Periods)
	target := s.catalogs.CatalogFor(input.GuildID).Target(snap, period, now, s.opts.MaxRoles)

	return nil, MemberStatsOutput{
		GuildID:        stats.GuildID,
		UserID:         stats.UserID,
		Mood:           stats.Mood,
		Energy:         stats.Energy,
		Activity:       stats.Activity,
		ChaosRole:      stats.ChaosRole,
		ChaosExpiresAt: formatTime(stats.ChaosExpiresAt),
		VoiceMinutes:   stats.VoiceMinutes,
		OnlineMinutes:  stats.OnlineMinutes,
		LastRoleUpdate: formatTime(stats.LastRoleUpdate),
		Target:         roles.Names(target),
	}, nil
}

func (s *Server) handleListRules(ctx context.Context, req *sdk.CallToolRequest, input ListRulesInput) (*sdk.CallToolResult, ListRulesOutput, error) {
	rules, err := s.db.ListRules(ctx, input.GuildID, input.EnabledOnly)
	if err != nil {
		return nil, ListRulesOutput{}, err
	}
	output := ListRulesOutput{Rules: make([]RuleOutput, 0, len(rules))}
	for _, r := range rules {
		output.Rules = append(output.Rules, ruleToOutput(r))
	}
	return nil, output, nil
}

func (s *Server) handleListAssignments(ctx context.Context, req *sdk.CallToolRequest, input ListAssignmentsInput) (*sdk.CallToolResult, ListAssignmentsOutput, error) {
	assignments, err := s.db.ListAssignments(ctx, input.GuildID, input.UserID)
	if err != nil {
		return nil, ListAssignmentsOutput{}, err
	}
	output := ListAssignmentsOutput{Assignments: make([]AssignmentOutput, 0, len(assignments))}
	for _, a := range assignments {
		output.Assignments = append(output.Assignments, AssignmentOutput{
			GuildID:    a.GuildID,
			UserID:     a.UserID,
			RuleID:     a.RuleID,
			RoleID:     a.RoleID,
			AssignedAt: formatTime(&a.AssignedAt),
			ExpiresAt:  formatTime(a.ExpiresAt),
		})
	}
	return nil, output, nil
}

func (s *Server) handleGetCatalog(ctx context.Context, req *sdk.CallToolRequest, input GetCatalogInput) (*sdk.CallToolResult, CatalogOutput, error) {
	catalog := s.catalogs.CatalogFor(input.GuildID)
	output := CatalogOutput{
		Locale:   catalog.Locale(),
		Mood:     catalog.Bands(roles.CategoryMood),
		Energy:   catalog.Bands(roles.CategoryEnergy),
		Activity: catalog.Bands(roles.CategoryActivity),
		Times:    make(map[string]string, len(roles.Periods)),
		Chaos:    []string{},
	}
	for _, p := range roles.Periods {
		l, _ := catalog.TimeLabel(p)
		output.Times[string(p)] = l.Name
	}
	for _, l := range catalog.Labels() {
		if l.Category == roles.CategoryChaos {
			output.Chaos = append(output.Chaos, l.Name)
		}
	}
	return nil, output, nil
}

func ruleToOutput(r store.CustomRoleRule) RuleOutput {
	return RuleOutput{
		ID:              r.ID,
		GuildID:         r.GuildID,
		RoleID:          r.RoleID,
		StatType:        string(r.StatType),
		Operator:        string(r.Operator),
		Value:           r.Value,
		IsTemporary:     r.IsTemporary,
		DurationMinutes: r.DurationMinutes,
		Enabled:         r.Enabled,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
