package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"oncebutler/internal/store"
)

// StatValues exposes every stat a custom rule may test.
type StatValues struct {
	Snapshot Snapshot
	Progress Progress
}

func (v StatValues) Value(stat store.StatType) (float64, error) {
	switch stat {
	case store.StatMood:
		return v.Snapshot.Mood, nil
	case store.StatEnergy:
		return v.Snapshot.Energy, nil
	case store.StatActivity:
		return v.Snapshot.Activity, nil
	case store.StatVoiceMinutes:
		return v.Progress.VoiceMinutes, nil
	case store.StatOnlineMinutes:
		return v.Progress.OnlineMinutes, nil
	}
	return 0, fmt.Errorf("unknown stat type %q", stat)
}

// Compare applies op to value and threshold. Equality is exact.
func Compare(value float64, op store.Operator, threshold float64) (bool, error) {
	switch op {
	case store.OpGreaterOrEqual:
		return value >= threshold, nil
	case store.OpGreater:
		return value > threshold, nil
	case store.OpLessOrEqual:
		return value <= threshold, nil
	case store.OpLess:
		return value < threshold, nil
	case store.OpEqual:
		return value == threshold, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

type ruleAction int

const (
	actionUnchanged ruleAction = iota
	actionAssigned
	actionUnassigned
	actionSkipped
)

type EvaluationResult struct {
	Assigned   int     `json:"assigned"`
	Unassigned int     `json:"unassigned"`
	Skipped    int     `json:"skipped"`
	Unchanged  int     `json:"unchanged"`
	Errors     []error `json:"-"`
}

func (r *EvaluationResult) record(action ruleAction) {
	switch action {
	case actionAssigned:
		r.Assigned++
	case actionUnassigned:
		r.Unassigned++
	case actionSkipped:
		r.Skipped++
	default:
		r.Unchanged++
	}
}

// RuleEvaluator applies a guild's custom role rules to one member, using the
// ledger to stay idempotent across passes.
type RuleEvaluator struct {
	stats  StatsProvider
	rules  RuleSource
	ledger Ledger
	roles  RoleManager
	logger *zap.Logger
	now    func() time.Time
}

func NewRuleEvaluator(stats StatsProvider, rules RuleSource, ledger Ledger, rm RoleManager, logger *zap.Logger) *RuleEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleEvaluator{
		stats:  stats,
		rules:  rules,
		ledger: ledger,
		roles:  rm,
		logger: logger,
		now:    time.Now,
	}
}

// EvaluateMember evaluates every enabled rule of the member's guild. Rule
// failures are collected in the result; the returned error is reserved for
// failures to load the member's stats or the rule set.
func (e *RuleEvaluator) EvaluateMember(ctx context.Context, m Member) (*EvaluationResult, error) {
	rules, err := e.rules.EnabledRules(ctx, m.GuildID)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	result := &EvaluationResult{}
	if len(rules) == 0 {
		return result, nil
	}

	snap, err := e.stats.Snapshot(ctx, m.GuildID, m.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	progress, err := e.stats.Progress(ctx, m.GuildID, m.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	values := StatValues{Snapshot: *snap, Progress: *progress}

	for _, rule := range rules {
		log := e.logger.With(
			zap.String("guild", m.GuildID),
			zap.String("user", m.UserID),
			zap.Int64("rule", rule.ID),
			zap.String("role", rule.RoleID),
		)
		action, err := e.evaluateRule(ctx, m, rule, values, log)
		if err != nil {
			log.Error("evaluating rule", zap.Error(err))
			result.Errors = append(result.Errors, fmt.Errorf("rule %d: %w", rule.ID, err))
			action = actionSkipped
		}
		result.record(action)
	}
	return result, nil
}

func (e *RuleEvaluator) evaluateRule(ctx context.Context, m Member, rule store.CustomRoleRule, values StatValues, log *zap.Logger) (ruleAction, error) {
	value, err := values.Value(rule.StatType)
	if err != nil {
		return actionSkipped, err
	}
	met, err := Compare(value, rule.Operator, rule.Value)
	if err != nil {
		return actionSkipped, err
	}

	key := store.AssignmentKey{GuildID: m.GuildID, UserID: m.UserID, RuleID: rule.ID}
	existing, err := e.ledger.GetAssignment(ctx, key)
	if err != nil {
		return actionSkipped, fmt.Errorf("reading ledger: %w", err)
	}

	switch {
	case met && existing == nil:
		return e.assign(ctx, m, rule, log)
	case !met && existing != nil && !rule.IsTemporary:
		return e.unassign(ctx, m, key, existing.RoleID, log)
	}
	// Temporary grants outlive their condition until the reaper expires them.
	return actionUnchanged, nil
}

func (e *RuleEvaluator) assign(ctx context.Context, m Member, rule store.CustomRoleRule, log *zap.Logger) (ruleAction, error) {
	now := e.now()
	var expiresAt *time.Time
	if rule.IsTemporary {
		if rule.DurationMinutes <= 0 {
			return actionSkipped, fmt.Errorf("temporary rule has no duration")
		}
		t := now.Add(time.Duration(rule.DurationMinutes) * time.Minute)
		expiresAt = &t
	}

	h, ok, err := e.manageable(ctx, m.GuildID, rule.RoleID, log)
	if err != nil || !ok {
		return actionSkipped, err
	}

	record := store.RoleAssignment{
		GuildID:    m.GuildID,
		UserID:     m.UserID,
		RuleID:     rule.ID,
		RoleID:     rule.RoleID,
		AssignedAt: now,
		ExpiresAt:  expiresAt,
	}
	created, err := e.ledger.CreateAssignment(ctx, record, func(ctx context.Context) error {
		return e.roles.AddRoles(ctx, m, []RoleHandle{*h})
	})
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotFound) {
		log.Warn("skipping role assignment", zap.Error(err))
		return actionSkipped, nil
	}
	if err != nil {
		return actionSkipped, err
	}
	if !created {
		return actionUnchanged, nil
	}
	log.Info("assigned rule role", zap.Timep("expires_at", expiresAt))
	return actionAssigned, nil
}

func (e *RuleEvaluator) unassign(ctx context.Context, m Member, key store.AssignmentKey, roleRef string, log *zap.Logger) (ruleAction, error) {
	h, err := e.roles.ResolveRole(ctx, m.GuildID, roleRef)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return actionSkipped, fmt.Errorf("resolving role: %w", err)
	}
	if h == nil {
		// Nothing left to remove; drop the stale record.
		log.Warn("rule role no longer exists, dropping ledger record")
		deleted, err := e.ledger.DeleteAssignment(ctx, key, nil)
		if err != nil {
			return actionSkipped, err
		}
		if !deleted {
			return actionUnchanged, nil
		}
		return actionUnassigned, nil
	}

	ok, err := e.roles.CanManage(ctx, m.GuildID, *h)
	if err != nil {
		return actionSkipped, fmt.Errorf("checking role hierarchy: %w", err)
	}
	if !ok {
		log.Warn("bot cannot manage rule role, skipping removal")
		return actionSkipped, nil
	}

	deleted, err := e.ledger.DeleteAssignment(ctx, key, func(ctx context.Context) error {
		return e.roles.RemoveRoles(ctx, m, []RoleHandle{*h})
	})
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotFound) {
		log.Warn("skipping role removal", zap.Error(err))
		return actionSkipped, nil
	}
	if err != nil {
		return actionSkipped, err
	}
	if !deleted {
		return actionUnchanged, nil
	}
	log.Info("unassigned rule role")
	return actionUnassigned, nil
}

// manageable resolves ref and checks the bot may manage it. A missing or
// unmanageable role is logged and reported as not ok without an error.
func (e *RuleEvaluator) manageable(ctx context.Context, guildID, ref string, log *zap.Logger) (*RoleHandle, bool, error) {
	h, err := e.roles.ResolveRole(ctx, guildID, ref)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("resolving role: %w", err)
	}
	if h == nil {
		log.Warn("rule role not found in guild")
		return nil, false, nil
	}
	ok, err := e.roles.CanManage(ctx, guildID, *h)
	if err != nil {
		return nil, false, fmt.Errorf("checking role hierarchy: %w", err)
	}
	if !ok {
		log.Warn("bot cannot manage rule role, skipping assignment")
		return nil, false, nil
	}
	return h, true, nil
}
