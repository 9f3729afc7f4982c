package validate

import (
	"context"
	"fmt"
	"time"

	"oncebutler/internal/rulefile"
	"oncebutler/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeInvalidRule            = "invalid_rule"
	codeOrphanedAssignment     = "orphaned_assignment"
	codeDisabledRuleAssignment = "disabled_rule_assignment"
	codeOverdueExpiry          = "overdue_expiry"
	codePermanentWithExpiry    = "permanent_with_expiry"
	codeTemporaryNoExpiry      = "temporary_without_expiry"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Guild    string   `json:"guild,omitempty"`
	User     string   `json:"user,omitempty"`
	RuleID   int64    `json:"rule_id,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// LedgerReader is the read side of the store the checks need.
type LedgerReader interface {
	ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error)
	ListAssignments(ctx context.Context, guildID, userID string) ([]store.RoleAssignment, error)
	ListOrphanedAssignments(ctx context.Context, guildID string) ([]store.RoleAssignment, error)
	ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error)
}

// Run checks stored rules and the assignment ledger for inconsistencies.
func Run(ctx context.Context, db LedgerReader, now time.Time) (*Report, error) {
	if db == nil {
		return nil, fmt.Errorf("store is required")
	}

	issues := make([]Issue, 0)

	rules, err := db.ListRules(ctx, "", false)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	byID := make(map[int64]store.CustomRoleRule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
		if err := rulefile.Validate(rule); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeInvalidRule,
				Message:  fmt.Sprintf("invalid rule: %v", err),
				Guild:    rule.GuildID,
				RuleID:   rule.ID,
			})
		}
	}

	orphans, err := db.ListOrphanedAssignments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list orphaned assignments: %w", err)
	}
	for _, a := range orphans {
		issues = append(issues, issueFromAssignment(a, SeverityError, codeOrphanedAssignment, "assignment references a deleted rule"))
	}

	assignments, err := db.ListAssignments(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range assignments {
		rule, ok := byID[a.RuleID]
		if !ok {
			continue
		}
		issues = append(issues, validateAssignment(a, rule)...)
	}

	overdue, err := db.ExpiredAssignments(ctx, "", now)
	if err != nil {
		return nil, fmt.Errorf("list expired assignments: %w", err)
	}
	for _, a := range overdue {
		msg := fmt.Sprintf("assignment expired at %s but was not reaped", a.ExpiresAt.UTC().Format(time.RFC3339))
		issues = append(issues, issueFromAssignment(a, SeverityWarn, codeOverdueExpiry, msg))
	}

	return &Report{Issues: issues}, nil
}

func validateAssignment(a store.RoleAssignment, rule store.CustomRoleRule) []Issue {
	var issues []Issue
	if !rule.Enabled && !rule.IsTemporary {
		issues = append(issues, issueFromAssignment(a, SeverityWarn, codeDisabledRuleAssignment, "permanent assignment for a disabled rule is never re-evaluated"))
	}
	if !rule.IsTemporary && a.ExpiresAt != nil {
		issues = append(issues, issueFromAssignment(a, SeverityWarn, codePermanentWithExpiry, "permanent rule assignment has an expiry"))
	}
	if rule.IsTemporary && a.ExpiresAt == nil {
		issues = append(issues, issueFromAssignment(a, SeverityError, codeTemporaryNoExpiry, "temporary rule assignment never expires"))
	}
	return issues
}

func issueFromAssignment(a store.RoleAssignment, severity Severity, code, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Guild:    a.GuildID,
		User:     a.UserID,
		RuleID:   a.RuleID,
	}
}
