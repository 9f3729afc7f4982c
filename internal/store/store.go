package store

import (
	"context"
	"time"
)

// ApplyFunc runs inside a ledger transaction. Returning an error rolls the
// ledger change back.
type ApplyFunc func(ctx context.Context) error

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertMemberStats(ctx context.Context, s MemberStats) error
	GetMemberStats(ctx context.Context, guildID, userID string) (*MemberStats, error)
	ListMemberStats(ctx context.Context, guildID string) ([]MemberStats, error)
	MarkRoleUpdate(ctx context.Context, guildID, userID string, at time.Time) error

	CreateRule(ctx context.Context, r CustomRoleRule) (int64, error)
	GetRule(ctx context.Context, id int64) (*CustomRoleRule, error)
	ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]CustomRoleRule, error)
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteRule(ctx context.Context, id int64) error

	GetAssignment(ctx context.Context, key AssignmentKey) (*RoleAssignment, error)
	CreateAssignment(ctx context.Context, a RoleAssignment, apply ApplyFunc) (bool, error)
	DeleteAssignment(ctx context.Context, key AssignmentKey, apply ApplyFunc) (bool, error)
	ListAssignments(ctx context.Context, guildID, userID string) ([]RoleAssignment, error)
	ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]RoleAssignment, error)
	ListOrphanedAssignments(ctx context.Context, guildID string) ([]RoleAssignment, error)

	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
