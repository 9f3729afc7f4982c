package roles

import (
	"context"
	"time"

	"oncebutler/internal/store"
)

type Member struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// Snapshot is the read-only view of a member's stats for one invocation.
type Snapshot struct {
	Mood           float64    `json:"mood"`
	Energy         float64    `json:"energy"`
	Activity       float64    `json:"activity"`
	ChaosLabel     string     `json:"chaos_label,omitempty"`
	ChaosExpiresAt *time.Time `json:"chaos_expires_at,omitempty"`
	LastRoleUpdate *time.Time `json:"last_role_update,omitempty"`
}

type Progress struct {
	VoiceMinutes  float64 `json:"voice_minutes"`
	OnlineMinutes float64 `json:"online_minutes"`
}

// RoleHandle is a resolved guild role.
type RoleHandle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// StatsProvider returns ErrNotFound for members without stats.
type StatsProvider interface {
	Snapshot(ctx context.Context, guildID, userID string) (*Snapshot, error)
	Progress(ctx context.Context, guildID, userID string) (*Progress, error)
}

// RoleManager performs role changes on the chat platform. ResolveRole accepts
// a role name or ID and returns nil when no such role exists.
type RoleManager interface {
	MemberRoles(ctx context.Context, m Member) ([]string, error)
	ResolveRole(ctx context.Context, guildID, ref string) (*RoleHandle, error)
	AddRoles(ctx context.Context, m Member, handles []RoleHandle) error
	RemoveRoles(ctx context.Context, m Member, handles []RoleHandle) error
	CanManage(ctx context.Context, guildID string, h RoleHandle) (bool, error)
}

type RuleSource interface {
	EnabledRules(ctx context.Context, guildID string) ([]store.CustomRoleRule, error)
}

// Ledger tracks custom-rule grants. Create and Delete run apply inside the
// same transaction as the row change. Orphaned records are those whose rule
// has been deleted.
type Ledger interface {
	GetAssignment(ctx context.Context, key store.AssignmentKey) (*store.RoleAssignment, error)
	CreateAssignment(ctx context.Context, a store.RoleAssignment, apply store.ApplyFunc) (bool, error)
	DeleteAssignment(ctx context.Context, key store.AssignmentKey, apply store.ApplyFunc) (bool, error)
	ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error)
	ListOrphanedAssignments(ctx context.Context, guildID string) ([]store.RoleAssignment, error)
}

type CooldownRecorder interface {
	MarkRoleUpdate(ctx context.Context, guildID, userID string, at time.Time) error
}

type MemberLister interface {
	GuildMembers(ctx context.Context, guildID string) ([]Member, error)
}
