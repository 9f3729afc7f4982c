package validate

import (
	"context"
	"testing"
	"time"

	"oncebutler/internal/store"
)

type mockStore struct {
	rules       []store.CustomRoleRule
	assignments []store.RoleAssignment
	orphans     []store.RoleAssignment
	expired     []store.RoleAssignment
	expiredNow  time.Time
}

func (m *mockStore) ListRules(ctx context.Context, guildID string, enabledOnly bool) ([]store.CustomRoleRule, error) {
	return m.rules, nil
}

func (m *mockStore) ListAssignments(ctx context.Context, guildID, userID string) ([]store.RoleAssignment, error) {
	return m.assignments, nil
}

func (m *mockStore) ListOrphanedAssignments(ctx context.Context, guildID string) ([]store.RoleAssignment, error) {
	return m.orphans, nil
}

func (m *mockStore) ExpiredAssignments(ctx context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error) {
	m.expiredNow = now
	return m.expired, nil
}

func TestRun_NilStore(t *testing.T) {
	if _, err := Run(context.Background(), nil, time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_Clean(t *testing.T) {
	db := &mockStore{
		rules: []store.CustomRoleRule{
			{ID: 1, GuildID: "g", RoleID: "r", StatType: store.StatMood, Operator: store.OpLess, Value: 20, Enabled: true},
		},
		assignments: []store.RoleAssignment{{GuildID: "g", UserID: "u", RuleID: 1, RoleID: "r"}},
	}
	report, err := Run(context.Background(), db, time.Now())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", report.Issues)
	}
	if report.HasErrors() {
		t.Fatalf("expected no errors")
	}
}

func TestRun_ReportsIssues(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	db := &mockStore{
		rules: []store.CustomRoleRule{
			{ID: 1, GuildID: "g", RoleID: "r", StatType: "charisma", Operator: store.OpLess, Value: 20, Enabled: true},
			{ID: 2, GuildID: "g", RoleID: "r", StatType: store.StatEnergy, Operator: store.OpGreater, Value: 50},
			{ID: 3, GuildID: "g", RoleID: "r", StatType: store.StatMood, Operator: store.OpGreater, Value: 50, IsTemporary: true, DurationMinutes: 5, Enabled: true},
		},
		assignments: []store.RoleAssignment{
			{GuildID: "g", UserID: "u1", RuleID: 2, RoleID: "r", ExpiresAt: &past},
			{GuildID: "g", UserID: "u2", RuleID: 3, RoleID: "r"},
		},
		orphans: []store.RoleAssignment{{GuildID: "g", UserID: "u3", RuleID: 99, RoleID: "r"}},
		expired: []store.RoleAssignment{{GuildID: "g", UserID: "u1", RuleID: 2, RoleID: "r", ExpiresAt: &past}},
	}

	report, err := Run(context.Background(), db, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !db.expiredNow.Equal(now) {
		t.Fatalf("expected expiry check at %v, got %v", now, db.expiredNow)
	}

	codes := map[string]int{}
	for _, issue := range report.Issues {
		codes[issue.Code]++
	}
	want := map[string]int{
		codeInvalidRule:            1,
		codeOrphanedAssignment:     1,
		codeDisabledRuleAssignment: 1,
		codePermanentWithExpiry:    1,
		codeTemporaryNoExpiry:      1,
		codeOverdueExpiry:          1,
	}
	for code, n := range want {
		if codes[code] != n {
			t.Errorf("expected %d %s issues, got %d", n, code, codes[code])
		}
	}
	if len(report.Issues) != 6 {
		t.Fatalf("expected 6 issues, got %d: %+v", len(report.Issues), report.Issues)
	}
	if !report.HasErrors() {
		t.Fatalf("expected errors")
	}
}
