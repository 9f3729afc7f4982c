package roles

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"oncebutler/internal/store"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// fakeRoles is an in-memory guild: a role table plus per-user held names.
type fakeRoles struct {
	mu           sync.Mutex
	guildRoles   map[string]RoleHandle
	held         map[string][]string
	unmanageable map[string]bool
	calls        []string
	addCalls     [][]string
	removeCalls  [][]string

	addErr         error
	removeErr      error
	memberRolesErr map[string]error
}

func newFakeRoles(names ...string) *fakeRoles {
	f := &fakeRoles{
		guildRoles:     map[string]RoleHandle{},
		held:           map[string][]string{},
		unmanageable:   map[string]bool{},
		memberRolesErr: map[string]error{},
	}
	for i, name := range names {
		f.guildRoles[name] = RoleHandle{ID: fmt.Sprintf("id-%d", i+1), Name: name, Position: i + 1}
	}
	return f
}

func newFakeRolesForCatalog(c *Catalog, extra ...string) *fakeRoles {
	names := Names(c.Labels())
	return newFakeRoles(append(names, extra...)...)
}

func (f *fakeRoles) setHeld(userID string, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[userID] = names
}

func (f *fakeRoles) heldBy(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.held[userID]...)
}

func (f *fakeRoles) MemberRoles(_ context.Context, m Member) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.memberRolesErr[m.UserID]; err != nil {
		return nil, err
	}
	return append([]string(nil), f.held[m.UserID]...), nil
}

func (f *fakeRoles) ResolveRole(_ context.Context, _ string, ref string) (*RoleHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.guildRoles[ref]; ok {
		return &h, nil
	}
	for _, h := range f.guildRoles {
		if h.ID == ref {
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeRoles) AddRoles(_ context.Context, m Member, handles []RoleHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "add")
	if f.addErr != nil {
		return f.addErr
	}
	names := handleNames(handles)
	f.addCalls = append(f.addCalls, names)
	f.held[m.UserID] = append(f.held[m.UserID], names...)
	return nil
}

func (f *fakeRoles) RemoveRoles(_ context.Context, m Member, handles []RoleHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	names := handleNames(handles)
	f.removeCalls = append(f.removeCalls, names)
	f.held[m.UserID] = slices.DeleteFunc(f.held[m.UserID], func(n string) bool {
		return slices.Contains(names, n)
	})
	return nil
}

func (f *fakeRoles) CanManage(_ context.Context, _ string, h RoleHandle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unmanageable[h.Name], nil
}

func (f *fakeRoles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeStats serves snapshots, progress, rules, members and cooldown stamps.
type fakeStats struct {
	mu       sync.Mutex
	snaps    map[string]Snapshot
	progress map[string]Progress
	rules    []store.CustomRoleRule
	extra    []string
	stamps   map[string]time.Time
	stampErr error
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		snaps:    map[string]Snapshot{},
		progress: map[string]Progress{},
		stamps:   map[string]time.Time{},
	}
}

func (f *fakeStats) set(userID string, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[userID] = snap
}

func (f *fakeStats) Snapshot(_ context.Context, _, userID string) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	return &s, nil
}

func (f *fakeStats) Progress(_ context.Context, _, userID string) (*Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snaps[userID]; !ok {
		return nil, fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	p := f.progress[userID]
	return &p, nil
}

func (f *fakeStats) MarkRoleUpdate(_ context.Context, _, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stampErr != nil {
		return f.stampErr
	}
	f.stamps[userID] = at
	s := f.snaps[userID]
	s.LastRoleUpdate = &at
	f.snaps[userID] = s
	return nil
}

func (f *fakeStats) EnabledRules(_ context.Context, guildID string) ([]store.CustomRoleRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rules []store.CustomRoleRule
	for _, r := range f.rules {
		if r.GuildID == guildID && r.Enabled {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func (f *fakeStats) GuildMembers(_ context.Context, guildID string) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]string(nil), f.extra...)
	for id := range f.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	members := make([]Member, len(ids))
	for i, id := range ids {
		members[i] = Member{GuildID: guildID, UserID: id}
	}
	return members, nil
}

// fakeLedger serializes writers the way a unique constraint does.
type fakeLedger struct {
	mu           sync.Mutex
	records      map[store.AssignmentKey]store.RoleAssignment
	deletedRules map[int64]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		records:      map[store.AssignmentKey]store.RoleAssignment{},
		deletedRules: map[int64]bool{},
	}
}

func (l *fakeLedger) GetAssignment(_ context.Context, key store.AssignmentKey) (*store.RoleAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.records[key]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (l *fakeLedger) CreateAssignment(ctx context.Context, a store.RoleAssignment, apply store.ApplyFunc) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[a.Key()]; ok {
		return false, nil
	}
	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, err
		}
	}
	l.records[a.Key()] = a
	return true, nil
}

func (l *fakeLedger) DeleteAssignment(ctx context.Context, key store.AssignmentKey, apply store.ApplyFunc) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[key]; !ok {
		return false, nil
	}
	if apply != nil {
		if err := apply(ctx); err != nil {
			return false, err
		}
	}
	delete(l.records, key)
	return true, nil
}

func (l *fakeLedger) ExpiredAssignments(_ context.Context, guildID string, now time.Time) ([]store.RoleAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var expired []store.RoleAssignment
	for _, a := range l.records {
		if a.ExpiresAt == nil || a.ExpiresAt.After(now) {
			continue
		}
		if guildID != "" && a.GuildID != guildID {
			continue
		}
		expired = append(expired, a)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].UserID < expired[j].UserID })
	return expired, nil
}

func (l *fakeLedger) ListOrphanedAssignments(_ context.Context, guildID string) ([]store.RoleAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var orphaned []store.RoleAssignment
	for _, a := range l.records {
		if !l.deletedRules[a.RuleID] {
			continue
		}
		if guildID != "" && a.GuildID != guildID {
			continue
		}
		orphaned = append(orphaned, a)
	}
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i].UserID < orphaned[j].UserID })
	return orphaned, nil
}

// dropRule marks a rule as deleted so its records become orphans.
func (l *fakeLedger) dropRule(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deletedRules[id] = true
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *fakeLedger) put(a store.RoleAssignment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[a.Key()] = a
}
