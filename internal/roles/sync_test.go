package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncer(rm RoleManager, stats *fakeStats) *Syncer {
	s := NewSyncer(DefaultCatalog(), rm, stats, DefaultSyncOptions(), nil)
	s.now = fixedNow
	return s
}

var member = Member{GuildID: "g1", UserID: "u1"}

func TestSyncMember_RemovesBeforeAdding(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog(), "Moderator")
	rm.setHeld("u1", "Gloomy", "Moderator", "Tired", "Night Owl")
	stats := newFakeStats()
	snap := Snapshot{Mood: 85, Energy: 10, Activity: 55}
	stats.set("u1", snap)

	res, err := newTestSyncer(rm, stats).SyncMember(ctx, member, snap)
	require.NoError(t, err)

	assert.Equal(t, SyncApplied, res.Outcome)
	assert.Equal(t, []string{"Radiant", "Exhausted"}, res.Target)
	assert.Equal(t, []string{"Gloomy", "Tired", "Night Owl"}, res.Removed)
	assert.Equal(t, []string{"Radiant", "Exhausted"}, res.Added)
	assert.Equal(t, []string{"remove", "add"}, rm.calls)
	assert.ElementsMatch(t, []string{"Moderator", "Radiant", "Exhausted"}, rm.heldBy("u1"))
	assert.Equal(t, testNow, stats.stamps["u1"])
}

func TestSyncMember_SecondCallIsNoop(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	stats := newFakeStats()
	stats.set("u1", Snapshot{Mood: 85, Energy: 10, Activity: 55})
	syncer := newTestSyncer(rm, stats)

	for range 2 {
		snap, err := stats.Snapshot(ctx, "g1", "u1")
		require.NoError(t, err)
		_, err = syncer.SyncMember(ctx, member, *snap)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rm.callCount())

	// Without a cooldown the converged diff is empty.
	syncer.opts.Cooldown = 0
	snap, err := stats.Snapshot(ctx, "g1", "u1")
	require.NoError(t, err)
	res, err := syncer.SyncMember(ctx, member, *snap)
	require.NoError(t, err)
	assert.Equal(t, SyncNoop, res.Outcome)
	assert.Equal(t, 1, rm.callCount())
}

func TestSyncMember_CooldownGates(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	rm.setHeld("u1", "Gloomy")
	stats := newFakeStats()
	syncer := newTestSyncer(rm, stats)

	recent := testNow.Add(-time.Minute)
	res, err := syncer.SyncMember(ctx, member, Snapshot{Mood: 90, LastRoleUpdate: &recent})
	require.NoError(t, err)
	assert.Equal(t, SyncCooldown, res.Outcome)
	assert.Zero(t, rm.callCount())

	elapsed := testNow.Add(-DefaultCooldown)
	res, err = syncer.SyncMember(ctx, member, Snapshot{Mood: 90, LastRoleUpdate: &elapsed})
	require.NoError(t, err)
	assert.Equal(t, SyncApplied, res.Outcome)
}

func TestSyncMember_DropsUnresolvedLabels(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRoles("Radiant", "Active", "Daywalker")
	stats := newFakeStats()

	res, err := newTestSyncer(rm, stats).SyncMember(ctx, member, Snapshot{Mood: 85, Energy: 10, Activity: 55})
	require.NoError(t, err)
	assert.Equal(t, []string{"Radiant"}, res.Added)
	assert.Equal(t, [][]string{{"Radiant"}}, rm.addCalls)
}

func TestSyncMember_NothingResolvableLeavesStamp(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRoles()
	stats := newFakeStats()

	res, err := newTestSyncer(rm, stats).SyncMember(ctx, member, Snapshot{Mood: 85})
	require.NoError(t, err)
	assert.Equal(t, SyncNoop, res.Outcome)
	assert.Empty(t, stats.stamps)
}

func TestSyncMember_FailureKeepsStamp(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	rm.setHeld("u1", "Gloomy")
	rm.removeErr = ErrTransport
	stats := newFakeStats()

	_, err := newTestSyncer(rm, stats).SyncMember(ctx, member, Snapshot{Mood: 85, Energy: 10})
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, []string{"remove"}, rm.calls, "add must not follow a failed removal")
	assert.Empty(t, stats.stamps)
}

func TestSyncMember_MemberRolesError(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	rm.memberRolesErr["u1"] = ErrNotFound
	stats := newFakeStats()

	_, err := newTestSyncer(rm, stats).SyncMember(ctx, member, Snapshot{Mood: 85})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, rm.callCount())
}

func TestSyncMember_StampFailureStillApplied(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	stats := newFakeStats()
	stats.stampErr = errors.New("disk full")

	res, err := newTestSyncer(rm, stats).SyncMember(ctx, member, Snapshot{Mood: 85})
	require.NoError(t, err)
	assert.Equal(t, SyncApplied, res.Outcome)
}

func TestSyncMember_UsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	rm := newFakeRolesForCatalog(DefaultCatalog())
	stats := newFakeStats()

	opts := DefaultSyncOptions()
	opts.MaxRoles = 5
	// 12:00 UTC is 23:00 at UTC+11.
	opts.Location = time.FixedZone("UTC+11", 11*60*60)
	syncer := NewSyncer(DefaultCatalog(), rm, stats, opts, nil)
	syncer.now = fixedNow

	res, err := syncer.SyncMember(ctx, member, Snapshot{Mood: 50, Energy: 50, Activity: 50})
	require.NoError(t, err)
	assert.Contains(t, res.Target, "Night Owl")
}
