package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oncebutler/internal/store"
)

func seedLedger(l *fakeLedger) {
	past := testNow.Add(-time.Hour)
	now := testNow
	future := testNow.Add(time.Hour)
	l.put(store.RoleAssignment{GuildID: "g1", UserID: "u1", RuleID: 1, RoleID: "Booster", AssignedAt: past, ExpiresAt: &now})
	l.put(store.RoleAssignment{GuildID: "g1", UserID: "u2", RuleID: 1, RoleID: "Booster", AssignedAt: past, ExpiresAt: &past})
	l.put(store.RoleAssignment{GuildID: "g1", UserID: "u3", RuleID: 1, RoleID: "Booster", AssignedAt: past, ExpiresAt: &future})
	l.put(store.RoleAssignment{GuildID: "g1", UserID: "u4", RuleID: 2, RoleID: "Booster", AssignedAt: past})
	l.put(store.RoleAssignment{GuildID: "g2", UserID: "u5", RuleID: 3, RoleID: "Booster", AssignedAt: past, ExpiresAt: &past})
}

func newTestReaper(l *fakeLedger, rm *fakeRoles) *Reaper {
	r := NewReaper(l, rm, nil)
	r.now = fixedNow
	return r
}

func TestCleanupExpired_ReapsOnce(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	seedLedger(ledger)
	rm := newFakeRoles("Booster")
	rm.setHeld("u1", "Booster")
	rm.setHeld("u2", "Booster")
	reaper := newTestReaper(ledger, rm)

	n, err := reaper.CleanupExpired(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, ledger.count())
	assert.Len(t, rm.removeCalls, 2)
	assert.Empty(t, rm.heldBy("u1"))
	assert.Empty(t, rm.heldBy("u2"))

	n, err = reaper.CleanupExpired(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rm.removeCalls, 2)
}

func TestCleanupExpired_AllGuilds(t *testing.T) {
	ledger := newFakeLedger()
	seedLedger(ledger)

	n, err := newTestReaper(ledger, newFakeRoles("Booster")).CleanupExpired(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, ledger.count())
}

func TestCleanupExpired_DeletesDespiteRemovalFailure(t *testing.T) {
	ledger := newFakeLedger()
	seedLedger(ledger)
	rm := newFakeRoles("Booster")
	rm.removeErr = ErrNotFound

	n, err := newTestReaper(ledger, rm).CleanupExpired(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, ledger.count())
}

func TestCleanupExpired_RoleGoneOrUnmanageable(t *testing.T) {
	ledger := newFakeLedger()
	seedLedger(ledger)

	n, err := newTestReaper(ledger, newFakeRoles()).CleanupExpired(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ledger = newFakeLedger()
	seedLedger(ledger)
	rm := newFakeRoles("Booster")
	rm.unmanageable["Booster"] = true
	n, err = newTestReaper(ledger, rm).CleanupExpired(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, rm.callCount())
}

func TestCleanupExpired_ReapsOrphanedRecords(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	seedLedger(ledger)
	ledger.dropRule(2)
	ledger.dropRule(3)
	rm := newFakeRoles("Booster")
	rm.setHeld("u4", "Booster")
	reaper := newTestReaper(ledger, rm)

	n, err := reaper.CleanupExpired(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "two expired plus the permanent record of the deleted rule")
	assert.Empty(t, rm.heldBy("u4"))
	assert.Equal(t, 2, ledger.count(), "g2 is untouched by a g1 sweep")

	n, err = reaper.CleanupExpired(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ledger.count())
}

func TestCleanupExpired_ExpiredOrphanReapedOnce(t *testing.T) {
	ledger := newFakeLedger()
	seedLedger(ledger)
	ledger.dropRule(1)
	rm := newFakeRoles("Booster")
	rm.setHeld("u1", "Booster")

	n, err := newTestReaper(ledger, rm).CleanupExpired(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "u1 and u2 expired, u3 orphaned")
	assert.Len(t, rm.removeCalls, 3, "one removal per record although u1 and u2 are listed twice")
	assert.Equal(t, 2, ledger.count())
}
