package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type failingLister struct{}

func (failingLister) GuildMembers(context.Context, string) ([]Member, error) {
	return nil, errors.New("gateway closed")
}

func newTestEngine(stats *fakeStats, lister MemberLister, rm *fakeRoles, ledger *fakeLedger, concurrency int) *Engine {
	syncer := newTestSyncer(rm, stats)
	evaluator := NewRuleEvaluator(stats, stats, ledger, rm, nil)
	evaluator.now = fixedNow
	return NewEngine(lister, stats, syncer, evaluator, concurrency, nil)
}

func TestEvaluateGuild_ProcessesEveryMember(t *testing.T) {
	defer goleak.VerifyNone(t)

	stats := newFakeStats()
	stats.rules = append(stats.rules, energyRule(false, 0))
	stats.extra = []string{"u0-nostats"}
	stats.set("u1", Snapshot{Mood: 85, Energy: 60})
	stats.set("u2", Snapshot{Mood: 10, Energy: 20})
	stats.set("u3", Snapshot{Mood: 50, Energy: 70})

	rm := newFakeRolesForCatalog(DefaultCatalog(), "Booster")
	rm.memberRolesErr["u2"] = ErrTransport
	ledger := newFakeLedger()

	res, err := newTestEngine(stats, stats, rm, ledger, 3).EvaluateGuild(context.Background(), "g1")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 4, res.Members)
	assert.Equal(t, 1, res.Missing)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 2, res.Assigned)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrTransport)

	assert.Equal(t, 2, ledger.count())
	assert.Contains(t, rm.heldBy("u1"), "Booster")
	assert.Contains(t, rm.heldBy("u3"), "Booster")
}

func TestEvaluateGuild_Sequential(t *testing.T) {
	stats := newFakeStats()
	stats.set("u1", Snapshot{Mood: 85})
	stats.set("u2", Snapshot{Mood: 85})
	rm := newFakeRolesForCatalog(DefaultCatalog())

	res, err := newTestEngine(stats, stats, rm, newFakeLedger(), 0).EvaluateGuild(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Empty(t, res.Errors)
}

func TestEvaluateGuild_ListError(t *testing.T) {
	stats := newFakeStats()
	_, err := newTestEngine(stats, failingLister{}, newFakeRoles(), newFakeLedger(), 1).EvaluateGuild(context.Background(), "g1")
	assert.Error(t, err)
}

func TestEvaluateGuild_Canceled(t *testing.T) {
	stats := newFakeStats()
	stats.set("u1", Snapshot{Mood: 85})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestEngine(stats, stats, newFakeRolesForCatalog(DefaultCatalog()), newFakeLedger(), 1).EvaluateGuild(ctx, "g1")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.Synced)
}
