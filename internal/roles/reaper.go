package roles

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"oncebutler/internal/store"
)

// Reaper removes custom-rule grants that expired or lost their rule.
type Reaper struct {
	ledger Ledger
	roles  RoleManager
	logger *zap.Logger
	now    func() time.Time
}

func NewReaper(ledger Ledger, rm RoleManager, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{ledger: ledger, roles: rm, logger: logger, now: time.Now}
}

// CleanupExpired removes every grant whose expiry is at or before now and
// every grant whose rule no longer exists. Role removal is best-effort; the
// ledger record is deleted either way. An empty guildID sweeps all guilds. It
// returns the number of records reaped.
func (r *Reaper) CleanupExpired(ctx context.Context, guildID string) (int, error) {
	expired, err := r.ledger.ExpiredAssignments(ctx, guildID, r.now())
	if err != nil {
		return 0, fmt.Errorf("listing expired assignments: %w", err)
	}
	orphaned, err := r.ledger.ListOrphanedAssignments(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("listing orphaned assignments: %w", err)
	}

	reaped := 0
	seen := make(map[store.AssignmentKey]struct{}, len(expired)+len(orphaned))
	for _, batch := range []struct {
		reason  string
		records []store.RoleAssignment
	}{
		{"expired", expired},
		{"orphaned", orphaned},
	} {
		for _, a := range batch.records {
			if err := ctx.Err(); err != nil {
				return reaped, err
			}
			if _, ok := seen[a.Key()]; ok {
				continue
			}
			seen[a.Key()] = struct{}{}
			if r.reap(ctx, a, batch.reason) {
				reaped++
			}
		}
	}
	return reaped, nil
}

func (r *Reaper) reap(ctx context.Context, a store.RoleAssignment, reason string) bool {
	log := r.logger.With(
		zap.String("guild", a.GuildID),
		zap.String("user", a.UserID),
		zap.Int64("rule", a.RuleID),
		zap.String("role", a.RoleID),
		zap.String("reason", reason),
	)

	m := Member{GuildID: a.GuildID, UserID: a.UserID}
	if err := r.removeRole(ctx, m, a.RoleID); err != nil {
		log.Warn("removing reaped role", zap.Error(err))
	}

	deleted, err := r.ledger.DeleteAssignment(ctx, a.Key(), nil)
	if err != nil {
		log.Error("deleting reaped assignment", zap.Error(err))
		return false
	}
	if deleted {
		log.Info("reaped role assignment")
	}
	return deleted
}

func (r *Reaper) removeRole(ctx context.Context, m Member, ref string) error {
	h, err := r.roles.ResolveRole(ctx, m.GuildID, ref)
	if err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("role %q: %w", ref, ErrNotFound)
	}
	ok, err := r.roles.CanManage(ctx, m.GuildID, *h)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("role %q: %w", h.Name, ErrPermissionDenied)
	}
	return r.roles.RemoveRoles(ctx, m, []RoleHandle{*h})
}
