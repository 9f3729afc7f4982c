package roles

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PassResult summarises one guild pass.
type PassResult struct {
	RunID       string  `json:"run_id"`
	GuildID     string  `json:"guild_id"`
	Members     int     `json:"members"`
	Synced      int     `json:"synced"`
	CoolingDown int     `json:"cooling_down"`
	Missing     int     `json:"missing"`
	Assigned    int     `json:"assigned"`
	Unassigned  int     `json:"unassigned"`
	Skipped     int     `json:"skipped"`
	Errors      []error `json:"-"`
}

// Engine drives a full guild pass: role sync and rule evaluation for every
// member.
type Engine struct {
	members     MemberLister
	stats       StatsProvider
	syncer      *Syncer
	evaluator   *RuleEvaluator
	concurrency int
	logger      *zap.Logger
}

func NewEngine(members MemberLister, stats StatsProvider, syncer *Syncer, evaluator *RuleEvaluator, concurrency int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		members:     members,
		stats:       stats,
		syncer:      syncer,
		evaluator:   evaluator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// EvaluateGuild processes every member of the guild. Member failures are
// logged and collected; only a failure to list members is returned.
func (e *Engine) EvaluateGuild(ctx context.Context, guildID string) (*PassResult, error) {
	result := &PassResult{RunID: uuid.NewString(), GuildID: guildID}
	log := e.logger.With(zap.String("run_id", result.RunID), zap.String("guild", guildID))

	members, err := e.members.GuildMembers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing guild members: %w", err)
	}
	result.Members = len(members)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, m := range members {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome := e.evaluateMember(ctx, m, log)
			mu.Lock()
			defer mu.Unlock()
			outcome.addTo(result)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	log.Info("guild pass complete",
		zap.Int("members", result.Members),
		zap.Int("synced", result.Synced),
		zap.Int("assigned", result.Assigned),
		zap.Int("unassigned", result.Unassigned),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

type memberOutcome struct {
	sync       *SyncResult
	missing    bool
	evaluation *EvaluationResult
	errs       []error
}

func (o memberOutcome) addTo(r *PassResult) {
	if o.missing {
		r.Missing++
	}
	if o.sync != nil {
		switch o.sync.Outcome {
		case SyncApplied:
			r.Synced++
		case SyncCooldown:
			r.CoolingDown++
		}
	}
	if o.evaluation != nil {
		r.Assigned += o.evaluation.Assigned
		r.Unassigned += o.evaluation.Unassigned
		r.Skipped += o.evaluation.Skipped
		r.Errors = append(r.Errors, o.evaluation.Errors...)
	}
	r.Errors = append(r.Errors, o.errs...)
}

func (e *Engine) evaluateMember(ctx context.Context, m Member, log *zap.Logger) memberOutcome {
	var out memberOutcome
	log = log.With(zap.String("user", m.UserID))

	snap, err := e.stats.Snapshot(ctx, m.GuildID, m.UserID)
	if errors.Is(err, ErrNotFound) {
		log.Debug("member has no stats")
		out.missing = true
		return out
	}
	if err != nil {
		log.Error("loading member snapshot", zap.Error(err))
		out.errs = append(out.errs, fmt.Errorf("member %s: %w", m.UserID, err))
		return out
	}

	out.sync, err = e.syncer.SyncMember(ctx, m, *snap)
	if err != nil {
		out.errs = append(out.errs, fmt.Errorf("member %s: sync: %w", m.UserID, err))
	}

	out.evaluation, err = e.evaluator.EvaluateMember(ctx, m)
	if err != nil {
		log.Error("evaluating custom rules", zap.Error(err))
		out.errs = append(out.errs, fmt.Errorf("member %s: rules: %w", m.UserID, err))
	}
	if out.evaluation != nil {
		for i, ruleErr := range out.evaluation.Errors {
			out.evaluation.Errors[i] = fmt.Errorf("member %s: %w", m.UserID, ruleErr)
		}
	}
	return out
}
