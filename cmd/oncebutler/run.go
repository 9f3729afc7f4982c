package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oncebutler/internal/roles"
)

func runCmd() *cobra.Command {
	var liveMembers bool
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the role engine for every configured guild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(liveMembers, once)
		},
	}
	cmd.Flags().BoolVar(&liveMembers, "live-members", false, "List members from Discord instead of stored stats")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

func runEngine(liveMembers, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	guilds, err := targetGuilds(rt.cfg, "")
	if err != nil {
		return err
	}

	engine := rt.engine(liveMembers)
	reaper := rt.reaper()
	pass := func() error {
		var failed int
		for _, guild := range guilds {
			if err := runGuildPass(ctx, engine, reaper, guild); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("guild pass failed", zap.String("guild", guild), zap.Error(err))
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d guild passes failed", failed, len(guilds))
		}
		return nil
	}

	logger.Info("engine started",
		zap.Strings("guilds", guilds),
		zap.Duration("interval", rt.cfg.Engine.Interval),
		zap.Bool("live_members", liveMembers),
	)
	if err := pass(); once {
		return err
	}

	ticker := time.NewTicker(rt.cfg.Engine.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("engine stopped")
			return nil
		case <-ticker.C:
			_ = pass()
		}
	}
}

func runGuildPass(ctx context.Context, engine *roles.Engine, reaper *roles.Reaper, guild string) error {
	result, err := engine.EvaluateGuild(ctx, guild)
	if err != nil {
		return err
	}
	for _, item := range result.Errors {
		logger.Warn("member failed", zap.String("run_id", result.RunID), zap.Error(item))
	}

	reaped, err := reaper.CleanupExpired(ctx, guild)
	if err != nil {
		return fmt.Errorf("reaping expired assignments: %w", err)
	}

	if reaped > 0 {
		logger.Info("assignments reaped",
			zap.String("run_id", result.RunID),
			zap.String("guild", guild),
			zap.Int("reaped", reaped),
		)
	}
	return nil
}
