package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func reapCmd() *cobra.Command {
	var guildID string
	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Remove expired and orphaned role assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReap(guildID)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Only reap this guild")
	return cmd
}

func runReap(guildID string) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	guilds, err := targetGuilds(rt.cfg, guildID)
	if err != nil {
		return err
	}

	reaper := rt.reaper()
	var failed []error
	for _, guild := range guilds {
		reaped, err := reaper.CleanupExpired(ctx, guild)
		if err != nil {
			failed = append(failed, fmt.Errorf("guild %s: %w", guild, err))
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: %d expired or orphaned assignments removed\n", guild, reaped)
	}

	if len(failed) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(failed))
		for _, item := range failed {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("reap completed with errors")
	}
	return nil
}
