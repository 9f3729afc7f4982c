package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"oncebutler/internal/roles"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <guild> <user>",
		Short: "Synchronise one member's managed roles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(args[0], args[1])
		},
	}
	return cmd
}

func runSync(guildID, userID string) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	snap, err := rt.ports.Snapshot(ctx, guildID, userID)
	if err != nil {
		return err
	}

	result, err := rt.syncer().SyncMember(ctx, roles.Member{GuildID: guildID, UserID: userID}, *snap)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Outcome: %s\n", result.Outcome)
	if result.Outcome == roles.SyncCooldown {
		return nil
	}
	fmt.Fprintf(os.Stdout, "  Target:  %s\n", joinOrNone(result.Target))
	fmt.Fprintf(os.Stdout, "  Added:   %s\n", joinOrNone(result.Added))
	fmt.Fprintf(os.Stdout, "  Removed: %s\n", joinOrNone(result.Removed))
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
