package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oncebutler/internal/roles"
)

func evaluateCmd() *cobra.Command {
	var userID string
	var liveMembers bool
	cmd := &cobra.Command{
		Use:   "evaluate <guild>",
		Short: "Evaluate custom role rules for a guild or a single member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(args[0], userID, liveMembers)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Evaluate only this member")
	cmd.Flags().BoolVar(&liveMembers, "live-members", false, "List members from Discord instead of stored stats")
	return cmd
}

func runEvaluate(guildID, userID string, liveMembers bool) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	var members []roles.Member
	switch {
	case userID != "":
		members = []roles.Member{{GuildID: guildID, UserID: userID}}
	case liveMembers:
		members, err = rt.roles.GuildMembers(ctx, guildID)
	default:
		members, err = rt.ports.GuildMembers(ctx, guildID)
	}
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	evaluator := rt.evaluator()
	total := &roles.EvaluationResult{}
	for _, m := range members {
		result, err := evaluator.EvaluateMember(ctx, m)
		if err != nil {
			total.Errors = append(total.Errors, fmt.Errorf("member %s: %w", m.UserID, err))
			continue
		}
		total.Assigned += result.Assigned
		total.Unassigned += result.Unassigned
		total.Skipped += result.Skipped
		total.Unchanged += result.Unchanged
		for _, item := range result.Errors {
			total.Errors = append(total.Errors, fmt.Errorf("member %s: %w", m.UserID, item))
		}
	}

	fmt.Fprintln(os.Stdout, "Evaluation complete.")
	fmt.Fprintf(os.Stdout, "  Members:    %d\n", len(members))
	fmt.Fprintf(os.Stdout, "  Assigned:   %d\n", total.Assigned)
	fmt.Fprintf(os.Stdout, "  Unassigned: %d\n", total.Unassigned)
	fmt.Fprintf(os.Stdout, "  Unchanged:  %d\n", total.Unchanged)
	fmt.Fprintf(os.Stdout, "  Skipped:    %d\n", total.Skipped)

	if len(total.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(total.Errors))
		for _, item := range total.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("evaluation completed with errors")
	}
	return nil
}
