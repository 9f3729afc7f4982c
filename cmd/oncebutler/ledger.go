package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"oncebutler/internal/store"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect custom rule role assignments",
	}
	cmd.AddCommand(ledgerListCmd())
	return cmd
}

func ledgerListCmd() *cobra.Command {
	var guildID string
	var userID string
	var expired bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerList(guildID, userID, expired)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Guild to filter")
	cmd.Flags().StringVar(&userID, "user", "", "Member to filter")
	cmd.Flags().BoolVar(&expired, "expired", false, "Only records past their expiry")
	return cmd
}

func runLedgerList(guildID, userID string, expired bool) error {
	ctx := context.Background()

	db, err := openConfiguredDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	var records []store.RoleAssignment
	if expired {
		records, err = db.ExpiredAssignments(ctx, guildID, time.Now())
	} else {
		records, err = db.ListAssignments(ctx, guildID, userID)
	}
	if err != nil {
		return err
	}

	printed := 0
	for _, a := range records {
		if userID != "" && a.UserID != userID {
			continue
		}
		expiry := "never"
		if a.ExpiresAt != nil {
			expiry = a.ExpiresAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(os.Stdout, "[%s] user %s rule #%d role %s assigned %s expires %s\n",
			a.GuildID, a.UserID, a.RuleID, a.RoleID, a.AssignedAt.Local().Format(time.DateTime), expiry)
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(os.Stdout, "No assignments found.")
	}
	return nil
}
