package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"oncebutler/internal/rulefile"
	"oncebutler/internal/store"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage custom role rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesEnableCmd(true))
	cmd.AddCommand(rulesEnableCmd(false))
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesImportCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	var guildID string
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List custom role rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(guildID, enabledOnly)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Guild to filter")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only enabled rules")
	return cmd
}

func runRulesList(guildID string, enabledOnly bool) error {
	ctx := context.Background()

	db, err := openConfiguredDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	rules, err := db.ListRules(ctx, guildID, enabledOnly)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Fprintln(os.Stdout, "No rules found.")
		return nil
	}
	for _, r := range rules {
		fmt.Fprintln(os.Stdout, formatRule(r))
	}
	return nil
}

func formatRule(r store.CustomRoleRule) string {
	kind := "permanent"
	if r.IsTemporary {
		kind = fmt.Sprintf("temporary %dm", r.DurationMinutes)
	}
	state := "enabled"
	if !r.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("#%d [%s] role %s when %s %s %s (%s, %s)",
		r.ID, r.GuildID, r.RoleID, r.StatType, r.Operator,
		strconv.FormatFloat(r.Value, 'f', -1, 64), kind, state)
}

func rulesAddCmd() *cobra.Command {
	var rule store.CustomRoleRule
	var stat, op string
	var disabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom role rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule.StatType = store.StatType(stat)
			rule.Operator = store.Operator(op)
			rule.Enabled = !disabled
			return runRulesAdd(rule)
		},
	}
	cmd.Flags().StringVar(&rule.GuildID, "guild", "", "Guild ID")
	cmd.Flags().StringVar(&rule.RoleID, "role", "", "Role name or ID to grant")
	cmd.Flags().StringVar(&stat, "stat", "", "Stat: mood, energy, activity, voiceMinutes, onlineMinutes")
	cmd.Flags().StringVar(&op, "op", ">=", "Operator: >=, >, <=, <, ==")
	cmd.Flags().Float64Var(&rule.Value, "value", 0, "Threshold")
	cmd.Flags().BoolVar(&rule.IsTemporary, "temporary", false, "Grant the role for a limited time")
	cmd.Flags().IntVar(&rule.DurationMinutes, "duration", 0, "Minutes a temporary grant lasts")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("stat")
	return cmd
}

func runRulesAdd(rule store.CustomRoleRule) error {
	if err := rulefile.Validate(rule); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openConfiguredDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	rule.CreatedAt = time.Now()
	id, err := db.CreateRule(ctx, rule)
	if err != nil {
		return err
	}
	rule.ID = id
	fmt.Fprintf(os.Stdout, "Created %s\n", formatRule(rule))
	return nil
}

func rulesEnableCmd(enabled bool) *cobra.Command {
	use, short := "enable <id>", "Enable a rule"
	if !enabled {
		use, short = "disable <id>", "Disable a rule"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			db, err := openConfiguredDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			return db.SetRuleEnabled(ctx, id, enabled)
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule; the next reap removes the roles it granted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			db, err := openConfiguredDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			return db.DeleteRule(ctx, id)
		},
	}
}

func parseRuleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid rule id %q", arg)
	}
	return id, nil
}

func rulesImportCmd() *cobra.Command {
	var opts rulefile.Options
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import rules from a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesImport(args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.Guild, "guild", "", "Override the file's guild")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and report without writing")
	return cmd
}

func runRulesImport(path string, opts rulefile.Options) error {
	ctx := context.Background()

	db, err := openConfiguredDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := rulefile.Import(ctx, path, db, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Import complete.")
	fmt.Fprintf(os.Stdout, "  Rules created: %d\n", result.Created)
	fmt.Fprintf(os.Stdout, "  Rules skipped: %d\n", result.Skipped)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("import completed with errors")
	}
	return nil
}
