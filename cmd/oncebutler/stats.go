package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"oncebutler/internal/store"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Seed or inspect stored member stats",
	}
	cmd.AddCommand(statsSetCmd())
	cmd.AddCommand(statsShowCmd())
	return cmd
}

type statsFlags struct {
	Mood          float64
	Energy        float64
	Activity      float64
	Chaos         string
	ChaosMinutes  int
	VoiceMinutes  float64
	OnlineMinutes float64
}

func statsSetCmd() *cobra.Command {
	var flags statsFlags
	cmd := &cobra.Command{
		Use:   "set <guild> <user>",
		Short: "Create or update a member's stats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openConfiguredDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			current, err := db.GetMemberStats(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			updated := applyStatsFlags(cmd, current, args[0], args[1], flags, time.Now())
			if err := db.UpsertMemberStats(ctx, updated); err != nil {
				return err
			}
			printStats(updated)
			return nil
		},
	}
	cmd.Flags().Float64Var(&flags.Mood, "mood", 50, "Mood (0-100)")
	cmd.Flags().Float64Var(&flags.Energy, "energy", 50, "Energy (0-100)")
	cmd.Flags().Float64Var(&flags.Activity, "activity", 0, "Activity (0-100)")
	cmd.Flags().StringVar(&flags.Chaos, "chaos", "", "Chaos role; empty clears it")
	cmd.Flags().IntVar(&flags.ChaosMinutes, "chaos-minutes", 60, "Minutes until the chaos role expires")
	cmd.Flags().Float64Var(&flags.VoiceMinutes, "voice-minutes", 0, "Accumulated voice minutes")
	cmd.Flags().Float64Var(&flags.OnlineMinutes, "online-minutes", 0, "Accumulated online minutes")
	return cmd
}

// applyStatsFlags overlays the flags the user actually passed on the stored
// stats, or on the flag defaults for a new member.
func applyStatsFlags(cmd *cobra.Command, current *store.MemberStats, guildID, userID string, flags statsFlags, now time.Time) store.MemberStats {
	changed := cmd.Flags().Changed
	if current == nil {
		current = &store.MemberStats{GuildID: guildID, UserID: userID}
		changed = func(string) bool { return true }
	}
	s := *current

	if changed("mood") {
		s.Mood = flags.Mood
	}
	if changed("energy") {
		s.Energy = flags.Energy
	}
	if changed("activity") {
		s.Activity = flags.Activity
	}
	if changed("voice-minutes") {
		s.VoiceMinutes = flags.VoiceMinutes
	}
	if changed("online-minutes") {
		s.OnlineMinutes = flags.OnlineMinutes
	}
	if cmd.Flags().Changed("chaos") {
		s.ChaosRole = flags.Chaos
		s.ChaosExpiresAt = nil
		if flags.Chaos != "" {
			until := now.Add(time.Duration(flags.ChaosMinutes) * time.Minute)
			s.ChaosExpiresAt = &until
		}
	}
	s.UpdatedAt = now
	return s
}

func statsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild> <user>",
		Short: "Show a member's stored stats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			db, err := openConfiguredDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			s, err := db.GetMemberStats(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no stats for member %s in guild %s", args[1], args[0])
			}
			printStats(*s)
			return nil
		},
	}
}

func printStats(s store.MemberStats) {
	fmt.Fprintf(os.Stdout, "Member %s in guild %s\n", s.UserID, s.GuildID)
	fmt.Fprintf(os.Stdout, "  Mood:           %g\n", s.Mood)
	fmt.Fprintf(os.Stdout, "  Energy:         %g\n", s.Energy)
	fmt.Fprintf(os.Stdout, "  Activity:       %g\n", s.Activity)
	fmt.Fprintf(os.Stdout, "  Voice minutes:  %g\n", s.VoiceMinutes)
	fmt.Fprintf(os.Stdout, "  Online minutes: %g\n", s.OnlineMinutes)
	if s.ChaosRole != "" && s.ChaosExpiresAt != nil {
		fmt.Fprintf(os.Stdout, "  Chaos:          %s until %s\n", s.ChaosRole, s.ChaosExpiresAt.Local().Format(time.DateTime))
	}
	if s.LastRoleUpdate != nil {
		fmt.Fprintf(os.Stdout, "  Last sync:      %s\n", s.LastRoleUpdate.Local().Format(time.DateTime))
	}
}
