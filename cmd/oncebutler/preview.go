package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"oncebutler/internal/config"
	"oncebutler/internal/roles"
)

type previewInput struct {
	Mood         float64
	Energy       float64
	Activity     float64
	Period       string
	Chaos        string
	ChaosMinutes int
	MaxRoles     int
	Preset       string
}

func previewCmd() *cobra.Command {
	var in previewInput
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the roles a member with the given stats would receive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(os.Stdout, in, time.Now())
		},
	}
	cmd.Flags().Float64Var(&in.Mood, "mood", 50, "Mood (0-100)")
	cmd.Flags().Float64Var(&in.Energy, "energy", 50, "Energy (0-100)")
	cmd.Flags().Float64Var(&in.Activity, "activity", 0, "Activity (0-100)")
	cmd.Flags().StringVar(&in.Period, "period", "", "night, day or evening (default: current UTC period)")
	cmd.Flags().StringVar(&in.Chaos, "chaos", "", "Active chaos role")
	cmd.Flags().IntVar(&in.ChaosMinutes, "chaos-minutes", 60, "Minutes until the chaos role expires")
	cmd.Flags().IntVar(&in.MaxRoles, "max-roles", roles.DefaultMaxRoles, "Maximum roles to select")
	cmd.Flags().StringVar(&in.Preset, "preset", "", "Catalog preset file (default: built-in English)")
	return cmd
}

func runPreview(out io.Writer, in previewInput, now time.Time) error {
	catalog := config.DefaultPreset()
	if in.Preset != "" {
		loaded, err := config.LoadPreset(in.Preset)
		if err != nil {
			return err
		}
		catalog = loaded
	}

	period := roles.Period(in.Period)
	if period == "" {
		period = roles.PeriodAt(now.UTC(), roles.DefaultPeriodHours())
	}
	if !period.Valid() {
		return fmt.Errorf("unknown period: %s", in.Period)
	}

	snap := roles.Snapshot{Mood: in.Mood, Energy: in.Energy, Activity: in.Activity}
	if in.Chaos != "" && in.ChaosMinutes > 0 {
		until := now.Add(time.Duration(in.ChaosMinutes) * time.Minute)
		snap.ChaosLabel = in.Chaos
		snap.ChaosExpiresAt = &until
	}

	candidates := roles.Candidates(catalog.Assign(snap, period), catalog.ActiveChaos(snap, now))
	target := roles.SelectPriorityRoles(candidates, in.MaxRoles)

	fmt.Fprintf(out, "Period: %s\n", period)
	fmt.Fprintln(out, "Candidates:")
	for _, l := range candidates {
		fmt.Fprintf(out, "  - %s (%s, score %d)\n", l.Name, l.Category, roles.Score(l))
	}
	fmt.Fprintf(out, "Target: %s\n", joinOrNone(roles.Names(target)))
	return nil
}
