package main

import (
	"testing"
	"time"

	"oncebutler/internal/store"
)

func parsedStatsSetCmd(t *testing.T, args ...string) (*statsFlags, func(*store.MemberStats) store.MemberStats) {
	t.Helper()
	cmd := statsSetCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := statsFlags{}
	flags.Mood, _ = cmd.Flags().GetFloat64("mood")
	flags.Energy, _ = cmd.Flags().GetFloat64("energy")
	flags.Activity, _ = cmd.Flags().GetFloat64("activity")
	flags.Chaos, _ = cmd.Flags().GetString("chaos")
	flags.ChaosMinutes, _ = cmd.Flags().GetInt("chaos-minutes")
	flags.VoiceMinutes, _ = cmd.Flags().GetFloat64("voice-minutes")
	flags.OnlineMinutes, _ = cmd.Flags().GetFloat64("online-minutes")
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return &flags, func(current *store.MemberStats) store.MemberStats {
		return applyStatsFlags(cmd, current, "g1", "u1", flags, now)
	}
}

func TestApplyStatsFlags_NewMemberUsesDefaults(t *testing.T) {
	_, apply := parsedStatsSetCmd(t, "--mood", "90")
	s := apply(nil)
	if s.GuildID != "g1" || s.UserID != "u1" {
		t.Fatalf("unexpected key: %s/%s", s.GuildID, s.UserID)
	}
	if s.Mood != 90 || s.Energy != 50 || s.Activity != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.ChaosRole != "" || s.ChaosExpiresAt != nil {
		t.Fatalf("expected no chaos role, got %+v", s)
	}
}

func TestApplyStatsFlags_KeepsUnchangedFields(t *testing.T) {
	_, apply := parsedStatsSetCmd(t, "--energy", "15", "--chaos", "Chaos: Gremlin", "--chaos-minutes", "30")
	stamp := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	current := &store.MemberStats{GuildID: "g1", UserID: "u1", Mood: 70, Energy: 60, VoiceMinutes: 12, LastRoleUpdate: &stamp}

	s := apply(current)
	if s.Mood != 70 || s.Energy != 15 || s.VoiceMinutes != 12 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.LastRoleUpdate == nil || !s.LastRoleUpdate.Equal(stamp) {
		t.Fatalf("expected stamp to survive, got %v", s.LastRoleUpdate)
	}
	want := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
	if s.ChaosRole != "Chaos: Gremlin" || s.ChaosExpiresAt == nil || !s.ChaosExpiresAt.Equal(want) {
		t.Fatalf("unexpected chaos: %q %v", s.ChaosRole, s.ChaosExpiresAt)
	}
	if current.Energy != 60 {
		t.Fatalf("current stats were mutated")
	}
}
