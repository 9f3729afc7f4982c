package main

import (
	"path/filepath"
	"testing"

	"oncebutler/internal/config"
	"oncebutler/internal/roles"
)

func TestRunInit_WritesLoadableProject(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(dir, "demo", "sqlite://./demo.db", []string{"123", "456"}); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.LoadProjectConfig(filepath.Join(dir, "oncebutler.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Project != "demo" || cfg.Database.DSN != "sqlite://./demo.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Guilds) != 2 || cfg.Guilds[1].ID != "456" {
		t.Fatalf("unexpected guilds: %+v", cfg.Guilds)
	}
	if cfg.Engine.Cooldown != roles.DefaultCooldown || cfg.Engine.Interval != config.DefaultInterval {
		t.Fatalf("unexpected engine config: %+v", cfg.Engine)
	}

	catalogs, err := config.BuildCatalogs(cfg, dir)
	if err != nil {
		t.Fatalf("build catalogs: %v", err)
	}
	if got := len(catalogs.CatalogFor("123").Labels()); got != len(roles.DefaultCatalog().Labels()) {
		t.Fatalf("expected default label set, got %d labels", got)
	}
}

func TestRunInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(dir, "demo", "sqlite://./demo.db", nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := runInit(dir, "demo", "sqlite://./demo.db", nil); err == nil {
		t.Fatalf("expected error on second init")
	}
}

func TestRunInit_QuotesScalars(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(dir, "butler: night #2", "sqlite://:memory:", nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.LoadProjectConfig(filepath.Join(dir, "oncebutler.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.DSN != "sqlite://:memory:" {
		t.Fatalf("expected in-memory dsn, got %q", cfg.Database.DSN)
	}
	if cfg.Project != "butler: night #2" {
		t.Fatalf("unexpected project name: %q", cfg.Project)
	}
}
