package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Store != "sqlite" {
		t.Fatalf("store = %q, want sqlite", cfg.Store)
	}
	if cfg.SQLitePath != "data/turnkeeper.db" {
		t.Fatalf("sqlite path = %q, want data/turnkeeper.db", cfg.SQLitePath)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("TURNKEEPER_SQLITE_PATH", "env.db")
	t.Setenv("TURNKEEPER_ROSTER_PATH", "env.yaml")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-store", "memory", "-sqlite-path", "flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	got := cfg.backendConfig()
	if got.Store != "memory" || got.SQLitePath != "flag.db" || got.RosterPath != "env.yaml" {
		t.Fatalf("backend config = %+v", got)
	}
}
