package bot

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
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
	if cfg.HealthAddr != "localhost:8090" {
		t.Fatalf("health addr = %q, want localhost:8090", cfg.HealthAddr)
	}
	if cfg.GatewayAddr != "" {
		t.Fatalf("gateway addr = %q, want disabled", cfg.GatewayAddr)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("TURNKEEPER_DISCORD_TOKEN", "secret")
	t.Setenv("TURNKEEPER_STORE", "bbolt")
	t.Setenv("TURNKEEPER_HEALTH_ADDR", "env-health")
	t.Setenv("TURNKEEPER_DICE_SEED", "42")

	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	args := []string{"-health-addr", "flag-health", "-roster", "party.yaml", "-gateway-addr", "localhost:9000"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DiscordToken != "secret" {
		t.Fatalf("token = %q, want env value", cfg.DiscordToken)
	}
	if cfg.Store != "bbolt" {
		t.Fatalf("store = %q, want bbolt", cfg.Store)
	}
	if cfg.HealthAddr != "flag-health" {
		t.Fatalf("health addr = %q, want flag value", cfg.HealthAddr)
	}
	if cfg.DiceSeed != 42 {
		t.Fatalf("dice seed = %d, want 42", cfg.DiceSeed)
	}

	bot := cfg.botConfig()
	if bot.Backend.RosterPath != "party.yaml" || bot.Backend.Store != "bbolt" || bot.GatewayAddr != "localhost:9000" {
		t.Fatalf("bot config = %+v", bot)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("TURNKEEPER_DICE_SEED", "many")
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected env parse error")
	}
}
