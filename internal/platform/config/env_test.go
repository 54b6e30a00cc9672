package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int    `env:"TEST_PORT" envDefault:"123"`
	Path string `env:"TEST_PATH"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvUsesPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TURNKEEPER_TEST_PATH", "data/test.db")
	t.Setenv("TEST_PATH", "ignored")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Path != "data/test.db" {
		t.Fatalf("path = %q, want %q", cfg.Path, "data/test.db")
	}
}

func TestParseEnvWithEmptyPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TEST_PATH", "plain")

	if err := ParseEnvWithPrefix(&cfg, ""); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Path != "plain" {
		t.Fatalf("path = %q, want %q", cfg.Path, "plain")
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TURNKEEPER_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
