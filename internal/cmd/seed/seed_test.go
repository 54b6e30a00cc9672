package seed

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dirsqlite "github.com/louisbranch/turnkeeper/internal/services/combat/directory/sqlite"
)

const roster = `
characters:
  - id: ash
    name: Ash
    guild_id: g1
    player_id: "1"
    aspect_attribute: mobility
  - id: bram
    name: Bram
`

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(roster), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-roster", "party.yaml"}, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DirectoryPath != defaultDirectoryPath {
		t.Fatalf("directory path = %q, want %q", cfg.DirectoryPath, defaultDirectoryPath)
	}
	if cfg.List || cfg.Verbose {
		t.Fatalf("flags = %+v, want off", cfg)
	}
}

func TestParseConfigEnvFallbacks(t *testing.T) {
	lookup := func(key string) (string, bool) {
		switch key {
		case "TURNKEEPER_ROSTER_PATH":
			return "env.yaml", true
		case "TURNKEEPER_DIRECTORY_PATH":
			return "  ", true
		case "TURNKEEPER_SQLITE_PATH":
			return "shared.db", true
		default:
			return "", false
		}
	}
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RosterPath != "env.yaml" {
		t.Fatalf("roster = %q, want env.yaml", cfg.RosterPath)
	}
	if cfg.DirectoryPath != "shared.db" {
		t.Fatalf("directory path = %q, want shared.db", cfg.DirectoryPath)
	}
}

func TestParseConfigRequiresRoster(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil, nil); err == nil {
		t.Fatal("expected error without roster")
	}
}

func TestRunImports(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dir.db")
	var out bytes.Buffer
	if err := Run(context.Background(), Config{RosterPath: writeRoster(t), DirectoryPath: dbPath}, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "imported 2 characters") {
		t.Fatalf("output = %q", out.String())
	}

	store, err := dirsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open directory: %v", err)
	}
	defer store.Close()
	ash, err := store.Lookup(context.Background(), "ash")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if die, ok := ash.AttributeDie("mobility"); !ok || die != 8 {
		t.Fatalf("mobility die = %d, %v, want d8", die, ok)
	}
}

func TestRunList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dir.db")
	var out bytes.Buffer
	if err := Run(context.Background(), Config{RosterPath: writeRoster(t), DirectoryPath: dbPath, List: true}, &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "Ash") || !strings.Contains(lines[1], "guild=*") {
		t.Fatalf("output = %q", out.String())
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("list must not create the database, stat err = %v", err)
	}
}
