// Package seed imports a YAML character roster into the SQLite directory.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	dirsqlite "github.com/louisbranch/turnkeeper/internal/services/combat/directory/sqlite"
)

const defaultDirectoryPath = "data/turnkeeper.db"

// Config holds seed command configuration.
type Config struct {
	RosterPath    string
	DirectoryPath string
	// List prints the resolved characters without importing them.
	List    bool
	Verbose bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config. The directory path falls back to
// the bot's database settings.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		RosterPath:    envOrDefault(lookup, []string{"TURNKEEPER_ROSTER_PATH"}, ""),
		DirectoryPath: envOrDefault(lookup, []string{"TURNKEEPER_DIRECTORY_PATH", "TURNKEEPER_SQLITE_PATH"}, defaultDirectoryPath),
	}
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "YAML roster to import")
	fs.StringVar(&cfg.DirectoryPath, "directory-path", cfg.DirectoryPath, "sqlite character directory path")
	fs.BoolVar(&cfg.List, "list", false, "print the roster's characters without importing")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.RosterPath) == "" {
		return Config{}, errors.New("a roster is required (-roster or TURNKEEPER_ROSTER_PATH)")
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	roster, err := directory.LoadRosterFile(cfg.RosterPath)
	if err != nil {
		return err
	}
	characters := roster.Resolve()
	directory.SortByName(characters)

	if cfg.List {
		for _, c := range characters {
			printCharacter(out, c)
		}
		return nil
	}

	store, err := dirsqlite.Open(cfg.DirectoryPath)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer store.Close()

	if err := store.ImportRoster(ctx, roster); err != nil {
		return err
	}
	if cfg.Verbose {
		for _, c := range characters {
			printCharacter(out, c)
		}
	}
	fmt.Fprintf(out, "imported %d characters and %d attributes into %s\n", len(characters), len(roster.Attributes), cfg.DirectoryPath)
	return nil
}

func printCharacter(out io.Writer, c directory.Character) {
	player := c.PlayerID
	if player == "" {
		player = "-"
	}
	guild := c.GuildID
	if guild == "" {
		guild = "*"
	}
	fmt.Fprintf(out, "  %-20s %-24s guild=%s player=%s hp=%d/%d\n", c.ID, c.Name, guild, player, c.Health, c.MaxHealth)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
