// Package mcp parses MCP command flags and serves the combat tools on stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/louisbranch/turnkeeper/internal/platform/cmd"
	"github.com/louisbranch/turnkeeper/internal/services/combat/backend"
	"github.com/louisbranch/turnkeeper/internal/services/combat/mcptools"
)

// Config holds MCP command configuration. It reads the same store settings
// as the bot so both can share one database.
type Config struct {
	Store         string `env:"STORE"          envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"data/turnkeeper.db"`
	BoltPath      string `env:"BOLT_PATH"      envDefault:"data/turnkeeper.bolt"`
	DirectoryPath string `env:"DIRECTORY_PATH"`
	RosterPath    string `env:"ROSTER_PATH"`
	DiceSeed      int64  `env:"DICE_SEED"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Store, "store", cfg.Store, "session store: sqlite, bbolt or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "sqlite database path")
	fs.StringVar(&cfg.BoltPath, "bolt-path", cfg.BoltPath, "bbolt database path")
	fs.StringVar(&cfg.DirectoryPath, "directory-path", cfg.DirectoryPath, "sqlite character directory path (defaults to -sqlite-path)")
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "serve characters from this YAML roster instead of sqlite")
	fs.Int64Var(&cfg.DiceSeed, "dice-seed", cfg.DiceSeed, "initiative dice seed (0 = random)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the stores and serves MCP on stdio until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		b, err := backend.Open(cfg.backendConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				log.Printf("close stores: %v", err)
			}
		}()
		if err := mcptools.NewServer(b.Service).Serve(ctx); err != nil {
			return fmt.Errorf("serve combat tools: %w", err)
		}
		return nil
	})
}

func (c Config) backendConfig() backend.Config {
	return backend.Config{
		Store:         c.Store,
		SQLitePath:    c.SQLitePath,
		BoltPath:      c.BoltPath,
		DirectoryPath: c.DirectoryPath,
		RosterPath:    c.RosterPath,
		DiceSeed:      c.DiceSeed,
	}
}
