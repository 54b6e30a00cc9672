// Package bot parses bot command flags and runs the combat tracker.
package bot

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/turnkeeper/internal/platform/cmd"
	"github.com/louisbranch/turnkeeper/internal/services/combat/backend"
	combatbot "github.com/louisbranch/turnkeeper/internal/services/combat/bot"
)

// Config holds bot command configuration. The Discord token is only read
// from the environment.
type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	ApplicationID  string `env:"DISCORD_APPLICATION_ID"`
	CommandGuildID string `env:"DISCORD_COMMAND_GUILD_ID"`
	Store          string `env:"STORE"          envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH"    envDefault:"data/turnkeeper.db"`
	BoltPath       string `env:"BOLT_PATH"      envDefault:"data/turnkeeper.bolt"`
	DirectoryPath  string `env:"DIRECTORY_PATH"`
	RosterPath     string `env:"ROSTER_PATH"`
	DiceSeed       int64  `env:"DICE_SEED"`
	HealthAddr     string `env:"HEALTH_ADDR"    envDefault:"localhost:8090"`
	GatewayAddr    string `env:"GATEWAY_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.ApplicationID, "application-id", cfg.ApplicationID, "Discord application id (defaults to the bot user)")
	fs.StringVar(&cfg.CommandGuildID, "command-guild", cfg.CommandGuildID, "register commands in this guild only")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "session store: sqlite, bbolt or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "sqlite database path")
	fs.StringVar(&cfg.BoltPath, "bolt-path", cfg.BoltPath, "bbolt database path")
	fs.StringVar(&cfg.DirectoryPath, "directory-path", cfg.DirectoryPath, "sqlite character directory path (defaults to -sqlite-path)")
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "serve characters from this YAML roster instead of sqlite")
	fs.Int64Var(&cfg.DiceSeed, "dice-seed", cfg.DiceSeed, "initiative dice seed (0 = random)")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "gRPC health listen address")
	fs.StringVar(&cfg.GatewayAddr, "gateway-addr", cfg.GatewayAddr, "websocket gateway listen address (empty disables it)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the bot with telemetry.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBot, func(ctx context.Context) error {
		return combatbot.Run(ctx, cfg.botConfig())
	})
}

func (c Config) botConfig() combatbot.Config {
	return combatbot.Config{
		Backend: backend.Config{
			Store:         c.Store,
			SQLitePath:    c.SQLitePath,
			BoltPath:      c.BoltPath,
			DirectoryPath: c.DirectoryPath,
			RosterPath:    c.RosterPath,
			DiceSeed:      c.DiceSeed,
		},
		DiscordToken:   c.DiscordToken,
		ApplicationID:  c.ApplicationID,
		CommandGuildID: c.CommandGuildID,
		HealthAddr:     c.HealthAddr,
		GatewayAddr:    c.GatewayAddr,
	}
}
