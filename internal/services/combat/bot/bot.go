// Package bot runs the combat tracker: the Discord connection, the optional
// websocket gateway and the health endpoint, until the context ends.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/louisbranch/turnkeeper/internal/platform/health"
	"github.com/louisbranch/turnkeeper/internal/platform/timeouts"
	"github.com/louisbranch/turnkeeper/internal/services/combat/backend"
	"github.com/louisbranch/turnkeeper/internal/services/combat/transport/discord"
	"github.com/louisbranch/turnkeeper/internal/services/combat/transport/websocket"
	"github.com/louisbranch/turnkeeper/internal/services/combat/ui"
	"golang.org/x/sync/errgroup"
)

// HealthService is the grpc.health.v1 service name the bot reports.
const HealthService = "turnkeeper.bot"

// GatewayPath is where the websocket gateway is mounted.
const GatewayPath = "/combat"

// Config configures a bot process.
type Config struct {
	Backend backend.Config
	// DiscordToken may be empty when only the gateway is served.
	DiscordToken  string
	ApplicationID string
	// CommandGuildID registers commands in one guild instead of globally.
	CommandGuildID string
	HealthAddr     string
	GatewayAddr    string
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DiscordToken) == "" && strings.TrimSpace(c.GatewayAddr) == "" {
		return errors.New("a discord token or a gateway address is required")
	}
	if strings.TrimSpace(c.HealthAddr) == "" {
		return errors.New("health address is required")
	}
	return nil
}

// Run serves until ctx ends or a component fails.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b, err := backend.Open(cfg.Backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("close stores: %v", err)
		}
	}()
	router := ui.NewRouter(b.Service, log.Printf)

	hs, err := health.NewWithAddr(cfg.HealthAddr, HealthService)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hs.Serve(gctx)
	})

	if addr := strings.TrimSpace(cfg.GatewayAddr); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			hs.Close()
			_ = g.Wait()
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		gateway := websocket.NewGateway(router, log.Printf)
		g.Go(func() error {
			return ServeGateway(gctx, ln, gateway)
		})
	}

	if strings.TrimSpace(cfg.DiscordToken) == "" {
		hs.SetServing(true)
	} else {
		g.Go(func() error {
			return runDiscord(gctx, cfg, router, hs)
		})
	}
	return g.Wait()
}

// ServeGateway serves gateway on ln at GatewayPath until ctx ends.
func ServeGateway(ctx context.Context, ln net.Listener, gateway http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle(GatewayPath, gateway)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: timeouts.ReadHeader}

	log.Printf("websocket gateway listening at %v", ln.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown gateway: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve gateway: %w", err)
	}
}

func runDiscord(ctx context.Context, cfg Config, router *ui.Router, hs *health.Server) error {
	s, err := discordgo.New("Bot " + strings.TrimSpace(cfg.DiscordToken))
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	handler := discord.NewHandler(router, log.Printf)
	s.AddHandler(handler.OnInteraction)
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		appID := strings.TrimSpace(cfg.ApplicationID)
		if appID == "" && r.User != nil {
			appID = r.User.ID
		}
		if err := discord.RegisterCommands(s, appID, cfg.CommandGuildID); err != nil {
			log.Printf("warn: %v", err)
		}
		hs.SetServing(true)
		log.Printf("discord session ready as %s", readyName(r))
	})

	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	<-ctx.Done()
	hs.SetServing(false)
	if err := s.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func readyName(r *discordgo.Ready) string {
	if r == nil || r.User == nil {
		return "unknown user"
	}
	return r.User.Username
}
