// Package cmd holds the startup plumbing shared by every turnkeeper binary.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/turnkeeper/internal/platform/config"
	"github.com/louisbranch/turnkeeper/internal/platform/otel"
)

// telemetryFlushTimeout bounds how long spans may flush on exit.
const telemetryFlushTimeout = 5 * time.Second

// Binary names. They feed the telemetry service name and the log prefix.
const (
	ServiceBot  = "bot"
	ServiceMCP  = "mcp"
	ServiceSeed = "seed"
)

// ParseConfig fills cfg from TURNKEEPER_-prefixed environment variables.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses flags over values already loaded from the environment.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// LogPrefix returns the bracketed log prefix for a binary, e.g. "[BOT] ".
func LogPrefix(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return ""
	}
	return "[" + strings.ToUpper(service) + "] "
}

// RunWithTelemetry installs tracing as turnkeeper-<service>, runs fn, and
// flushes spans once fn returns.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case fn == nil:
		return errors.New("run function is required")
	}

	shutdown, err := otel.Setup(ctx, "turnkeeper-"+service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("flush %s telemetry: %v", service, err)
		}
	}()
	return fn(ctx)
}
