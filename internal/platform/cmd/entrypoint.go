// Package cmd carries the startup plumbing shared by Sokoni entry points:
// environment-first config parsing, flag handling over those defaults, and
// the telemetry lifecycle wrapped around a service run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/platform/config"
	"github.com/sokonihq/sokoni/internal/platform/otel"
)

// ServiceAPI names the marketplace API server for telemetry.
const ServiceAPI = "api"

const telemetryShutdownTimeout = 5 * time.Second

// ParseConfig loads environment defaults into cfg. Callers register flags
// against the filled struct afterwards so flags override the environment.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("nil config target")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags over the env-derived defaults.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("nil flag set")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// Run sets up tracing for the named service, executes the run loop, and
// flushes telemetry on the way out regardless of how the loop ended.
func Run(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()

	return run(ctx)
}
