// Package api parses API server flags and starts the marketplace service.
package api

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sokonihq/sokoni/internal/app"
	entrypoint "github.com/sokonihq/sokoni/internal/platform/cmd"
	"github.com/sokonihq/sokoni/internal/token"
)

// Config holds API command configuration.
type Config struct {
	HTTPAddr               string        `env:"SOKONI_HTTP_ADDR" envDefault:":8080"`
	DBPath                 string        `env:"SOKONI_DB_PATH" envDefault:"data/sokoni.db"`
	CookieSecure           bool          `env:"SOKONI_COOKIE_SECURE" envDefault:"false"`
	RateLimitEnabled       bool          `env:"SOKONI_RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS           float64       `env:"SOKONI_RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst         int           `env:"SOKONI_RATE_LIMIT_BURST" envDefault:"10"`
	SessionCleanupInterval time.Duration `env:"SOKONI_SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the marketplace API service. Token signing material comes from
// the SOKONI_TOKEN_* environment, so misconfiguration fails before serving.
func Run(ctx context.Context, cfg Config) error {
	tokens, err := token.LoadConfigFromEnv(nil)
	if err != nil {
		return fmt.Errorf("load token config: %w", err)
	}
	return entrypoint.Run(ctx, entrypoint.ServiceAPI, func(ctx context.Context) error {
		server, err := app.New(app.Config{
			HTTPAddr:               cfg.HTTPAddr,
			DBPath:                 cfg.DBPath,
			Tokens:                 tokens,
			CookieSecure:           cfg.CookieSecure,
			RateLimitDisabled:      !cfg.RateLimitEnabled,
			RateLimitRPS:           cfg.RateLimitRPS,
			RateLimitBurst:         cfg.RateLimitBurst,
			SessionCleanupInterval: cfg.SessionCleanupInterval,
		})
		if err != nil {
			return fmt.Errorf("init api server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve api: %w", err)
		}
		return nil
	})
}
