// Package app assembles the marketplace API server: it opens the SQLite
// store, wires the HTTP surface, and owns the serve/shutdown lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sokonihq/sokoni/internal/api"
	"github.com/sokonihq/sokoni/internal/platform/metrics"
	"github.com/sokonihq/sokoni/internal/platform/ratelimit"
	"github.com/sokonihq/sokoni/internal/platform/timeouts"
	"github.com/sokonihq/sokoni/internal/storage/sqlite"
	"github.com/sokonihq/sokoni/internal/token"
)

// DefaultSessionCleanupInterval is how often expired refresh sessions are
// purged when the config does not say otherwise.
const DefaultSessionCleanupInterval = time.Hour

// Config defines the inputs for the API server.
type Config struct {
	HTTPAddr     string
	DBPath       string
	Tokens       token.Config
	CookieSecure bool

	// RateLimitDisabled turns off credential-endpoint throttling.
	RateLimitDisabled bool
	RateLimitRPS      float64
	RateLimitBurst    int

	// SessionCleanupInterval is the period between purges of expired
	// refresh sessions. Zero uses the default; negative disables.
	SessionCleanupInterval time.Duration
}

// Server hosts the marketplace HTTP API.
type Server struct {
	httpAddr        string
	httpServer      *http.Server
	store           *sqlite.Store
	cleanupInterval time.Duration
	clock           func() time.Time
}

// New creates a configured API server. The store is opened (and migrated)
// here so configuration errors surface before serving starts.
func New(cfg Config) (*Server, error) {
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if !cfg.RateLimitDisabled {
		limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	marketAPI, err := api.New(api.Config{
		Store:        store,
		Tokens:       cfg.Tokens,
		Metrics:      metrics.New(),
		AuthLimiter:  limiter,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build api: %w", err)
	}

	cleanupInterval := cfg.SessionCleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = DefaultSessionCleanupInterval
	}

	return &Server{
		httpAddr: cfg.HTTPAddr,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           otelhttp.NewHandler(marketAPI.Routes(), "sokoni-api"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:           store,
		cleanupInterval: cleanupInterval,
		clock:           time.Now,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.startSessionCleanup(serverCtx)

	serveErr := make(chan error, 1)
	log.Printf("api listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the storage handle.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}

// startSessionCleanup purges expired refresh sessions on a ticker until
// the context ends.
func (s *Server) startSessionCleanup(ctx context.Context) {
	if s == nil || s.store == nil || s.cleanupInterval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.store.DeleteExpiredSessions(ctx, s.clock().UTC())
				if err != nil {
					log.Printf("purge expired sessions: %v", err)
					continue
				}
				if purged > 0 {
					log.Printf("purged %d expired sessions", purged)
				}
			}
		}
	}()
}

func openStore(path string) (*sqlite.Store, error) {
	if path == "" {
		path = filepath.Join("data", "sokoni.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
