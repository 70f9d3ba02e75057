package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sokonihq/sokoni/internal/api/routepath"
	"github.com/sokonihq/sokoni/internal/token"
)

func testTokenConfig(t *testing.T) token.Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return token.Config{
		Issuer:     "sokoni",
		Audience:   "sokoni-api",
		PrivateKey: priv,
		PublicKey:  pub,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Config{
		HTTPAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "sokoni.db"),
		Tokens:   testTokenConfig(t),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func TestNewServesHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, routepath.Health, nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "ok" {
		t.Fatalf("body = %q, want ok", got)
	}
}

func TestNewInvalidStorageDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("data"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := New(Config{
		HTTPAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(file, "sokoni.db"),
		Tokens:   testTokenConfig(t),
	})
	if err == nil {
		t.Fatal("expected error for invalid storage dir")
	}
}

func TestListenAndServeStopsOnContextCancel(t *testing.T) {
	srv := testServer(t)

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.ListenAndServe(runCtx)
	}()

	time.Sleep(50 * time.Millisecond)
	runCancel()

	select {
	case err := <-serveDone:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server shutdown")
	}
}

func TestListenAndServeRejectsMissingInputs(t *testing.T) {
	var nilServer *Server
	if err := nilServer.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}

	srv := testServer(t)
	if err := srv.ListenAndServe(nil); err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestStartSessionCleanup(t *testing.T) {
	t.Run("nil server is safe", func(t *testing.T) {
		var s *Server
		s.startSessionCleanup(context.Background())
	})

	t.Run("disabled interval is safe", func(t *testing.T) {
		srv := testServer(t)
		srv.cleanupInterval = -1
		srv.startSessionCleanup(context.Background())
	})

	t.Run("starts and stops", func(t *testing.T) {
		srv := testServer(t)
		srv.cleanupInterval = 10 * time.Millisecond
		ctx, cancel := context.WithCancel(context.Background())
		srv.startSessionCleanup(ctx)
		time.Sleep(50 * time.Millisecond)
		cancel()
	})
}

func TestCloseIsSafeOnNil(t *testing.T) {
	var s *Server
	s.Close()
}
