package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

func testConfig(t *testing.T, now time.Time) Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return Config{
		Issuer:     "sokoni",
		Audience:   "sokoni-api",
		PrivateKey: priv,
		PublicKey:  pub,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        func() time.Time { return now },
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvIssuer, "")
	t.Setenv(EnvAudience, "")
	t.Setenv(EnvPrivateKey, "")
	t.Setenv(EnvPublicKey, "")

	if _, err := LoadConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when env vars are missing")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	t.Setenv(EnvIssuer, "sokoni")
	t.Setenv(EnvAudience, "sokoni-api")
	t.Setenv(EnvPrivateKey, base64.RawStdEncoding.EncodeToString(priv))
	t.Setenv(EnvPublicKey, base64.RawStdEncoding.EncodeToString(pub))

	cfg, err := LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load token config: %v", err)
	}
	if cfg.Issuer != "sokoni" || cfg.Audience != "sokoni-api" {
		t.Fatal("expected issuer and audience to be loaded")
	}
	if cfg.AccessTTL != DefaultAccessTTL || cfg.RefreshTTL != DefaultRefreshTTL {
		t.Fatalf("expected default TTLs, got %v %v", cfg.AccessTTL, cfg.RefreshTTL)
	}

	t.Setenv(EnvAccessTTL, "15m")
	t.Setenv(EnvRefreshTTL, "48h")
	cfg, err = LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load token config with TTLs: %v", err)
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 48*time.Hour {
		t.Fatalf("expected overridden TTLs, got %v %v", cfg.AccessTTL, cfg.RefreshTTL)
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)

	issued, err := IssueAccess("user-1", cfg, func() (string, error) { return "jti-1", nil })
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	if issued.JWTID != "jti-1" {
		t.Fatalf("expected jti-1, got %q", issued.JWTID)
	}
	if !issued.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("expected expiry 30m out, got %v", issued.ExpiresAt)
	}

	claims, err := Verify(issued.Token, KindAccess, cfg)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if claims.UserID != "user-1" || claims.JWTID != "jti-1" || claims.Kind != KindAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestIssueAndVerifyRefresh(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)

	issued, err := IssueRefresh("user-1", "session-1", cfg)
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}
	if issued.JWTID != "session-1" {
		t.Fatalf("expected jti to equal session id, got %q", issued.JWTID)
	}

	claims, err := Verify(issued.Token, KindRefresh, cfg)
	if err != nil {
		t.Fatalf("verify refresh token: %v", err)
	}
	if claims.UserID != "user-1" || claims.JWTID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	_, err = IssueRefresh("user-1", "  ", cfg)
	if err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestVerifyRejectsKindMismatch(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)

	issued, err := IssueRefresh("user-1", "session-1", cfg)
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	_, err = Verify(issued.Token, KindAccess, cfg)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("expected token invalid error, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "kind mismatch") {
		t.Fatalf("expected kind mismatch error, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)

	issued, err := IssueAccess("user-1", cfg, nil)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	late := cfg
	late.Now = func() time.Time { return now.Add(31 * time.Minute) }
	_, err = Verify(issued.Token, KindAccess, late)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenExpired {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)
	other := testConfig(t, now)

	issued, err := IssueAccess("user-1", cfg, nil)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	_, err = Verify(issued.Token, KindAccess, other)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig(t, now)

	issued, err := IssueAccess("user-1", cfg, nil)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	cfg.Issuer = "someone-else"
	_, err = Verify(issued.Token, KindAccess, cfg)
	if err == nil || !strings.Contains(err.Error(), "issuer mismatch") {
		t.Fatalf("expected issuer mismatch error, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cfg := testConfig(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	_, err := Verify("invalid.token.parts", KindAccess, cfg)
	if err == nil {
		t.Fatal("expected error for invalid token")
	}
	_, err = Verify("   ", KindAccess, cfg)
	if apperrors.CodeOf(err) != apperrors.CodeAuthRequired {
		t.Fatalf("expected auth required error, got %v", err)
	}
}
