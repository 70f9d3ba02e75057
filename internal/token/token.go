// Package token issues and verifies the signed bearer tokens that
// authenticate marketplace API calls. Access tokens are short-lived and
// stateless; refresh tokens are tied to a stored session so they can be
// revoked.
package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

// Environment variable names for token configuration.
const (
	EnvIssuer     = "SOKONI_TOKEN_ISSUER"
	EnvAudience   = "SOKONI_TOKEN_AUDIENCE"
	EnvPrivateKey = "SOKONI_TOKEN_PRIVATE_KEY"
	EnvPublicKey  = "SOKONI_TOKEN_PUBLIC_KEY"
	EnvAccessTTL  = "SOKONI_TOKEN_ACCESS_TTL"
	EnvRefreshTTL = "SOKONI_TOKEN_REFRESH_TTL"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	// DefaultAccessTTL bounds how long a stateless access token stays valid.
	DefaultAccessTTL = 30 * time.Minute
	// DefaultRefreshTTL bounds how long a session can go unused before
	// the holder must log in again.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Issuer     string        `env:"SOKONI_TOKEN_ISSUER"`
	Audience   string        `env:"SOKONI_TOKEN_AUDIENCE"`
	PrivateKey string        `env:"SOKONI_TOKEN_PRIVATE_KEY"`
	PublicKey  string        `env:"SOKONI_TOKEN_PUBLIC_KEY"`
	AccessTTL  time.Duration `env:"SOKONI_TOKEN_ACCESS_TTL"`
	RefreshTTL time.Duration `env:"SOKONI_TOKEN_REFRESH_TTL"`
}

// Config defines how tokens are signed and verified.
type Config struct {
	Issuer     string
	Audience   string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Claims captures validated token claims.
type Claims struct {
	Kind      Kind
	UserID    string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
}

// Issued is a freshly signed token plus the claims that identify it.
type Issued struct {
	Token     string
	JWTID     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// LoadConfigFromEnv reads signing and verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	privateKey := strings.TrimSpace(raw.PrivateKey)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("%s is required", EnvIssuer)
	}
	if audience == "" {
		return Config{}, fmt.Errorf("%s is required", EnvAudience)
	}
	if privateKey == "" {
		return Config{}, fmt.Errorf("%s is required", EnvPrivateKey)
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("%s is required", EnvPublicKey)
	}
	privBytes, err := decodeBase64(privateKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode token private key: %w", err)
	}
	if len(privBytes) != ed25519.PrivateKeySize {
		return Config{}, fmt.Errorf("token private key must be %d bytes", ed25519.PrivateKeySize)
	}
	pubBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode token public key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("token public key must be %d bytes", ed25519.PublicKeySize)
	}
	accessTTL := raw.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := raw.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:     issuer,
		Audience:   audience,
		PrivateKey: ed25519.PrivateKey(privBytes),
		PublicKey:  ed25519.PublicKey(pubBytes),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        now,
	}, nil
}

// IssueAccess signs a short-lived access token for the given user.
func IssueAccess(userID string, cfg Config, idGenerator func() (string, error)) (Issued, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	jwtID, err := idGenerator()
	if err != nil {
		return Issued{}, fmt.Errorf("generate token id: %w", err)
	}
	return sign(KindAccess, userID, jwtID, cfg.AccessTTL, cfg)
}

// IssueRefresh signs a refresh token bound to a stored session. The
// session ID doubles as the token's jti so revocation checks can look
// the session up directly.
func IssueRefresh(userID, sessionID string, cfg Config) (Issued, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Issued{}, errors.New("session id is required")
	}
	return sign(KindRefresh, userID, sessionID, cfg.RefreshTTL, cfg)
}

func sign(kind Kind, userID, jwtID string, ttl time.Duration, cfg Config) (Issued, error) {
	if strings.TrimSpace(userID) == "" {
		return Issued{}, errors.New("user id is required")
	}
	if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return Issued{}, errors.New("token signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	issuedAt := cfg.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ID:        jwtID,
		},
		Kind: string(kind),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(cfg.PrivateKey)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, JWTID: jwtID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks a token's signature and claims and enforces the
// expected kind. Session revocation is the caller's concern; Verify
// only proves the token itself.
func Verify(raw string, kind Kind, cfg Config) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthRequired, "token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.PublicKey) != ed25519.PublicKeySize {
		return Claims{}, errors.New("token verifier is not configured")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeAuthTokenInvalid,
			"token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeAuthTokenInvalid,
			"token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.Kind != string(kind) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeAuthTokenInvalid,
			"token kind mismatch",
			map[string]string{"Field": "kind"},
		)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token subject is required")
	}
	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenExpired, "token is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token not active yet")
		}
	}

	claims := Claims{
		Kind:      kind,
		UserID:    parsed.Subject,
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors. The
// library error rides along as the cause for logs; clients only ever see
// the code and message.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.Wrap(apperrors.CodeAuthTokenInvalid, "token signature is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.WrapWithMetadata(
			apperrors.CodeAuthTokenInvalid,
			"token alg is invalid",
			map[string]string{"Field": "alg"},
			err,
		)
	}
	return apperrors.Wrap(apperrors.CodeAuthTokenInvalid, "token is invalid", err)
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
