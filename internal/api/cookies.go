package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/token"
)

// Cookie names for browser clients. API clients may ignore cookies and
// send the bearer header instead; both carry the same tokens.
const (
	AccessCookieName  = "sokoni_access"
	RefreshCookieName = "sokoni_refresh"
)

// readCookie returns the trimmed cookie value when present.
func readCookie(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// writeTokenCookie sets one token cookie, expiring alongside the token.
func (a *API) writeTokenCookie(w http.ResponseWriter, name, value string, expiresAt time.Time) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    strings.TrimSpace(value),
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearTokenCookie expires one token cookie.
func (a *API) clearTokenCookie(w http.ResponseWriter, name string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// setTokenCookies writes both token cookies after issuing a pair.
func (a *API) setTokenCookies(w http.ResponseWriter, access, refresh token.Issued) {
	a.writeTokenCookie(w, AccessCookieName, access.Token, access.ExpiresAt)
	a.writeTokenCookie(w, RefreshCookieName, refresh.Token, refresh.ExpiresAt)
}

// clearTokenCookies expires both token cookies on logout.
func (a *API) clearTokenCookies(w http.ResponseWriter) {
	a.clearTokenCookie(w, AccessCookieName)
	a.clearTokenCookie(w, RefreshCookieName)
}
