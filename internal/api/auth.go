package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/requestctx"
	"github.com/sokonihq/sokoni/internal/storage"
	"github.com/sokonihq/sokoni/internal/token"
	"github.com/sokonihq/sokoni/internal/user"
)

// errInvalidCredentials deliberately carries no hint about whether the
// email exists.
var errInvalidCredentials = apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Bio             string `json:"bio"`
	Location        string `json:"location"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	created, err := user.CreateUser(user.CreateUserInput{
		Email:           body.Email,
		Username:        body.Username,
		Password:        body.Password,
		PasswordConfirm: body.PasswordConfirm,
		Bio:             body.Bio,
		Location:        body.Location,
	}, a.now, a.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.CreateUser(r.Context(), created); err != nil {
		writeError(w, err)
		return
	}

	access, refresh, err := a.issueSession(r.Context(), created.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	a.setTokenCookies(w, access, refresh)
	writeMessage(w, http.StatusCreated, "account created", authView{
		User:   newUserView(created),
		Tokens: newTokenPairView(access, refresh),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	account, err := a.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, errInvalidCredentials)
			return
		}
		writeError(w, err)
		return
	}
	if !user.CheckPassword(account.PasswordHash, body.Password) {
		writeError(w, errInvalidCredentials)
		return
	}

	access, refresh, err := a.issueSession(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	a.setTokenCookies(w, access, refresh)
	writeData(w, http.StatusOK, authView{
		User:   newUserView(account),
		Tokens: newTokenPairView(access, refresh),
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, err := a.refreshTokenFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if raw == "" {
		writeError(w, apperrors.New(apperrors.CodeAuthRequired, "refresh token is required"))
		return
	}

	claims, err := token.Verify(raw, token.KindRefresh, a.tokens)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := a.store.GetSession(r.Context(), claims.JWTID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeAuthSessionRevoked, "session is no longer valid"))
			return
		}
		writeError(w, err)
		return
	}
	if !session.Live(a.now()) {
		writeError(w, apperrors.New(apperrors.CodeAuthSessionRevoked, "session is no longer valid"))
		return
	}

	// Rotation: the presented refresh token is spent either way.
	if err := a.store.RevokeSession(r.Context(), session.ID, a.now()); err != nil {
		writeError(w, err)
		return
	}
	access, refresh, err := a.issueSession(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	a.setTokenCookies(w, access, refresh)
	writeData(w, http.StatusOK, tokenRefreshView{Tokens: newTokenPairView(access, refresh)})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, err := a.refreshTokenFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if raw != "" {
		if claims, err := token.Verify(raw, token.KindRefresh, a.tokens); err == nil {
			if err := a.store.RevokeSession(r.Context(), claims.JWTID, a.now()); err != nil && !errors.Is(err, storage.ErrNotFound) {
				writeError(w, err)
				return
			}
		}
	}
	a.clearTokenCookies(w)
	writeMessage(w, http.StatusOK, "logged out", nil)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	account, err := a.store.GetUser(r.Context(), requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, profileView{User: newUserView(account)})
}

type profileUpdateRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}

func (a *API) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var body profileUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	current, err := a.store.GetUser(r.Context(), requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	// Omitted fields keep their stored values.
	input := user.UpdateProfileInput{Bio: current.Bio, Location: current.Location}
	if body.Username != nil {
		input.Username = *body.Username
	}
	if body.Bio != nil {
		input.Bio = *body.Bio
	}
	if body.Location != nil {
		input.Location = *body.Location
	}

	updated, err := user.ApplyProfileUpdate(current, input, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateUser(r.Context(), updated); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, profileView{User: newUserView(updated)})
}

// refreshTokenFrom pulls the refresh token from the request body when one
// was sent, else from the refresh cookie.
func (a *API) refreshTokenFrom(r *http.Request) (string, error) {
	var body refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			return "", err
		}
	}
	raw := strings.TrimSpace(body.Refresh)
	if raw == "" {
		if value, ok := readCookie(r, RefreshCookieName); ok {
			raw = value
		}
	}
	return raw, nil
}

// issueSession mints an access/refresh pair and persists the session row
// backing the refresh token.
func (a *API) issueSession(ctx context.Context, userID string) (token.Issued, token.Issued, error) {
	access, err := token.IssueAccess(userID, a.tokens, a.newID)
	if err != nil {
		return token.Issued{}, token.Issued{}, err
	}
	sessionID, err := a.newID()
	if err != nil {
		return token.Issued{}, token.Issued{}, fmt.Errorf("generate session id: %w", err)
	}
	refresh, err := token.IssueRefresh(userID, sessionID, a.tokens)
	if err != nil {
		return token.Issued{}, token.Issued{}, err
	}
	session := storage.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: refresh.IssuedAt,
		ExpiresAt: refresh.ExpiresAt,
	}
	if err := a.store.CreateSession(ctx, session); err != nil {
		return token.Issued{}, token.Issued{}, err
	}
	return access, refresh, nil
}
