package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/trailpack/internal/auth"
	"github.com/erazemk/trailpack/internal/store"
)

// AuthHandler handles the owner session endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
}

type loginRequest struct {
	Passcode string `json:"passcode"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Passcode == "" {
		jsonError(w, http.StatusBadRequest, "passcode required")
		return
	}

	hash, err := store.GetPasscodeHash(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to load passcode hash", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if hash == "" {
		jsonError(w, http.StatusServiceUnavailable, "no passcode configured, run init first")
		return
	}

	if err := auth.CheckPasscode(hash, req.Passcode); err != nil {
		if !errors.Is(err, auth.ErrWrongPasscode) {
			slog.Error("failed to check passcode", "error", err)
		}
		slog.Warn("login failed", "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid passcode")
		return
	}

	token, claims, err := auth.IssueToken(h.JWTSecret, time.Now())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	setAuthCookie(w, token, claims.ExpiresAt.Time)
	slog.Info("owner logged in", "remote", r.RemoteAddr)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		slog.Error("failed to revoke token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to logout")
		return
	}
	if n, err := store.PruneRevokedTokens(r.Context(), h.DB, time.Now()); err != nil {
		slog.Warn("failed to prune revoked tokens", "error", err)
	} else if n > 0 {
		slog.Info("pruned revoked tokens", "count", n)
	}

	clearAuthCookie(w)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
