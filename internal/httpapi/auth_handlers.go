package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"medclaim.org/internal/audit"
	"medclaim.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      auth.Identity `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.directory == nil {
		writeError(w, r, http.StatusServiceUnavailable, "login disabled")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	id, err := a.directory.Authenticate(email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{"email": strings.ToLower(email)})
			unauthorized(w, r, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}

	token, expiresAt, err := auth.GenerateToken(id, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), id)
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"role":       string(id.Role),
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      id,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, id)
}
