package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"medclaim.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// streamTokenParam carries the token for EventSource clients, which cannot set headers.
	streamTokenParam = "access_token"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth resolves the bearer token into an auth.Identity on the context.
// Public paths and anything outside /v1/ pass through untouched so the mux
// can answer them (unknown paths get a 404, not a 401).
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(authHeader)
		if header == "" && r.URL.Path == "/v1/claims/stream" {
			if tok := r.URL.Query().Get(streamTokenParam); tok != "" {
				header = bearer + tok
			}
		}
		token, err := extractBearerToken(header)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		tokenClaims, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				unauthorized(w, r, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		id := tokenClaims.Identity()
		if err := id.Validate(); err != nil {
			unauthorized(w, r, "invalid token")
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), id)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity returns the caller or writes 401. Handlers call it first.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, auth.ErrUnauthenticated.Error())
		return auth.Identity{}, false
	}
	return id, true
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="medclaim"`)
	writeErrorKind(w, r, http.StatusUnauthorized, "authentication", msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	if !strings.HasPrefix(path, "/v1/") {
		return true
	}
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
