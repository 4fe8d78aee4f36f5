package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
	"medclaim.org/internal/obs"
	"medclaim.org/internal/stream"
)

const serviceName = "medclaim-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the claims engine.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string

	engine    *claims.Engine
	directory *auth.Directory
	stream    *stream.Stream

	tokenTTL   time.Duration
	rateBurst  int
	ratePerSec int
}

// Option configures API.
type Option func(*API)

// WithTokenTTL sets the lifetime of issued session tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) {
		if ttl > 0 {
			a.tokenTTL = ttl
		}
	}
}

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

func New(rp readinessChecker, version string, engine *claims.Engine, dir *auth.Directory, st *stream.Stream, opts ...Option) *API {
	if rp == nil {
		rp = ReadyProbe{}
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		engine:     engine,
		directory:  dir,
		stream:     st,
		tokenTTL:   8 * time.Hour,
		rateBurst:  50,
		ratePerSec: 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// session
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/me", a.handleMe)

	// claims
	a.mux.HandleFunc("/v1/claims", a.handleClaimsCollection)
	a.mux.HandleFunc("/v1/claims/stream", a.Stream)
	a.mux.HandleFunc("/v1/claims/", a.handleClaimResource)
	a.mux.HandleFunc("/v1/analytics", a.handleAnalytics)
	a.mux.HandleFunc("/v1/dashboard", a.handleDashboard)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = obs.Instrument(h)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     serviceName,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"version":  a.version,
		"statuses": claims.Statuses,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorKind(w, r, code, "", msg)
}

func writeErrorKind(w http.ResponseWriter, r *http.Request, code int, kind, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if kind != "" {
		payload["kind"] = kind
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// handleClaimError maps engine sentinels to status codes.
func handleClaimError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := claims.Kind(err)
	obs.ClaimError(op, kind)
	switch kind {
	case "validation":
		writeErrorKind(w, r, http.StatusBadRequest, kind, err.Error())
	case "authorization":
		writeErrorKind(w, r, http.StatusForbidden, kind, err.Error())
	case "not_found":
		writeErrorKind(w, r, http.StatusNotFound, kind, err.Error())
	case "invalid_transition":
		writeErrorKind(w, r, http.StatusConflict, kind, err.Error())
	default:
		obs.Error("claim operation failed", err, map[string]any{"op": op, "request_id": RequestIDFromContext(r.Context())})
		writeErrorKind(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
