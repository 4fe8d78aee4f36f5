package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Claim lifecycle metrics
var (
	claimsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medclaim_claims_created_total",
		Help: "Claims submitted.",
	})

	claimTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medclaim_claim_transitions_total",
			Help: "Claim status transitions applied.",
		},
		[]string{"from", "to"},
	)

	claimErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medclaim_claim_errors_total",
			Help: "Rejected claim operations by error kind.",
		},
		[]string{"op", "kind"},
	)

	payoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medclaim_payouts_total",
			Help: "Automated payout attempts by result.",
		},
		[]string{"result"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medclaim_ready",
		Help: "1 when the service accepts traffic.",
	})
)

var initOnce sync.Once

// Init registers all metrics in the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			claimsCreated, claimTransitions, claimErrors, payoutsTotal, ready,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ClaimCreated counts a submitted claim.
func ClaimCreated() { claimsCreated.Inc() }

// ClaimTransition counts a status change.
func ClaimTransition(from, to string) { claimTransitions.WithLabelValues(from, to).Inc() }

// ClaimError counts a failed claim operation.
func ClaimError(op, kind string) { claimErrors.WithLabelValues(op, kind).Inc() }

// Payout counts an automated payout attempt; result is "paid" or "failed".
func Payout(result string) { payoutsTotal.WithLabelValues(result).Inc() }

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Instrument records rate, latency and in-flight count for next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// claimSubresources are the fixed segments allowed after /v1/claims/{id}.
var claimSubresources = map[string]bool{
	"transitions": true,
	"documents":   true,
	"notes":       true,
}

// CanonicalPath collapses claim ids so label cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && parts[1] == "claims" && parts[2] != "stream" {
		switch len(parts) {
		case 3:
			return "/v1/claims/:id"
		case 4:
			if claimSubresources[parts[3]] {
				return "/v1/claims/:id/" + parts[3]
			}
		}
	}
	return p
}

// statusWriter keeps the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
