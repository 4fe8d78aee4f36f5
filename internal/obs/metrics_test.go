package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"/metrics":                       "/metrics",
		"/v1/claims":                     "/v1/claims",
		"/v1/claims?status=approved":     "/v1/claims",
		"/v1/claims/stream":              "/v1/claims/stream",
		"/v1/claims/CLM001":              "/v1/claims/:id",
		"/v1/claims/CLM001/transitions":  "/v1/claims/:id/transitions",
		"/v1/claims/CLM001/documents":    "/v1/claims/:id/documents",
		"/v1/claims/CLM001/notes":        "/v1/claims/:id/notes",
		"/v1/claims/CLM001/unknown":      "/v1/claims/CLM001/unknown",
		"/v1/analytics":                  "/v1/analytics",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsCanonicalPath(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := metricValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/claims/:id", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/claims/CLM042", nil))
	after := metricValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/claims/:id", "418"))
	if after-before != 1 {
		t.Fatalf("expected one counted request, got %v", after-before)
	}
}

func TestClaimCounters(t *testing.T) {
	Init()
	before := metricValue(t, claimTransitions.WithLabelValues("submitted", "approved"))
	ClaimTransition("submitted", "approved")
	if got := metricValue(t, claimTransitions.WithLabelValues("submitted", "approved")) - before; got != 1 {
		t.Fatalf("transition counter delta = %v", got)
	}
	SetReady(true)
	if metricValue(t, ready) != 1 {
		t.Fatalf("ready gauge not set")
	}
	SetReady(false)
	if metricValue(t, ready) != 0 {
		t.Fatalf("ready gauge not cleared")
	}
}

func TestLevelLogging(t *testing.T) {
	l := Logger()
	original := l.Writer()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	defer l.SetOutput(original)

	Error("payout failed", errors.New("boom"), map[string]any{"claim_id": "CLM001"})

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["level"] != "error" || entry["msg"] != "payout failed" || entry["error"] != "boom" || entry["claim_id"] != "CLM001" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
