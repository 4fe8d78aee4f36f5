package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/stream"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("extractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
	}
}

func TestWithAuthSetsIdentity(t *testing.T) {
	t.Setenv(auth.SecretEnvVariable, "authn-secret")
	auth.ResetSecretForTests()

	a := &API{}
	var got auth.Identity
	handler := a.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	want := auth.Identity{ID: "2", Email: "insurance@example.com", Name: "HealthGuard Insurance", Role: auth.RoleInsurance}
	token, _, err := auth.GenerateToken(want, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/claims", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if got.ID != want.ID || got.Role != want.Role {
		t.Fatalf("identity = %+v", got)
	}

	// Query tokens are only honoured on the stream endpoint.
	req = httptest.NewRequest(http.MethodGet, "/v1/claims?access_token="+token, nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("query token on /v1/claims: status %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/claims/stream?access_token="+token, nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("query token on stream: status %d", rr.Code)
	}
}

func TestWithAuthPublicPaths(t *testing.T) {
	a := &API{}
	handler := a.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, p := range publicPaths {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", p, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/nope should reach the mux without a token: status %d", rr.Code)
	}
	for _, p := range []string{"/v1/claims", "/v1/unknown"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: status %d", p, rr.Code)
		}
	}
}

func TestStreamFiltersByVisibility(t *testing.T) {
	c := newTestAPI(t)
	patient := c.login("patient@example.com", "patient123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/claims/stream?access_token="+patient, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	waitForSubscribers(t, c.stream, 1)
	c.stream.Publish(stream.ClaimEvent{Type: "claim.transitioned", ClaimID: "CLM002", PatientID: "PAT124", Status: "approved"})
	c.stream.Publish(stream.ClaimEvent{Type: "claim.transitioned", ClaimID: "CLM001", PatientID: "PAT123", Status: "paid"})

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if event != "claim.transitioned" {
		t.Fatalf("event = %q", event)
	}
	var got stream.ClaimEvent
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.ClaimID != "CLM001" {
		t.Fatalf("patient received %s; events for other patients must be filtered", got.ClaimID)
	}
}

func waitForSubscribers(t *testing.T, s *stream.Stream, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", s.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
