package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type client struct {
	base string
	http *http.Client
}

func (c *client) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) login(ctx context.Context, email, password string) string {
	var out struct {
		Token string `json:"token"`
	}
	code, err := c.call(ctx, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password}, &out)
	if err != nil || code != http.StatusOK {
		log.Fatalf("login %s: status %d: %v", email, code, err)
	}
	return out.Token
}

type claimView struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	ApprovedAmount *int64 `json:"approved_amount"`
}

func main() {
	base := os.Getenv("MEDCLAIM_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hospital := c.login(ctx, "hospital@example.com", "hospital123")
	insurer := c.login(ctx, "insurance@example.com", "insurance123")

	var created claimView
	code, err := c.call(ctx, http.MethodPost, "/v1/claims", hospital, map[string]any{
		"patient_name":   "Smoke Test",
		"patient_id":     "PAT900",
		"hospital_name":  "City General Hospital",
		"diagnosis":      "Routine Check",
		"treatment_date": time.Now().UTC().Format("2006-01-02"),
		"claim_amount":   500000,
		"documents":      []string{"Medical Bill"},
	}, &created)
	if err != nil || code != http.StatusCreated {
		log.Fatalf("create claim: status %d: %v", code, err)
	}

	steps := []struct {
		body map[string]any
		want string
	}{
		{map[string]any{"status": "under_review"}, "under_review"},
		{map[string]any{"status": "approved", "approved_amount": 450000, "note": "smoke approval"}, "approved"},
	}
	var current claimView
	for _, step := range steps {
		code, err := c.call(ctx, http.MethodPost, "/v1/claims/"+created.ID+"/transitions", insurer, step.body, &current)
		if err != nil || code != http.StatusOK {
			log.Fatalf("transition to %s: status %d: %v", step.want, code, err)
		}
		if current.Status != step.want {
			log.Fatalf("expected %s, got %s", step.want, current.Status)
		}
	}
	if current.ApprovedAmount == nil || *current.ApprovedAmount != 450000 {
		log.Fatalf("unexpected approved amount: %v", current.ApprovedAmount)
	}

	code, err = c.call(ctx, http.MethodPost, "/v1/claims/"+created.ID+"/transitions", insurer, map[string]any{"status": "rejected", "reason": "too late"}, nil)
	if err != nil || code != http.StatusConflict {
		log.Fatalf("reject after approve: expected 409, got %d: %v", code, err)
	}

	fmt.Printf("✅ claims smoke test passed: claim=%s status=%s\n", created.ID, current.Status)
}
