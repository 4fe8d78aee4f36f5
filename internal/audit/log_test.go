package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
	"medclaim.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(original) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	return entry
}

func TestLogEvent(t *testing.T) {
	buf := captureLog(t)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithIdentity(ctx, auth.Identity{ID: "2", Role: auth.RoleInsurance})

	if err := LogEvent(ctx, "audit.test", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entry := decodeLine(t, buf)
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "2" || entry["role"] != "insurance" {
		t.Fatalf("unexpected identity: %v %v", entry["user_id"], entry["role"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}

func TestClaimListener(t *testing.T) {
	buf := captureLog(t)
	ClaimListener(context.Background(), claims.Event{
		Type:      claims.EventTransitioned,
		ClaimID:   "CLM001",
		PatientID: "PAT123",
		From:      claims.StatusUnderReview,
		To:        claims.StatusApproved,
		ActorID:   "2",
		ActorRole: "insurance",
		Claim:     claims.Claim{ApprovedAmount: claims.AmountPtr(8000000)},
	})

	entry := decodeLine(t, buf)
	if entry["event"] != "claim.transitioned" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	fields := entry["fields"].(map[string]any)
	if fields["from"] != "under_review" || fields["status"] != "approved" || fields["approved_amount"] != float64(8000000) {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
