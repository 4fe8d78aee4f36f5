package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
	"medclaim.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and identity context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		entry["user_id"] = id.ID
		entry["role"] = string(id.Role)
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	entry["fields"] = copyFields

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

// ClaimListener records every committed claim mutation in the audit trail.
func ClaimListener(ctx context.Context, ev claims.Event) {
	fields := map[string]any{
		"claim_id":   ev.ClaimID,
		"patient_id": ev.PatientID,
		"actor_id":   ev.ActorID,
		"actor_role": ev.ActorRole,
		"status":     string(ev.To),
	}
	if ev.From != "" && ev.From != ev.To {
		fields["from"] = string(ev.From)
	}
	if ev.Type == claims.EventTransitioned && ev.Claim.ApprovedAmount != nil && ev.To == claims.StatusApproved {
		fields["approved_amount"] = int64(*ev.Claim.ApprovedAmount)
	}
	if err := LogEvent(ctx, string(ev.Type), fields); err != nil {
		obs.Error("audit log failed", err, map[string]any{"claim_id": ev.ClaimID})
	}
}
