package obs

import (
	"context"
	"testing"

	"medclaim.org/internal/claims"
)

func TestClaimListenerCounts(t *testing.T) {
	created := metricValue(t, claimsCreated)
	moved := metricValue(t, claimTransitions.WithLabelValues("submitted", "under_review"))

	ctx := context.Background()
	ClaimListener(ctx, claims.Event{Type: claims.EventCreated, To: claims.StatusSubmitted})
	ClaimListener(ctx, claims.Event{Type: claims.EventTransitioned, From: claims.StatusSubmitted, To: claims.StatusUnderReview})
	ClaimListener(ctx, claims.Event{Type: claims.EventNoteAdded, From: claims.StatusUnderReview, To: claims.StatusUnderReview})

	if got := metricValue(t, claimsCreated) - created; got != 1 {
		t.Fatalf("created delta = %v", got)
	}
	if got := metricValue(t, claimTransitions.WithLabelValues("submitted", "under_review")) - moved; got != 1 {
		t.Fatalf("transition delta = %v", got)
	}
}
