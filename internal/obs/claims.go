package obs

import (
	"context"

	"medclaim.org/internal/claims"
)

// ClaimListener feeds engine events into the claim counters.
func ClaimListener(_ context.Context, ev claims.Event) {
	switch ev.Type {
	case claims.EventCreated:
		ClaimCreated()
	case claims.EventTransitioned:
		ClaimTransition(string(ev.From), string(ev.To))
	}
}
