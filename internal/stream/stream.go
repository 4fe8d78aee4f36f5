package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"medclaim.org/internal/claims"
)

// ClaimEvent is the public change notification pushed to dashboards.
type ClaimEvent struct {
	Type      string        `json:"type"`
	ClaimID   string        `json:"claim_id"`
	PatientID string        `json:"patient_id"`
	From      claims.Status `json:"from,omitempty"`
	Status    claims.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// Stream fan-outs claim events to all active subscribers (SSE clients).
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]chan ClaimEvent
	next    int
	dropped atomic.Uint64
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan ClaimEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan ClaimEvent {
	ch := make(chan ClaimEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt ClaimEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking the engine.
			s.dropped.Add(1)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Listener adapts the stream to the engine's mutation hook.
func (s *Stream) Listener() claims.Listener {
	return func(_ context.Context, ev claims.Event) {
		out := ClaimEvent{
			Type:      string(ev.Type),
			ClaimID:   ev.ClaimID,
			PatientID: ev.PatientID,
			Status:    ev.To,
			Timestamp: ev.At,
		}
		if ev.From != ev.To {
			out.From = ev.From
		}
		s.Publish(out)
	}
}
