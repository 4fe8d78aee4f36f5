package payout

import (
	"context"
	"errors"
	"time"

	"medclaim.org/internal/claims"
	"medclaim.org/internal/obs"
)

// Engine is the slice of the claims engine the scheduler drives.
type Engine interface {
	Payable(ctx context.Context, settle time.Duration) ([]string, error)
	ProcessPayment(ctx context.Context, id string) (claims.Claim, error)
}

// Scheduler pays approved claims once they have settled.
type Scheduler struct {
	engine   Engine
	interval time.Duration
	settle   time.Duration
}

// New creates a scheduler. A non-positive interval disables Start.
func New(engine Engine, interval, settle time.Duration) *Scheduler {
	if settle < 0 {
		settle = 0
	}
	return &Scheduler{engine: engine, interval: interval, settle: settle}
}

// Result summarizes one pass.
type Result struct {
	Paid    []string
	Skipped int
	Failed  int
}

// RunOnce pays every claim that is payable right now. A claim that moved on
// between listing and payment is skipped, not failed.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	ids, err := s.engine.Payable(ctx, s.settle)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := s.engine.ProcessPayment(ctx, id)
		switch {
		case err == nil:
			res.Paid = append(res.Paid, id)
			obs.Payout("paid")
		case errors.Is(err, claims.ErrInvalidTransition), errors.Is(err, claims.ErrNotFound):
			res.Skipped++
		default:
			res.Failed++
			obs.Payout("failed")
			obs.Error("payout failed", err, map[string]any{"claim_id": id})
		}
	}
	return res, nil
}

// Start runs RunOnce every interval until the returned stop function is called.
func (s *Scheduler) Start(ctx context.Context) func() {
	if s.interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := s.RunOnce(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					obs.Error("payout pass failed", err, nil)
					continue
				}
				if len(res.Paid) > 0 || res.Failed > 0 {
					obs.Info("payout pass", map[string]any{"paid": len(res.Paid), "failed": res.Failed, "skipped": res.Skipped})
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
