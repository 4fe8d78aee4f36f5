package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
)

var reviewer = auth.Identity{ID: "2", Name: "HealthGuard Insurance", Role: auth.RoleInsurance}

func approvedClaim(t *testing.T, e *claims.Engine) string {
	t.Helper()
	ctx := context.Background()
	c, err := e.Create(ctx, auth.Identity{ID: "1", Role: auth.RoleHospital}, claims.ClaimInput{
		PatientName:   "John Doe",
		PatientID:     "PAT123",
		HospitalName:  "City General Hospital",
		Diagnosis:     "Acute Appendicitis",
		TreatmentDate: claims.MustDate("2024-11-25"),
		ClaimAmount:   100000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.ApplyTransition(ctx, reviewer, c.ID, claims.TransitionRequest{To: claims.StatusApproved, ApprovedAmount: claims.AmountPtr(90000)}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return c.ID
}

func TestRunOncePaysSettledClaims(t *testing.T) {
	now := time.Date(2024, 12, 2, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	store := claims.NewInMemory()
	defer store.Close()
	e := claims.NewEngine(store, claims.WithClock(clock))
	id := approvedClaim(t, e)

	s := New(e, time.Minute, time.Hour)
	res, err := s.RunOnce(context.Background())
	if err != nil || len(res.Paid) != 0 {
		t.Fatalf("claim paid before settling: %+v %v", res, err)
	}

	mu.Lock()
	now = now.Add(61 * time.Minute)
	mu.Unlock()
	res, err = s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(res.Paid) != 1 || res.Paid[0] != id {
		t.Fatalf("unexpected result: %+v", res)
	}
	got, _ := e.Get(context.Background(), reviewer, id)
	if got.Status != claims.StatusPaid {
		t.Fatalf("claim not paid: %s", got.Status)
	}
}

type fakeEngine struct {
	ids  []string
	errs map[string]error
}

func (f fakeEngine) Payable(context.Context, time.Duration) ([]string, error) { return f.ids, nil }

func (f fakeEngine) ProcessPayment(_ context.Context, id string) (claims.Claim, error) {
	return claims.Claim{ID: id}, f.errs[id]
}

func TestRunOnceClassifiesFailures(t *testing.T) {
	f := fakeEngine{
		ids: []string{"CLM001", "CLM002", "CLM003"},
		errs: map[string]error{
			"CLM002": claims.ErrInvalidTransition,
			"CLM003": errors.New("db down"),
		},
	}
	res, err := New(f, time.Minute, 0).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(res.Paid) != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestStartDisabledWithoutInterval(t *testing.T) {
	stop := New(fakeEngine{}, 0, 0).Start(context.Background())
	stop()
}

func TestStartRunsPeriodically(t *testing.T) {
	store := claims.NewInMemory()
	defer store.Close()
	e := claims.NewEngine(store)
	id := approvedClaim(t, e)

	stop := New(e, 10*time.Millisecond, 0).Start(context.Background())
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := e.Get(context.Background(), reviewer, id)
		if got.Status == claims.StatusPaid {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduler never paid the claim")
}
