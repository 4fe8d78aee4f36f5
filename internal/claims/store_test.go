package claims

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestInMemoryMutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	defer s.Close()
	c, err := s.Create(ctx, Claim{ClaimAmount: 100, Status: StatusSubmitted})
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err = s.Mutate(ctx, c.ID, func(c *Claim) error {
		c.Status = StatusRejected
		c.Notes = append(c.Notes, Note{Text: "partial"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.Get(ctx, c.ID)
	if got.Status != StatusSubmitted || len(got.Notes) != 0 {
		t.Fatalf("failed mutation leaked: %+v", got)
	}
}

func TestInMemoryMutateGuardsImmutableFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	defer s.Close()
	c, _ := s.Create(ctx, Claim{ClaimAmount: 100, Status: StatusSubmitted})

	cases := map[string]func(*Claim) error{
		"id":        func(c *Claim) error { c.ID = "CLM999"; return nil },
		"amount":    func(c *Claim) error { c.ClaimAmount = 1; return nil },
		"invariant": func(c *Claim) error { c.ApprovedAmount = AmountPtr(10); return nil },
	}
	for name, fn := range cases {
		if _, err := s.Mutate(ctx, c.ID, fn); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestInMemoryNotFoundAndClosed(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	if _, err := s.Get(ctx, "CLM001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Mutate(ctx, "CLM001", func(*Claim) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Mutate, got %v", err)
	}
	_ = s.Close()
	if _, err := s.Create(ctx, Claim{ClaimAmount: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.List(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestInMemoryConcurrentCreateAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	defer s.Close()

	const n = 100
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.Create(ctx, Claim{ClaimAmount: 1, Status: StatusSubmitted})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			mu.Lock()
			seen[c.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
	all, _ := s.List(ctx)
	if len(all) != n {
		t.Fatalf("expected %d listed claims, got %d", n, len(all))
	}
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	k := keyedMutex{locks: make(map[string]*refLock)}
	unlock := k.Lock("a")
	done := make(chan struct{})
	go func() {
		u := k.Lock("a")
		u()
		close(done)
	}()
	unlock()
	<-done
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.locks) != 0 {
		t.Fatalf("lock table not drained: %d", len(k.locks))
	}
}
