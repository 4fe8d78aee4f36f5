package claims

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"medclaim.org/internal/ids"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("claim store closed")

// Store is the persistence seam of the engine. Implementations must make
// Mutate atomic per claim: fn sees the current record, and the record is
// replaced only if fn returns nil.
type Store interface {
	Create(ctx context.Context, c Claim) (Claim, error)
	Get(ctx context.Context, id string) (Claim, error)
	List(ctx context.Context) ([]Claim, error)
	Mutate(ctx context.Context, id string, fn func(*Claim) error) (Claim, error)
	Close() error
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu     sync.RWMutex
	claims map[string]Claim
	order  []string
	seq    uint64
	closed bool

	locks keyedMutex
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		claims: make(map[string]Claim),
		locks:  keyedMutex{locks: make(map[string]*refLock)},
	}
}

// Create stores c under a freshly assigned claim code and returns the stored copy.
func (s *InMemory) Create(ctx context.Context, c Claim) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Claim{}, ErrClosed
	}
	s.seq++
	c = c.Clone()
	c.ID = ids.ClaimCode(s.seq)
	s.claims[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.Clone(), nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Claim{}, ErrClosed
	}
	c, ok := s.claims[id]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// List returns every claim in insertion order.
func (s *InMemory) List(ctx context.Context) ([]Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Claim, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.claims[id].Clone())
	}
	return out, nil
}

// Mutate runs fn on a copy of the claim while holding the claim's write lock.
// Readers keep seeing the previous version until the copy is swapped in.
func (s *InMemory) Mutate(ctx context.Context, id string, fn func(*Claim) error) (Claim, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return Claim{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Claim{}, err
	}
	if next.ID != id {
		return Claim{}, fmt.Errorf("%w: claim id is immutable", ErrValidation)
	}
	if next.ClaimAmount != current.ClaimAmount {
		return Claim{}, fmt.Errorf("%w: claim amount is immutable", ErrValidation)
	}
	if err := next.CheckInvariants(); err != nil {
		return Claim{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Claim{}, ErrClosed
	}
	s.claims[id] = next
	return next.Clone(), nil
}

// Close releases the table. Subsequent calls fail with ErrClosed.
func (s *InMemory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.claims = nil
	s.order = nil
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
