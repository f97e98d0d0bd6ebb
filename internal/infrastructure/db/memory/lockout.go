package memory

import (
	"context"
	"sync"
	"time"

	"github.com/thamco/customer-identity/internal/core/ports"
)

// LockoutStore is an in-process ports.LockoutStore. State is lost on restart
// and is not shared between replicas.
type LockoutStore struct {
	mu     sync.Mutex
	states map[string]ports.LockoutState
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{states: make(map[string]ports.LockoutState)}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		locked := ports.LockoutState{FailedCount: st.FailedCount, LockedUntil: now.Add(window)}
		s.states[key] = ports.LockoutState{LockedUntil: locked.LockedUntil}
		return locked, nil
	}
	s.states[key] = st
	return st, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
