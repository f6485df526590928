package state

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	tenantID string
	userID   int64
}

// MemoryStore is the default single-process Store. One mutex guards the map;
// the debounce check-and-set happens under it, so concurrent claims from the
// same user cannot both pass.
type MemoryStore struct {
	mu     sync.Mutex
	states map[memoryKey]ConversationState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[memoryKey]ConversationState)}
}

func (s *MemoryStore) Get(_ context.Context, tenantID string, userID int64) (ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[memoryKey{tenantID, userID}], nil
}

func (s *MemoryStore) Put(_ context.Context, tenantID string, userID int64, st ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[memoryKey{tenantID, userID}] = st
	return nil
}

func (s *MemoryStore) TryClaimPaid(_ context.Context, tenantID string, userID int64, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memoryKey{tenantID, userID}
	st := s.states[k]
	if !st.LastPaidClaim.IsZero() && now.Sub(st.LastPaidClaim) < window {
		return false, nil
	}
	st.LastPaidClaim = now
	s.states[k] = st
	return true, nil
}
