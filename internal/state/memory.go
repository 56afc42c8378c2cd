package state

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store used in tests and as a fallback
// when Redis is unavailable.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (s *MemoryStore) Set(_ context.Context, userID int64, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.IsNone() {
		delete(s.states, userID)
		return nil
	}
	s.states[userID] = st
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[userID]; ok {
		return st, nil
	}
	return None(), nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
