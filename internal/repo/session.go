package repo

import (
	"context"
	"sync"
	"time"

	"bankclient/internal/model"
)

// MemorySessionStore keeps the session for the lifetime of the process only.
type MemorySessionStore struct {
	mu        sync.Mutex
	state     *model.SessionState
	expiresAt time.Time
	now       func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{now: time.Now}
}

func (s *MemorySessionStore) Save(_ context.Context, state model.SessionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		s.state = nil
		return nil
	}
	s.state = &state
	s.expiresAt = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) Load(context.Context) (*model.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil || !s.now().Before(s.expiresAt) {
		return nil, nil
	}
	state := *s.state
	return &state, nil
}

func (s *MemorySessionStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}
