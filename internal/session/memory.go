package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type pending struct {
	action    Action
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	actions map[int64]pending
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		actions: make(map[int64]pending),
	}
}

func (s *MemoryStore) Set(_ context.Context, adminID int64, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("invalid action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gc()
	s.actions[adminID] = pending{action: action, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, adminID int64) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.actions[adminID]
	if !ok {
		return "", ErrNoPending
	}
	delete(s.actions, adminID)

	if !s.now().Before(p.expiresAt) {
		return "", ErrNoPending
	}
	return p.action, nil
}

func (s *MemoryStore) Clear(_ context.Context, adminID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.actions, adminID)
	return nil
}

// gc drops expired entries. Must be called with mu held.
func (s *MemoryStore) gc() {
	now := s.now()
	for id, p := range s.actions {
		if !now.Before(p.expiresAt) {
			delete(s.actions, id)
		}
	}
}
