package service

import (
	"context"
	"sync"
)

// MemorySessionStore keeps scope sessions in process memory. Sessions are
// per-actor and intentionally not persisted: a restart or logout drops them,
// matching the required lifecycle.
type MemorySessionStore struct {
	mu      sync.RWMutex
	byActor map[string]Session
}

// NewMemorySessionStore constructs a MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{byActor: make(map[string]Session)}
}

func (s *MemorySessionStore) Get(ctx context.Context, actorID string) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byActor[actorID]
	return session, ok, nil
}

func (s *MemorySessionStore) Put(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byActor[session.ActorID] = session
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byActor, actorID)
	return nil
}
