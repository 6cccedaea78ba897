package repo

import (
	"context"
	"sync"
	"time"

	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
)

// MemoryPolicyStore holds the global snapshot in memory. The whole value is
// swapped under the lock, so readers never see a half-edited rate map.
type MemoryPolicyStore struct {
	mu       sync.RWMutex
	snapshot *service.GlobalPolicy
}

// NewMemoryPolicyStore constructs an empty store (no policy record yet).
func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{}
}

func (s *MemoryPolicyStore) Get(ctx context.Context) (service.GlobalPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return service.GlobalPolicy{}, service.ErrNotFound
	}
	return clonePolicy(*s.snapshot), nil
}

func (s *MemoryPolicyStore) Replace(ctx context.Context, rates map[service.Tier]float64, editor string, at time.Time) (service.GlobalPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64 = 1
	if s.snapshot != nil {
		version = s.snapshot.Version + 1
	}

	next := service.GlobalPolicy{
		Rates:     cloneRates(rates),
		Version:   version,
		UpdatedBy: editor,
		UpdatedAt: at,
	}
	s.snapshot = &next
	return clonePolicy(next), nil
}

// MemoryProfileStore keeps auditor commission profiles in memory.
type MemoryProfileStore struct {
	mu        sync.RWMutex
	byAuditor map[string]service.Profile
}

// NewMemoryProfileStore constructs a MemoryProfileStore.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{byAuditor: make(map[string]service.Profile)}
}

func (s *MemoryProfileStore) Get(ctx context.Context, auditorID string) (service.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byAuditor[auditorID]
	if !ok {
		return service.Profile{}, service.ErrNotFound
	}
	return p, nil
}

func (s *MemoryProfileStore) Put(ctx context.Context, p service.Profile) (service.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byAuditor[p.AuditorID] = p
	return p, nil
}

func clonePolicy(p service.GlobalPolicy) service.GlobalPolicy {
	p.Rates = cloneRates(p.Rates)
	return p
}

func cloneRates(rates map[service.Tier]float64) map[service.Tier]float64 {
	out := make(map[service.Tier]float64, len(rates))
	for tier, rate := range rates {
		out[tier] = rate
	}
	return out
}
