package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and
// early development.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Assignment
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.Assignment)}
}

func (r *MemoryRepository) Create(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return service.Assignment{}, service.ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) Update(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[a.ID]
	if !ok {
		return service.Assignment{}, service.ErrNotFound
	}

	// Lifecycle stays under CompareAndSwapStatus ownership.
	a.Status = stored.Status
	a.CompletedAt = stored.CompletedAt
	r.byID[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, target service.Status, at time.Time) (service.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return service.Assignment{}, service.ErrNotFound
	}
	if a.Status != expected {
		return service.Assignment{}, service.ErrStatusConflict
	}

	a.Status = target
	a.UpdatedAt = at
	if target == service.StatusCompleted {
		completedAt := at
		a.CompletedAt = &completedAt
	}
	r.byID[id] = a
	return a, nil
}

func (r *MemoryRepository) ListByAuditor(ctx context.Context, auditorID string) ([]service.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Assignment, 0)
	for _, a := range r.byID {
		if a.AuditorID == auditorID {
			items = append(items, a)
		}
	}
	sortByCreatedAt(items)
	return items, nil
}

func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]service.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Assignment, 0)
	for _, a := range r.byID {
		if a.TenantID == tenantID {
			items = append(items, a)
		}
	}
	sortByCreatedAt(items)
	return items, nil
}

func sortByCreatedAt(items []service.Assignment) {
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
}
