package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	platformmetrics "github.com/evanildobarros/isotek-qms/platform/go/metrics"
)

// Errors returned by the service layer.
var (
	ErrNotFound          = errors.New("assignment not found")
	ErrValidation        = errors.New("invalid assignment input")
	ErrInvalidTransition = errors.New("illegal assignment status transition")
	ErrAlreadyTerminal   = errors.New("assignment is already terminal")
	// ErrStatusConflict is returned by repositories when the conditional status
	// update loses a race; the service refines it into a caller-facing error.
	ErrStatusConflict = errors.New("assignment status changed concurrently")
)

// Assignment is a time-bounded authorization for one auditor to operate inside
// one client organization, plus the commercial terms of the engagement.
type Assignment struct {
	ID           uuid.UUID
	AuditorID    string
	TenantID     uuid.UUID
	StartDate    time.Time  // date granularity, inclusive
	EndDate      *time.Time // date granularity, inclusive; nil means open-ended
	Status       Status
	AgreedAmount *float64 // overrides the platform base price when set
	Notes        *string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// GrossAmount resolves the engagement fee: the per-assignment agreed amount when
// present, otherwise the platform-wide base price.
func (a Assignment) GrossAmount(basePrice float64) float64 {
	if a.AgreedAmount != nil {
		return *a.AgreedAmount
	}
	return basePrice
}

// WindowContains reports whether the given day falls inside [StartDate, EndDate],
// both inclusive, with an open end when EndDate is nil. Comparison is at date
// granularity in UTC.
func (a Assignment) WindowContains(day time.Time) bool {
	d := DateOnly(day)
	if d.Before(DateOnly(a.StartDate)) {
		return false
	}
	if a.EndDate != nil && d.After(DateOnly(*a.EndDate)) {
		return false
	}
	return true
}

// DateOnly truncates a timestamp to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateInput represents the request to register an engagement.
type CreateInput struct {
	AuditorID    string
	TenantID     uuid.UUID
	StartDate    time.Time
	EndDate      *time.Time
	AgreedAmount *float64
	Notes        *string
	CreatedBy    string
}

// UpdateInput carries the mutable non-lifecycle fields. Lifecycle changes go
// exclusively through Transition.
type UpdateInput struct {
	Notes        *string
	AgreedAmount *float64
	EndDate      *time.Time
}

// CompletionListener is notified exactly once per first-time completion, after
// the status swap has committed. The XP collaborator and the earnings "earned"
// bucket hang off this hook.
type CompletionListener func(Assignment)

// Repository abstracts persistence for assignments. CompareAndSwapStatus must
// apply the status change as a single atomic conditional update and return
// ErrStatusConflict when the stored status no longer matches expected.
type Repository interface {
	Create(ctx context.Context, a Assignment) (Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (Assignment, error)
	Update(ctx context.Context, a Assignment) (Assignment, error)
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, target Status, at time.Time) (Assignment, error)
	ListByAuditor(ctx context.Context, auditorID string) ([]Assignment, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Assignment, error)
}

// Service owns the assignment registry: it is the sole writer of the status
// field and the only place completion side effects fire from.
type Service struct {
	repo      Repository
	metrics   *platformmetrics.Metrics
	now       func() time.Time
	listeners []CompletionListener
}

// New constructs a Service. metrics may be nil (CLI, tests).
func New(repo Repository, metrics *platformmetrics.Metrics) *Service {
	if repo == nil {
		panic("assignments repo is required")
	}
	return &Service{repo: repo, metrics: metrics, now: time.Now}
}

// OnCompleted registers a listener for first-time completions. Not safe for
// concurrent use with Transition; register during wiring.
func (s *Service) OnCompleted(fn CompletionListener) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Create registers a new engagement in the Scheduled state.
func (s *Service) Create(ctx context.Context, input CreateInput) (Assignment, error) {
	if input.AuditorID == "" {
		return Assignment{}, fmt.Errorf("%w: auditor id is required", ErrValidation)
	}
	if input.TenantID == uuid.Nil {
		return Assignment{}, fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if input.StartDate.IsZero() {
		return Assignment{}, fmt.Errorf("%w: start date is required", ErrValidation)
	}
	if input.EndDate != nil && DateOnly(*input.EndDate).Before(DateOnly(input.StartDate)) {
		return Assignment{}, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	if input.AgreedAmount != nil && *input.AgreedAmount < 0 {
		return Assignment{}, fmt.Errorf("%w: agreed amount must not be negative", ErrValidation)
	}

	now := s.now().UTC()
	a := Assignment{
		ID:           uuid.New(),
		AuditorID:    input.AuditorID,
		TenantID:     input.TenantID,
		StartDate:    DateOnly(input.StartDate),
		Status:       StatusScheduled,
		AgreedAmount: input.AgreedAmount,
		Notes:        input.Notes,
		CreatedBy:    input.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.EndDate != nil {
		end := DateOnly(*input.EndDate)
		a.EndDate = &end
	}

	return s.repo.Create(ctx, a)
}

// Get returns an assignment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Assignment, error) {
	return s.repo.Get(ctx, id)
}

// Update edits the non-lifecycle fields of an assignment.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Assignment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}

	if input.AgreedAmount != nil && *input.AgreedAmount < 0 {
		return Assignment{}, fmt.Errorf("%w: agreed amount must not be negative", ErrValidation)
	}
	if input.EndDate != nil && DateOnly(*input.EndDate).Before(DateOnly(a.StartDate)) {
		return Assignment{}, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}

	if input.Notes != nil {
		a.Notes = input.Notes
	}
	if input.AgreedAmount != nil {
		a.AgreedAmount = input.AgreedAmount
	}
	if input.EndDate != nil {
		end := DateOnly(*input.EndDate)
		a.EndDate = &end
	}
	a.UpdatedAt = s.now().UTC()

	return s.repo.Update(ctx, a)
}

// Transition moves an assignment to target through the lifecycle table.
//
// Retrying with the current status is idempotent and fires no side effects.
// Once terminal, any transition to a different status fails with
// ErrAlreadyTerminal. Races between two first-time completions are decided by
// the repository's atomic conditional update: exactly one caller wins and only
// the winner triggers the completion listeners.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status) (Assignment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}

	if a.Status == target {
		return a, nil
	}
	if a.Status.Terminal() {
		return Assignment{}, fmt.Errorf("%w: %s", ErrAlreadyTerminal, a.Status)
	}
	if !canTransition(a.Status, target) {
		return Assignment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
	}

	updated, err := s.repo.CompareAndSwapStatus(ctx, id, a.Status, target, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return s.resolveConflict(ctx, id, target)
		}
		return Assignment{}, err
	}

	s.afterTransition(updated, target)
	return updated, nil
}

// resolveConflict re-reads after a lost race and applies the same idempotency
// rules against the fresh status. The loser of a completion race lands here and
// must not fire side effects.
func (s *Service) resolveConflict(ctx context.Context, id uuid.UUID, target Status) (Assignment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.Status == target {
		return a, nil
	}
	if a.Status.Terminal() {
		return Assignment{}, fmt.Errorf("%w: %s", ErrAlreadyTerminal, a.Status)
	}
	return Assignment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, target)
}

func (s *Service) afterTransition(a Assignment, target Status) {
	if s.metrics != nil {
		s.metrics.AssignmentTransitions.WithLabelValues(string(target)).Inc()
		if target == StatusCompleted {
			s.metrics.AssignmentsCompleted.Inc()
		}
	}
	if target == StatusCompleted {
		for _, fn := range s.listeners {
			fn(a)
		}
	}
}

// ListForAuditor returns the auditor's engagements, read-only.
func (s *Service) ListForAuditor(ctx context.Context, auditorID string) ([]Assignment, error) {
	if auditorID == "" {
		return nil, fmt.Errorf("%w: auditor id is required", ErrValidation)
	}
	return s.repo.ListByAuditor(ctx, auditorID)
}

// ListForTenant returns the engagements targeting one organization, read-only.
func (s *Service) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Assignment, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	return s.repo.ListByTenant(ctx, tenantID)
}
