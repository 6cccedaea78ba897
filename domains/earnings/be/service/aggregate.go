package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	assignments "github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	commission "github.com/evanildobarros/isotek-qms/domains/commission/be/service"
	platformmetrics "github.com/evanildobarros/isotek-qms/platform/go/metrics"
)

// Summary is the portfolio fold over many settlement breakdowns, partitioned by
// assignment lifecycle state. Skipped counts engagements whose settlement could
// not be computed; the remaining totals stay valid.
type Summary struct {
	GrossTotal float64 // gross fees of completed engagements
	NetIncome  float64 // auditor share of completed engagements
	Pending    float64 // auditor share of scheduled/in-progress engagements
	Skipped    int
}

// StatementLine pairs an assignment with its computed breakdown, for the
// wallet/statement view.
type StatementLine struct {
	AssignmentID uuid.UUID
	TenantID     uuid.UUID
	Status       assignments.Status
	Breakdown    Breakdown
}

// RateResolver resolves the effective commission rate for one auditor. The
// aggregator always resolves against the auditor's profile, never the tenant's.
type RateResolver func(ctx context.Context, auditorID string) (commission.Resolution, error)

// Aggregate folds the assignments into portfolio totals. Completed engagements
// feed NetIncome and GrossTotal, scheduled and in-progress ones feed Pending,
// canceled ones feed neither. The fold carries no state between calls and is
// stable under re-ordering and re-running.
//
// A resolution or settlement failure on one assignment must not abort the
// summary over the rest: the item is logged, skipped and counted.
func Aggregate(ctx context.Context, items []assignments.Assignment, pricing Pricing, resolve RateResolver, logger *zap.Logger) (Summary, []StatementLine) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var summary Summary
	lines := make([]StatementLine, 0, len(items))

	for _, a := range items {
		if a.Status == assignments.StatusCanceled {
			continue
		}

		resolution, err := resolve(ctx, a.AuditorID)
		if err != nil {
			summary.Skipped++
			logger.Warn("skipping assignment in earnings aggregate: rate resolution failed",
				zap.String("assignment_id", a.ID.String()),
				zap.String("auditor_id", a.AuditorID),
				zap.Error(err),
			)
			continue
		}

		breakdown, err := pricing.Settle(a.GrossAmount(pricing.BasePrice), resolution.Rate)
		if err != nil {
			summary.Skipped++
			logger.Warn("skipping assignment in earnings aggregate: settlement failed",
				zap.String("assignment_id", a.ID.String()),
				zap.Error(err),
			)
			continue
		}
		breakdown.TierLabel = string(resolution.Tier)

		lines = append(lines, StatementLine{
			AssignmentID: a.ID,
			TenantID:     a.TenantID,
			Status:       a.Status,
			Breakdown:    breakdown,
		})

		switch a.Status {
		case assignments.StatusCompleted:
			summary.NetIncome += breakdown.AuditorShare
			summary.GrossTotal += breakdown.GrossTotal
		case assignments.StatusScheduled, assignments.StatusInProgress:
			summary.Pending += breakdown.AuditorShare
		}
	}

	return summary, lines
}

// AssignmentSource is the read-only slice of the registry the aggregator consumes.
type AssignmentSource interface {
	ListForAuditor(ctx context.Context, auditorID string) ([]assignments.Assignment, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]assignments.Assignment, error)
}

// CommissionSource provides profiles and the policy snapshot for rate resolution.
type CommissionSource interface {
	Profile(ctx context.Context, auditorID string) (commission.Profile, error)
	Policy(ctx context.Context) (commission.GlobalPolicy, error)
}

// Service computes wallet statements and dashboard totals.
type Service struct {
	assignments AssignmentSource
	commission  CommissionSource
	pricing     Pricing
	metrics     *platformmetrics.Metrics
	logger      *zap.Logger
}

// New constructs a Service. metrics and logger may be nil.
func New(assignmentSource AssignmentSource, commissionSource CommissionSource, pricing Pricing, metrics *platformmetrics.Metrics, logger *zap.Logger) *Service {
	if assignmentSource == nil {
		panic("assignment source is required")
	}
	if commissionSource == nil {
		panic("commission source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		assignments: assignmentSource,
		commission:  commissionSource,
		pricing:     pricing,
		metrics:     metrics,
		logger:      logger,
	}
}

// ForAuditor returns the auditor's portfolio totals and per-engagement statement.
func (s *Service) ForAuditor(ctx context.Context, auditorID string) (Summary, []StatementLine, error) {
	items, err := s.assignments.ListForAuditor(ctx, auditorID)
	if err != nil {
		return Summary{}, nil, err
	}
	return s.aggregate(ctx, items)
}

// ForTenant returns the engagement totals for one client organization, for the
// admin dashboard.
func (s *Service) ForTenant(ctx context.Context, tenantID uuid.UUID) (Summary, []StatementLine, error) {
	items, err := s.assignments.ListForTenant(ctx, tenantID)
	if err != nil {
		return Summary{}, nil, err
	}
	return s.aggregate(ctx, items)
}

func (s *Service) aggregate(ctx context.Context, items []assignments.Assignment) (Summary, []StatementLine, error) {
	start := time.Now()

	// One policy snapshot per aggregation: every item resolves against the same
	// complete record even if an admin replaces it mid-fold.
	var policy *commission.GlobalPolicy
	if snapshot, err := s.commission.Policy(ctx); err == nil {
		policy = &snapshot
	} else if !isNotFound(err) {
		return Summary{}, nil, err
	}

	profileCache := make(map[string]commission.Resolution)
	resolve := func(ctx context.Context, auditorID string) (commission.Resolution, error) {
		if cached, ok := profileCache[auditorID]; ok {
			return cached, nil
		}
		profile, err := s.commission.Profile(ctx, auditorID)
		if err != nil {
			return commission.Resolution{}, err
		}
		resolution, err := commission.ResolveRate(profile, policy, nil)
		if err != nil {
			return commission.Resolution{}, err
		}
		profileCache[auditorID] = resolution
		return resolution, nil
	}

	summary, lines := Aggregate(ctx, items, s.pricing, resolve, s.logger)

	if s.metrics != nil {
		s.metrics.ObserveAggregate(start)
		for i := 0; i < summary.Skipped; i++ {
			s.metrics.SettlementsSkipped.Inc()
		}
	}
	return summary, lines, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, commission.ErrNotFound)
}
