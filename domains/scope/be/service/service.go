package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	assignments "github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	platformmetrics "github.com/evanildobarros/isotek-qms/platform/go/metrics"
)

// ErrAuthorization marks scope-entry denials. Denials are never downgraded to a
// fallback tenant; callers receive an explicit rejection with a reason.
var ErrAuthorization = errors.New("scope authorization denied")

// DenialReason explains why scope entry or re-validation was refused, so the UI
// can distinguish an expired window from a revoked engagement.
type DenialReason string

const (
	DenialNotOwner       DenialReason = "not_assignment_owner"
	DenialStatusTerminal DenialReason = "assignment_terminal"
	DenialBeforeWindow   DenialReason = "before_engagement_window"
	DenialAfterWindow    DenialReason = "after_engagement_window"
)

// AuthzError carries the denial reason alongside the sentinel.
type AuthzError struct {
	Reason       DenialReason
	AssignmentID uuid.UUID
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("scope authorization denied: %s (assignment %s)", e.Reason, e.AssignmentID)
}

func (e *AuthzError) Unwrap() error { return ErrAuthorization }

// Session is the ephemeral per-actor scope state. It lives for the login
// session only and is never shared across actors.
type Session struct {
	ActorID      string
	AssignmentID uuid.UUID
	TenantID     uuid.UUID
	EnteredAt    time.Time
}

// SessionStore abstracts the per-actor session map. Implementations are
// session-local; scope must not survive a logout.
type SessionStore interface {
	Get(ctx context.Context, actorID string) (Session, bool, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, actorID string) error
}

// AssignmentReader is the read-only slice of the assignment registry the guard
// needs. The guard never mutates assignments.
type AssignmentReader interface {
	Get(ctx context.Context, id uuid.UUID) (assignments.Assignment, error)
}

// EventKind labels scope lifecycle notifications.
type EventKind string

const (
	EventEntered     EventKind = "entered"
	EventExited      EventKind = "exited"
	EventInvalidated EventKind = "invalidated"
)

// Event describes a scope change for interested collaborators (UI push, audit
// trail). Reason is set only for invalidations.
type Event struct {
	Kind         EventKind
	ActorID      string
	TenantID     uuid.UUID
	AssignmentID uuid.UUID
	Reason       *DenialReason
}

// Notifier receives scope change events. Replaces the source UI's ambient event
// broadcast with an explicit callback.
type Notifier func(Event)

// Current is the re-validated scope state for an actor. TenantID nil means no
// scope is active; Invalidated is set when a previously valid scope just failed
// re-validation (as opposed to never having been entered).
type Current struct {
	TenantID     *uuid.UUID
	AssignmentID *uuid.UUID
	Invalidated  *DenialReason
}

// Guard answers whether an actor may operate inside a client organization and,
// if so, which tenant id applies to every query in the session. This is the one
// security-critical check in the repository: tenant ids supplied by client
// input must never bypass it.
type Guard struct {
	assignments AssignmentReader
	sessions    SessionStore
	metrics     *platformmetrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
	notifiers   []Notifier
}

// NewGuard constructs a Guard. metrics and logger may be nil.
func NewGuard(assignments AssignmentReader, sessions SessionStore, metrics *platformmetrics.Metrics, logger *zap.Logger) *Guard {
	if assignments == nil {
		panic("assignment reader is required")
	}
	if sessions == nil {
		panic("session store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		assignments: assignments,
		sessions:    sessions,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// OnChange registers a scope change notifier. Register during wiring.
func (g *Guard) OnChange(fn Notifier) {
	if fn != nil {
		g.notifiers = append(g.notifiers, fn)
	}
}

// EnterScope authorizes the actor to operate inside the assignment's tenant and
// records the session. Fails with an AuthzError unless the actor owns the
// assignment, the assignment is non-terminal and today falls inside the
// engagement window. Entering again overwrites any previous session.
func (g *Guard) EnterScope(ctx context.Context, actorID string, assignmentID uuid.UUID) (uuid.UUID, error) {
	if actorID == "" {
		return uuid.Nil, fmt.Errorf("actor id is required")
	}

	a, err := g.assignments.Get(ctx, assignmentID)
	if err != nil {
		return uuid.Nil, err
	}

	if denial := g.validate(a, actorID); denial != nil {
		if g.metrics != nil {
			g.metrics.ScopeDenied.WithLabelValues(string(denial.Reason)).Inc()
		}
		g.logger.Warn("scope entry denied",
			zap.String("actor_id", actorID),
			zap.String("assignment_id", assignmentID.String()),
			zap.String("reason", string(denial.Reason)),
		)
		return uuid.Nil, denial
	}

	session := Session{
		ActorID:      actorID,
		AssignmentID: a.ID,
		TenantID:     a.TenantID,
		EnteredAt:    g.now().UTC(),
	}
	if err := g.sessions.Put(ctx, session); err != nil {
		return uuid.Nil, err
	}

	if g.metrics != nil {
		g.metrics.ScopeEntered.Inc()
	}
	g.emit(Event{Kind: EventEntered, ActorID: actorID, TenantID: a.TenantID, AssignmentID: a.ID})
	return a.TenantID, nil
}

// CurrentScope re-validates the actor's session against the live assignment and
// returns the effective tenant id. A session that no longer passes the checks
// (window expired, assignment canceled by an admin) is invalidated as a side
// effect; the caller gets a nil tenant and must fall back to the actor's own
// organization or deny, never to a stale cached id.
func (g *Guard) CurrentScope(ctx context.Context, actorID string) (Current, error) {
	session, ok, err := g.sessions.Get(ctx, actorID)
	if err != nil {
		return Current{}, err
	}
	if !ok {
		return Current{}, nil
	}

	a, err := g.assignments.Get(ctx, session.AssignmentID)
	if err != nil {
		if errors.Is(err, assignments.ErrNotFound) {
			reason := DenialStatusTerminal
			return g.invalidate(ctx, session, reason)
		}
		return Current{}, err
	}

	if denial := g.validate(a, actorID); denial != nil {
		return g.invalidate(ctx, session, denial.Reason)
	}

	tenantID := a.TenantID
	assignmentID := a.ID
	return Current{TenantID: &tenantID, AssignmentID: &assignmentID}, nil
}

// ExitScope unconditionally clears the actor's session.
func (g *Guard) ExitScope(ctx context.Context, actorID string) error {
	session, ok, err := g.sessions.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if err := g.sessions.Delete(ctx, actorID); err != nil {
		return err
	}
	if ok {
		g.emit(Event{Kind: EventExited, ActorID: actorID, TenantID: session.TenantID, AssignmentID: session.AssignmentID})
	}
	return nil
}

// EffectiveScope adapts CurrentScope for the per-request middleware. It reads
// one assignment and compares three fields, cheap enough to run on every
// request a scoped actor makes.
func (g *Guard) EffectiveScope(ctx context.Context, actorID string) (uuid.UUID, uuid.UUID, bool, error) {
	current, err := g.CurrentScope(ctx, actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false, err
	}
	if current.TenantID == nil {
		return uuid.Nil, uuid.Nil, false, nil
	}
	return *current.TenantID, *current.AssignmentID, true, nil
}

// validate applies the three authorization conditions shared by entry and
// re-validation: ownership, non-terminal status, today inside the window.
func (g *Guard) validate(a assignments.Assignment, actorID string) *AuthzError {
	if a.AuditorID != actorID {
		return &AuthzError{Reason: DenialNotOwner, AssignmentID: a.ID}
	}
	if a.Status != assignments.StatusScheduled && a.Status != assignments.StatusInProgress {
		return &AuthzError{Reason: DenialStatusTerminal, AssignmentID: a.ID}
	}

	today := assignments.DateOnly(g.now())
	if today.Before(assignments.DateOnly(a.StartDate)) {
		return &AuthzError{Reason: DenialBeforeWindow, AssignmentID: a.ID}
	}
	if a.EndDate != nil && today.After(assignments.DateOnly(*a.EndDate)) {
		return &AuthzError{Reason: DenialAfterWindow, AssignmentID: a.ID}
	}
	return nil
}

func (g *Guard) invalidate(ctx context.Context, session Session, reason DenialReason) (Current, error) {
	if err := g.sessions.Delete(ctx, session.ActorID); err != nil {
		return Current{}, err
	}

	if g.metrics != nil {
		g.metrics.ScopeInvalidated.WithLabelValues(string(reason)).Inc()
	}
	g.logger.Info("scope invalidated during re-validation",
		zap.String("actor_id", session.ActorID),
		zap.String("assignment_id", session.AssignmentID.String()),
		zap.String("reason", string(reason)),
	)
	g.emit(Event{
		Kind:         EventInvalidated,
		ActorID:      session.ActorID,
		TenantID:     session.TenantID,
		AssignmentID: session.AssignmentID,
		Reason:       &reason,
	})
	return Current{Invalidated: &reason}, nil
}

func (g *Guard) emit(e Event) {
	for _, fn := range g.notifiers {
		fn(e)
	}
}
