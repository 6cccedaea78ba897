package scope

import (
	"context"

	"github.com/google/uuid"
)

// Scope captures the effective organization applied to every tenant-scoped data
// query for the current request. When Audited is true the actor is a third-party
// auditor operating inside a client organization under an engagement, and
// AssignmentID references the authorizing engagement.
//
// Collaborators (documents, non-conformities, SWOT, ...) must take the tenant id
// from here and never from client input while a scope is attached.
type Scope struct {
	TenantID     uuid.UUID
	AssignmentID *uuid.UUID
	Audited      bool
}

type ctxKey string

const scopeKey ctxKey = "ISOTEK_EFFECTIVE_SCOPE"

// WithScope returns a derived context carrying the effective Scope.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext extracts the effective Scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	v := ctx.Value(scopeKey)
	if v == nil {
		return Scope{}, false
	}

	s, ok := v.(Scope)
	return s, ok
}
