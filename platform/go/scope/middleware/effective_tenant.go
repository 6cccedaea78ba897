package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	"github.com/evanildobarros/isotek-qms/platform/go/scope"
)

// Resolver answers "which engagement scope, if any, is active for this actor".
// Implemented by the scope guard service. Returning ok=false means no scope is
// active, either because none was entered or because re-validation invalidated it.
type Resolver interface {
	EffectiveScope(ctx context.Context, actorID string) (tenantID uuid.UUID, assignmentID uuid.UUID, ok bool, err error)
}

// WithEffectiveTenant resolves the actor's engagement scope on every request and
// attaches the effective tenant to the context. When no scope is active the
// actor's own organization claim applies. Requests with neither proceed without
// a Scope; tenant-scoped handlers reject those.
func WithEffectiveTenant(resolver Resolver) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("scope middleware: resolver is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil {
				next.ServeHTTP(w, r)
				return
			}

			tenantID, assignmentID, active, err := resolver.EffectiveScope(r.Context(), creds.ID)
			if err != nil {
				http.Error(w, "scope resolution failed", http.StatusInternalServerError)
				return
			}

			if active {
				aid := assignmentID
				ctx := scope.WithScope(r.Context(), scope.Scope{
					TenantID:     tenantID,
					AssignmentID: &aid,
					Audited:      true,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Fall back to the actor's home organization, never to a stale scope.
			if creds.TenantID != nil && *creds.TenantID != "" {
				if home, parseErr := uuid.Parse(*creds.TenantID); parseErr == nil {
					ctx := scope.WithScope(r.Context(), scope.Scope{TenantID: home})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
