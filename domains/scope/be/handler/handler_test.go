package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	assignmentsrepo "github.com/evanildobarros/isotek-qms/domains/assignments/be/repo"
	assignments "github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	"github.com/evanildobarros/isotek-qms/domains/scope/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
)

type fixture struct {
	router   http.Handler
	registry *assignments.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := assignments.New(assignmentsrepo.NewMemoryRepository(), nil)
	guard := service.NewGuard(registry, service.NewMemorySessionStore(), nil, nil)
	h := New(guard, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			actor := req.Header.Get("X-Test-Actor")
			if actor != "" {
				ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{ID: actor})
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/auditors/scope", h.Routes)

	return &fixture{router: r, registry: registry}
}

func (f *fixture) createAssignment(t *testing.T, auditorID string) assignments.Assignment {
	t.Helper()
	a, err := f.registry.Create(context.Background(), assignments.CreateInput{
		AuditorID: auditorID,
		TenantID:  uuid.New(),
		StartDate: time.Now().UTC().AddDate(0, 0, -1),
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) do(t *testing.T, actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Test-Actor", actor)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestScopeEndpoints(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "auditor-1")
	enterBody := fmt.Sprintf(`{"assignmentId":%q}`, a.ID)

	t.Run("requires authentication", func(t *testing.T) {
		rec := f.do(t, "", http.MethodGet, "/auditors/scope", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no scope before entering", func(t *testing.T) {
		rec := f.do(t, "auditor-1", http.MethodGet, "/auditors/scope", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, false, decodeBody(t, rec)["active"])
	})

	t.Run("enter and read back", func(t *testing.T) {
		rec := f.do(t, "auditor-1", http.MethodPost, "/auditors/scope/enter", enterBody)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, true, body["active"])
		require.Equal(t, a.TenantID.String(), body["tenantId"])
		require.Equal(t, a.ID.String(), body["assignmentId"])

		rec = f.do(t, "auditor-1", http.MethodGet, "/auditors/scope", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, a.TenantID.String(), decodeBody(t, rec)["tenantId"])
	})

	t.Run("other actors are denied with a reason", func(t *testing.T) {
		rec := f.do(t, "auditor-2", http.MethodPost, "/auditors/scope/enter", enterBody)
		require.Equal(t, http.StatusForbidden, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "https://isotek.app/problems/authorization-denied", body["type"])
		require.Equal(t, "not_assignment_owner", body["detail"])
	})

	t.Run("cancellation surfaces as invalidated scope", func(t *testing.T) {
		_, err := f.registry.Transition(context.Background(), a.ID, assignments.StatusCanceled)
		require.NoError(t, err)

		rec := f.do(t, "auditor-1", http.MethodGet, "/auditors/scope", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, false, body["active"])
		require.Equal(t, "assignment_terminal", body["invalidatedReason"])
	})

	t.Run("exit clears scope", func(t *testing.T) {
		f := newFixture(t)
		a := f.createAssignment(t, "auditor-1")

		rec := f.do(t, "auditor-1", http.MethodPost, "/auditors/scope/enter", fmt.Sprintf(`{"assignmentId":%q}`, a.ID))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, "auditor-1", http.MethodPost, "/auditors/scope/exit", "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, "auditor-1", http.MethodGet, "/auditors/scope", "")
		require.Equal(t, false, decodeBody(t, rec)["active"])
	})

	t.Run("unknown assignment", func(t *testing.T) {
		rec := f.do(t, "auditor-1", http.MethodPost, "/auditors/scope/enter", fmt.Sprintf(`{"assignmentId":%q}`, uuid.New()))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
