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

	"github.com/evanildobarros/isotek-qms/domains/assignments/be/repo"
	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
)

func testRouter(t *testing.T) (http.Handler, *service.Service) {
	t.Helper()

	svc := service.New(repo.NewMemoryRepository(), nil)
	h := New(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{ID: "admin-1", IsAdmin: true})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/admin/assignments", h.Routes)
	return r, svc
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateAssignmentEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	tenantID := uuid.NewString()

	rec := do(t, router, http.MethodPost, "/admin/assignments",
		fmt.Sprintf(`{"auditorId":"auditor-1","tenantId":%q,"startDate":"2026-01-10","agreedAmount":1500}`, tenantID))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "auditor-1", body["auditorId"])
	require.Equal(t, tenantID, body["tenantId"])
	require.Equal(t, "scheduled", body["status"])
	require.Equal(t, "2026-01-10", body["startDate"])
	require.Equal(t, 1500.0, body["agreedAmount"])
	require.Equal(t, "admin-1", body["createdBy"])
}

func TestCreateAssignmentEndpointValidation(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("malformed tenant id", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/assignments",
			`{"auditorId":"auditor-1","tenantId":"not-a-uuid","startDate":"2026-01-10"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("end before start", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/assignments",
			fmt.Sprintf(`{"auditorId":"auditor-1","tenantId":%q,"startDate":"2026-01-10","endDate":"2026-01-01"}`, uuid.NewString()))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "https://isotek.app/problems/validation-error", body["type"])
	})
}

func TestTransitionEndpoint(t *testing.T) {
	router, svc := testRouter(t)

	a, err := svc.Create(context.Background(), service.CreateInput{
		AuditorID: "auditor-1",
		TenantID:  uuid.New(),
		StartDate: mustDate("2026-01-10"),
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	path := "/admin/assignments/" + a.ID.String() + ":transition"

	rec := do(t, router, http.MethodPost, path, `{"target":"in_progress"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "in_progress", decodeBody(t, rec)["status"])

	t.Run("illegal transition conflicts", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, path, `{"target":"scheduled"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "https://isotek.app/problems/conflict", decodeBody(t, rec)["type"])
	})

	t.Run("unknown target status", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, path, `{"target":"archived"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/assignments/"+uuid.NewString()+":transition", `{"target":"in_progress"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "https://isotek.app/problems/not-found", decodeBody(t, rec)["type"])
	})
}

func TestListEndpointRequiresFilter(t *testing.T) {
	router, _ := testRouter(t)

	rec := do(t, router, http.MethodGet, "/admin/assignments", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/admin/assignments?auditorId=auditor-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.NotNil(t, body["items"])
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
