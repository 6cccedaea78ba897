package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evanildobarros/isotek-qms/domains/commission/be/repo"
	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
)

const fullRatesJSON = `{"rates":{"bronze":0.71,"silver":0.76,"gold":0.81,"platinum":0.86,"diamond":0.91}}`

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	svc := service.New(repo.NewMemoryPolicyStore(), repo.NewMemoryProfileStore())
	h := New(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{ID: "admin-1", IsAdmin: true})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/admin/commission-policy", h.PolicyRoutes)
	r.Route("/admin/auditors", h.ProfileRoutes)
	return r
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

func TestPolicyEndpoints(t *testing.T) {
	router := testRouter(t)

	t.Run("404 before first configuration", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/admin/commission-policy", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("replace and read back", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/commission-policy", fullRatesJSON)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, 1.0, body["version"])
		require.Equal(t, "admin-1", body["updatedBy"])

		rec = do(t, router, http.MethodGet, "/admin/commission-policy", "")
		require.Equal(t, http.StatusOK, rec.Code)
		rates := decodeBody(t, rec)["rates"].(map[string]any)
		require.Equal(t, 0.81, rates["gold"])
	})

	t.Run("rejects partial map", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/commission-policy", `{"rates":{"bronze":0.71}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/commission-policy", `{"rates":{"wood":0.5}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProfileEndpoints(t *testing.T) {
	router := testRouter(t)

	t.Run("default profile for unknown auditor", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/admin/auditors/auditor-1/commission-profile", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "auditor-1", body["auditorId"])
		require.Equal(t, "bronze", body["effectiveTier"])
		require.Nil(t, body["tier"])
		require.Nil(t, body["customRate"])
	})

	t.Run("put stores tier and custom rate", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/auditors/auditor-1/commission-profile",
			`{"tier":"gold","customRate":0.725,"gamificationLevel":14}`)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "gold", body["tier"])
		require.Equal(t, "gold", body["effectiveTier"])
		require.Equal(t, 0.725, body["customRate"])
	})

	t.Run("put without custom rate clears it", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/auditors/auditor-1/commission-profile", `{"tier":"gold"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Nil(t, decodeBody(t, rec)["customRate"])
	})

	t.Run("rejects out-of-range custom rate", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/admin/auditors/auditor-1/commission-profile", `{"customRate":1.5}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
