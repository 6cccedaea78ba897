package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evanildobarros/isotek-qms/domains/earnings/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	"github.com/evanildobarros/isotek-qms/platform/go/problems"
)

// Handler exposes the wallet/statement view and the admin dashboard totals.
// Internal arithmetic stays unrounded; amounts are rounded half-up to two
// decimals here, at the presentation boundary only.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("earnings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// AuditorRoutes mounts the auditor-facing wallet endpoint on r.
func (h *Handler) AuditorRoutes(r chi.Router) {
	r.Get("/{auditorID}/earnings", h.forAuditor)
}

// AdminRoutes mounts the dashboard endpoint on r.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/", h.forTenant)
}

type summaryResponse struct {
	GrossTotal float64 `json:"grossTotal"`
	NetIncome  float64 `json:"netIncome"`
	Pending    float64 `json:"pending"`
	Skipped    int     `json:"skipped,omitempty"`
}

type breakdownResponse struct {
	GrossTotal    float64 `json:"grossTotal"`
	GatewayCost   float64 `json:"gatewayCost"`
	NetBasis      float64 `json:"netBasis"`
	AuditorShare  float64 `json:"auditorShare"`
	PlatformShare float64 `json:"platformShare"`
	Rate          float64 `json:"rate"`
	TierLabel     string  `json:"tierLabel"`
}

type statementLineResponse struct {
	AssignmentID string            `json:"assignmentId"`
	TenantID     string            `json:"tenantId"`
	Status       string            `json:"status"`
	Breakdown    breakdownResponse `json:"breakdown"`
}

type earningsResponse struct {
	Summary   summaryResponse         `json:"summary"`
	Statement []statementLineResponse `json:"statement"`
}

func (h *Handler) forAuditor(w http.ResponseWriter, r *http.Request) {
	auditorID := chi.URLParam(r, "auditorID")

	// The wallet is private: only the auditor themselves or an admin may read it.
	if creds, ok := platformauth.UserFromContext(r.Context()); ok && !creds.IsAdmin && creds.ID != auditorID {
		h.problem(w, r, http.StatusForbidden, problems.TypeAuthorization, "Forbidden", "earnings are visible to the owning auditor only")
		return
	}

	summary, lines, err := h.svc.ForAuditor(r.Context(), auditorID)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toEarningsResponse(summary, lines))
}

func (h *Handler) forTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenantId"))
	if err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid tenant id", "tenantId query parameter is required")
		return
	}

	summary, lines, err := h.svc.ForTenant(r.Context(), tenantID)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toEarningsResponse(summary, lines))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) problem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	problems.Write(w, problems.Problem{
		Type:      problemType,
		Title:     title,
		Detail:    detail,
		Status:    status,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

func (h *Handler) problemForError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Validation failed", err.Error())
	default:
		h.logger.Error("earnings handler internal error", zap.Error(err))
		h.problem(w, r, http.StatusInternalServerError, problems.TypeInternal, "Internal error", "")
	}
}

func toEarningsResponse(summary service.Summary, lines []service.StatementLine) earningsResponse {
	statement := make([]statementLineResponse, 0, len(lines))
	for _, line := range lines {
		statement = append(statement, statementLineResponse{
			AssignmentID: line.AssignmentID.String(),
			TenantID:     line.TenantID.String(),
			Status:       string(line.Status),
			Breakdown: breakdownResponse{
				GrossTotal:    round2(line.Breakdown.GrossTotal),
				GatewayCost:   round2(line.Breakdown.GatewayCost),
				NetBasis:      round2(line.Breakdown.NetBasis),
				AuditorShare:  round2(line.Breakdown.AuditorShare),
				PlatformShare: round2(line.Breakdown.PlatformShare),
				Rate:          line.Breakdown.Rate,
				TierLabel:     line.Breakdown.TierLabel,
			},
		})
	}

	return earningsResponse{
		Summary: summaryResponse{
			GrossTotal: round2(summary.GrossTotal),
			NetIncome:  round2(summary.NetIncome),
			Pending:    round2(summary.Pending),
			Skipped:    summary.Skipped,
		},
		Statement: statement,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
