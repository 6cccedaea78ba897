package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	"github.com/evanildobarros/isotek-qms/platform/go/problems"
)

const dateLayout = "2006-01-02"

// Handler exposes the assignment registry over HTTP for the administrative UI.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("assignments service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the assignment endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{assignmentID}", h.get)
	r.Patch("/{assignmentID}", h.update)
	r.Post("/{assignmentID}:transition", h.transition)
}

type createRequest struct {
	AuditorID    string   `json:"auditorId"`
	TenantID     string   `json:"tenantId"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate,omitempty"`
	AgreedAmount *float64 `json:"agreedAmount,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
}

type updateRequest struct {
	Notes        *string  `json:"notes,omitempty"`
	AgreedAmount *float64 `json:"agreedAmount,omitempty"`
	EndDate      *string  `json:"endDate,omitempty"`
}

type transitionRequest struct {
	Target string `json:"target"`
}

type assignmentResponse struct {
	ID           string   `json:"id"`
	AuditorID    string   `json:"auditorId"`
	TenantID     string   `json:"tenantId"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate,omitempty"`
	Status       string   `json:"status"`
	AgreedAmount *float64 `json:"agreedAmount,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	CreatedBy    string   `json:"createdBy"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
	CompletedAt  *string  `json:"completedAt,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid tenant id", err.Error())
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid start date", "expected YYYY-MM-DD")
		return
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid end date", "expected YYYY-MM-DD")
			return
		}
		endDate = &parsed
	}

	var createdBy string
	if creds, ok := platformauth.UserFromContext(r.Context()); ok {
		createdBy = creds.ID
	}

	a, err := h.svc.Create(r.Context(), service.CreateInput{
		AuditorID:    req.AuditorID,
		TenantID:     tenantID,
		StartDate:    startDate,
		EndDate:      endDate,
		AgreedAmount: req.AgreedAmount,
		Notes:        req.Notes,
		CreatedBy:    createdBy,
	})
	if err != nil {
		h.problemForError(w, r, err)
		return
	}

	h.respond(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toResponse(a))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	auditorID := r.URL.Query().Get("auditorId")
	tenantParam := r.URL.Query().Get("tenantId")

	switch {
	case auditorID != "":
		items, err := h.svc.ListForAuditor(r.Context(), auditorID)
		if err != nil {
			h.problemForError(w, r, err)
			return
		}
		h.respondList(w, items)
	case tenantParam != "":
		tenantID, err := uuid.Parse(tenantParam)
		if err != nil {
			h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid tenant id", err.Error())
			return
		}
		items, err := h.svc.ListForTenant(r.Context(), tenantID)
		if err != nil {
			h.problemForError(w, r, err)
			return
		}
		h.respondList(w, items)
	default:
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Missing filter", "auditorId or tenantId query parameter is required")
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}

	input := service.UpdateInput{Notes: req.Notes, AgreedAmount: req.AgreedAmount}
	if req.EndDate != nil {
		parsed, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid end date", "expected YYYY-MM-DD")
			return
		}
		input.EndDate = &parsed
	}

	a, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toResponse(a))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}

	target, err := service.ParseStatus(req.Target)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}

	a, err := h.svc.Transition(r.Context(), id, target)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toResponse(a))
}

func (h *Handler) assignmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "assignmentID"))
	if err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid assignment id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) respondList(w http.ResponseWriter, items []service.Assignment) {
	out := make([]assignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a))
	}
	h.respond(w, http.StatusOK, map[string]any{"items": out})
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
	case errors.Is(err, service.ErrNotFound):
		h.problem(w, r, http.StatusNotFound, problems.TypeNotFound, "Assignment not found", err.Error())
	case errors.Is(err, service.ErrAlreadyTerminal), errors.Is(err, service.ErrInvalidTransition):
		h.problem(w, r, http.StatusConflict, problems.TypeConflict, "Lifecycle conflict", err.Error())
	default:
		h.logger.Error("assignment handler internal error", zap.Error(err))
		h.problem(w, r, http.StatusInternalServerError, problems.TypeInternal, "Internal error", "")
	}
}

func toResponse(a service.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:           a.ID.String(),
		AuditorID:    a.AuditorID,
		TenantID:     a.TenantID.String(),
		StartDate:    a.StartDate.Format(dateLayout),
		Status:       string(a.Status),
		AgreedAmount: a.AgreedAmount,
		Notes:        a.Notes,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
	if a.EndDate != nil {
		end := a.EndDate.Format(dateLayout)
		resp.EndDate = &end
	}
	if a.CompletedAt != nil {
		completed := a.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}
