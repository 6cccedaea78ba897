package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	assignments "github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	"github.com/evanildobarros/isotek-qms/domains/scope/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	"github.com/evanildobarros/isotek-qms/platform/go/problems"
)

// Handler exposes engagement scope entry/exit for auditors. The effective
// tenant returned here is the only tenant id downstream queries may use while a
// scope is active.
type Handler struct {
	guard  *service.Guard
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(guard *service.Guard, logger *zap.Logger) *Handler {
	if guard == nil {
		panic("scope guard is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{guard: guard, logger: logger}
}

// Routes mounts the scope endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.current)
	r.Post("/enter", h.enter)
	r.Post("/exit", h.exit)
}

type enterRequest struct {
	AssignmentID string `json:"assignmentId"`
}

type scopeResponse struct {
	Active         bool    `json:"active"`
	TenantID       *string `json:"tenantId,omitempty"`
	AssignmentID   *string `json:"assignmentId,omitempty"`
	InvalidatedWhy *string `json:"invalidatedReason,omitempty"`
}

func (h *Handler) enter(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req enterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}
	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid assignment id", err.Error())
		return
	}

	tenantID, err := h.guard.EnterScope(r.Context(), actor, assignmentID)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}

	tenant := tenantID.String()
	assignment := assignmentID.String()
	h.respond(w, http.StatusOK, scopeResponse{Active: true, TenantID: &tenant, AssignmentID: &assignment})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	current, err := h.guard.CurrentScope(r.Context(), actor)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}

	resp := scopeResponse{Active: current.TenantID != nil}
	if current.TenantID != nil {
		tenant := current.TenantID.String()
		assignment := current.AssignmentID.String()
		resp.TenantID = &tenant
		resp.AssignmentID = &assignment
	}
	if current.Invalidated != nil {
		reason := string(*current.Invalidated)
		resp.InvalidatedWhy = &reason
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) exit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.guard.ExitScope(r.Context(), actor); err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, scopeResponse{Active: false})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok || creds == nil {
		h.problem(w, r, http.StatusUnauthorized, problems.TypeAuthorization, "Unauthorized", "authentication is required")
		return "", false
	}
	return creds.ID, true
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
	var authz *service.AuthzError
	switch {
	case errors.As(err, &authz):
		// The reason travels in the body so the UI can explain the denial.
		h.problem(w, r, http.StatusForbidden, problems.TypeAuthorization, "Scope entry denied", string(authz.Reason))
	case errors.Is(err, assignments.ErrNotFound):
		h.problem(w, r, http.StatusNotFound, problems.TypeNotFound, "Assignment not found", err.Error())
	default:
		h.logger.Error("scope handler internal error", zap.Error(err))
		h.problem(w, r, http.StatusInternalServerError, problems.TypeInternal, "Internal error", "")
	}
}
