package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/evanildobarros/isotek-qms/domains/commission/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	"github.com/evanildobarros/isotek-qms/platform/go/problems"
)

// Handler exposes commission policy and auditor profile administration.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("commission service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// PolicyRoutes mounts the global policy endpoints on r.
func (h *Handler) PolicyRoutes(r chi.Router) {
	r.Get("/", h.getPolicy)
	r.Put("/", h.replacePolicy)
}

// ProfileRoutes mounts the per-auditor profile endpoints on r.
func (h *Handler) ProfileRoutes(r chi.Router) {
	r.Get("/{auditorID}/commission-profile", h.getProfile)
	r.Put("/{auditorID}/commission-profile", h.putProfile)
}

type policyResponse struct {
	Rates     map[string]float64 `json:"rates"`
	Version   int64              `json:"version"`
	UpdatedBy string             `json:"updatedBy"`
	UpdatedAt string             `json:"updatedAt"`
}

type replacePolicyRequest struct {
	Rates map[string]float64 `json:"rates"`
}

type profileResponse struct {
	AuditorID         string   `json:"auditorId"`
	Tier              *string  `json:"tier,omitempty"`
	EffectiveTier     string   `json:"effectiveTier"`
	CustomRate        *float64 `json:"customRate,omitempty"`
	GamificationLevel int      `json:"gamificationLevel"`
}

type putProfileRequest struct {
	Tier              *string  `json:"tier,omitempty"`
	CustomRate        *float64 `json:"customRate,omitempty"`
	GamificationLevel *int     `json:"gamificationLevel,omitempty"`
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.svc.Policy(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.problem(w, r, http.StatusNotFound, problems.TypeNotFound, "No commission policy configured", "tier fallback rates apply")
			return
		}
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *Handler) replacePolicy(w http.ResponseWriter, r *http.Request) {
	var req replacePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}

	rates := make(map[service.Tier]float64, len(req.Rates))
	for name, rate := range req.Rates {
		tier, err := service.ParseTier(name)
		if err != nil {
			h.problemForError(w, r, err)
			return
		}
		rates[tier] = rate
	}

	var editor string
	if creds, ok := platformauth.UserFromContext(r.Context()); ok {
		editor = creds.ID
	}

	policy, err := h.svc.ReplacePolicy(r.Context(), rates, editor)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toPolicyResponse(policy))
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), chi.URLParam(r, "auditorID"))
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	var req putProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.problem(w, r, http.StatusBadRequest, problems.TypeValidation, "Invalid request body", err.Error())
		return
	}

	input := service.ProfileInput{
		CustomRate:        req.CustomRate,
		GamificationLevel: req.GamificationLevel,
	}
	if req.Tier != nil {
		tier, err := service.ParseTier(*req.Tier)
		if err != nil {
			h.problemForError(w, r, err)
			return
		}
		input.Tier = &tier
	}

	profile, err := h.svc.UpsertProfile(r.Context(), chi.URLParam(r, "auditorID"), input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, toProfileResponse(profile))
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
	case errors.Is(err, service.ErrNotFound):
		h.problem(w, r, http.StatusNotFound, problems.TypeNotFound, "Not found", err.Error())
	case errors.Is(err, service.ErrComputation):
		h.problem(w, r, http.StatusInternalServerError, problems.TypeComputation, "Rate resolution failed", err.Error())
	default:
		h.logger.Error("commission handler internal error", zap.Error(err))
		h.problem(w, r, http.StatusInternalServerError, problems.TypeInternal, "Internal error", "")
	}
}

func toPolicyResponse(p service.GlobalPolicy) policyResponse {
	rates := make(map[string]float64, len(p.Rates))
	for tier, rate := range p.Rates {
		rates[string(tier)] = rate
	}
	return policyResponse{
		Rates:     rates,
		Version:   p.Version,
		UpdatedBy: p.UpdatedBy,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func toProfileResponse(p service.Profile) profileResponse {
	resp := profileResponse{
		AuditorID:         p.AuditorID,
		EffectiveTier:     string(p.EffectiveTier()),
		CustomRate:        p.CustomRate,
		GamificationLevel: p.GamificationLevel,
	}
	if p.Tier != nil {
		tier := string(*p.Tier)
		resp.Tier = &tier
	}
	return resp
}
