package handler

import (
	"net/http"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

// TransitionHandler exposes the transition journal to admins
type TransitionHandler struct {
	transitions *service.TransitionService
	logger      *zap.Logger
}

func NewTransitionHandler(transitions *service.TransitionService, logger *zap.Logger) *TransitionHandler {
	return &TransitionHandler{transitions: transitions, logger: logger}
}

// List godoc
// @Summary List journaled transitions
// @Tags Transitions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(pending, completed, failed, retried)
// @Param operation query string false "Filter by operation"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.TransitionLogDTO}
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /transitions [get]
func (h *TransitionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var (
		status    *domain.TransitionStatus
		operation *domain.TransitionOperation
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.TransitionStatus(raw)
		status = &s
	}
	if raw := r.URL.Query().Get("operation"); raw != "" {
		op := domain.TransitionOperation(raw)
		operation = &op
	}

	page, pageSize := pageParams(r)
	result, err := h.transitions.List(r.Context(), actor, page, pageSize, status, operation)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list transitions")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a journaled transition
// @Tags Transitions
// @Produce json
// @Param id path string true "Transition ID"
// @Success 200 {object} domain.TransitionLogDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /transitions/{id} [get]
func (h *TransitionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.transitions.GetByID(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get transition")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// Retry godoc
// @Summary Retry a failed transition
// @Description Replays the failed operation with its original input. The new attempt is journaled with retryOfId set.
// @Tags Transitions
// @Produce json
// @Param id path string true "Transition ID"
// @Success 200 {object} domain.TransitionLogDTO
// @Failure 409 {object} domain.APIError "Transition is not in a failed state"
// @Security BearerAuth
// @Router /transitions/{id}/retry [post]
func (h *TransitionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.transitions.Retry(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "retry transition")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
