package handler

import (
	"net/http"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, logger: logger}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name, phone or email"
// @Param status query string false "Filter by status" Enums(new, lead, interested, visited, reserved, converted)
// @Param assignedEmployeeId query string false "Filter by assigned employee"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, name, status)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &repository.ClientFilters{Search: r.URL.Query().Get("search")}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ClientStatus(status)
		filters.Status = &s
	}
	var ok bool
	if filters.AssignedEmployeeID, ok = queryUUID(w, r, "assignedEmployeeId"); !ok {
		return
	}

	page, pageSize := pageParams(r)
	result, err := h.clientService.List(r.Context(), page, pageSize, filters, sortParams(r))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list clients")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create a client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Phone number already registered"
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create client")
		return
	}
	w.Header().Set("Location", "/api/v1/clients/"+client.ID.String())
	respondJSON(w, http.StatusCreated, client)
}

// GetByID godoc
// @Summary Get a client
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} domain.ClientDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Update godoc
// @Summary Update a client
// @Description Status may only be changed between new, lead, interested and visited.
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body domain.UpdateClientRequest true "Client"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Delete godoc
// @Summary Delete a client
// @Description Admin only. Clients with reservations or sales cannot be deleted.
// @Tags Clients
// @Param id path string true "Client ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Timeline godoc
// @Summary Client timeline
// @Description The client with their follow-ups, reservations and sales.
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} domain.ClientTimelineDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/timeline [get]
func (h *ClientHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	timeline, err := h.clientService.Timeline(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "load client timeline")
		return
	}
	respondJSON(w, http.StatusOK, timeline)
}
