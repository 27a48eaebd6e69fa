package handler

import (
	"net/http"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

// CatalogHandler serves projects, their models and units
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ============================================================================
// Projects
// ============================================================================

// ListProjects godoc
// @Summary List projects
// @Description Admins see every project, sales employees their assigned projects.
// @Tags Catalog
// @Produce json
// @Success 200 {array} domain.ProjectDTO
// @Security BearerAuth
// @Router /projects [get]
func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projects, err := h.catalog.ListProjects(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list projects")
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// GetProject godoc
// @Summary Get a project
// @Tags Catalog
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} domain.ProjectDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /projects/{id} [get]
func (h *CatalogHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.catalog.GetProject(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// CreateProject godoc
// @Summary Create a project
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project"
// @Success 201 {object} domain.ProjectDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /projects [post]
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := h.catalog.CreateProject(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create project")
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

// UpdateProject godoc
// @Summary Update a project
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.UpdateProjectRequest true "Project"
// @Success 200 {object} domain.ProjectDTO
// @Security BearerAuth
// @Router /projects/{id} [put]
func (h *CatalogHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := h.catalog.UpdateProject(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// DeleteProject godoc
// @Summary Delete a project
// @Tags Catalog
// @Param id path string true "Project ID"
// @Success 204
// @Failure 409 {object} domain.APIError "Project still has models or units"
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *CatalogHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProject(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Project models
// ============================================================================

// ListModels godoc
// @Summary List a project's unit models
// @Tags Catalog
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} domain.ProjectModelDTO
// @Security BearerAuth
// @Router /projects/{id}/models [get]
func (h *CatalogHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projectID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	models, err := h.catalog.ListModels(r.Context(), actor, projectID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list project models")
		return
	}
	respondJSON(w, http.StatusOK, models)
}

// CreateModel godoc
// @Summary Add a unit model to a project
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.ProjectModelRequest true "Model"
// @Success 201 {object} domain.ProjectModelDTO
// @Security BearerAuth
// @Router /projects/{id}/models [post]
func (h *CatalogHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projectID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ProjectModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	model, err := h.catalog.CreateModel(r.Context(), actor, projectID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create project model")
		return
	}
	respondJSON(w, http.StatusCreated, model)
}

// UpdateModel godoc
// @Summary Update a unit model
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param modelId path string true "Model ID"
// @Param request body domain.ProjectModelRequest true "Model"
// @Success 200 {object} domain.ProjectModelDTO
// @Security BearerAuth
// @Router /projects/{id}/models/{modelId} [put]
func (h *CatalogHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projectID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	modelID, ok := urlUUID(w, r, "modelId")
	if !ok {
		return
	}
	var req domain.ProjectModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	model, err := h.catalog.UpdateModel(r.Context(), actor, projectID, modelID, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update project model")
		return
	}
	respondJSON(w, http.StatusOK, model)
}

// DeleteModel godoc
// @Summary Delete a unit model
// @Tags Catalog
// @Param id path string true "Project ID"
// @Param modelId path string true "Model ID"
// @Success 204
// @Failure 409 {object} domain.APIError "Units still use the model"
// @Security BearerAuth
// @Router /projects/{id}/models/{modelId} [delete]
func (h *CatalogHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	projectID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	modelID, ok := urlUUID(w, r, "modelId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteModel(r.Context(), actor, projectID, modelID); err != nil {
		respondServiceError(w, r, h.logger, err, "delete project model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Units
// ============================================================================

// ListUnits godoc
// @Summary List units
// @Tags Catalog
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param projectId query string false "Filter by project"
// @Param modelId query string false "Filter by model"
// @Param status query string false "Filter by status" Enums(available, reserved, sold)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.UnitDTO}
// @Security BearerAuth
// @Router /units [get]
func (h *CatalogHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filters := &repository.UnitFilters{}
	if filters.ProjectID, ok = queryUUID(w, r, "projectId"); !ok {
		return
	}
	if filters.ModelID, ok = queryUUID(w, r, "modelId"); !ok {
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.UnitStatus(status)
		filters.Status = &s
	}

	page, pageSize := pageParams(r)
	result, err := h.catalog.ListUnits(r.Context(), actor, page, pageSize, filters)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list units")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUnit godoc
// @Summary Get a unit
// @Tags Catalog
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} domain.UnitDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /units/{id} [get]
func (h *CatalogHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	unit, err := h.catalog.GetUnit(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get unit")
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

// CreateUnit godoc
// @Summary Create a unit
// @Description New units are available. Price and area default to the model's.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body domain.CreateUnitRequest true "Unit"
// @Success 201 {object} domain.UnitDTO
// @Security BearerAuth
// @Router /units [post]
func (h *CatalogHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.CreateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unit, err := h.catalog.CreateUnit(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create unit")
		return
	}
	respondJSON(w, http.StatusCreated, unit)
}

// UpdateUnit godoc
// @Summary Update a unit
// @Description Unit status is managed by reservations and sales and cannot be changed here.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Unit ID"
// @Param request body domain.UpdateUnitRequest true "Unit"
// @Success 200 {object} domain.UnitDTO
// @Security BearerAuth
// @Router /units/{id} [put]
func (h *CatalogHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unit, err := h.catalog.UpdateUnit(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update unit")
		return
	}
	respondJSON(w, http.StatusOK, unit)
}

// DeleteUnit godoc
// @Summary Delete a unit
// @Tags Catalog
// @Param id path string true "Unit ID"
// @Success 204
// @Failure 409 {object} domain.APIError "Unit has reservations or sales"
// @Security BearerAuth
// @Router /units/{id} [delete]
func (h *CatalogHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteUnit(r.Context(), actor, id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete unit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
