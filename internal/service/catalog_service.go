package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"go.uber.org/zap"
)

// CatalogService manages projects, project models and units. Writes are admin-only; reads are
// limited to the actor's projects. Unit status is never written here.
type CatalogService struct {
	repos  Repositories
	logger *zap.Logger
}

func NewCatalogService(repos Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{repos: repos, logger: logger}
}

// ============================================================================
// Projects
// ============================================================================

func (s *CatalogService) ListProjects(ctx context.Context, actor *auth.Actor) ([]domain.ProjectDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	projects, err := s.repos.Projects.List(ctx, actor)
	if err != nil {
		return nil, &DependencyError{Op: "list projects", Err: err}
	}
	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = mapper.ToProjectDTO(&projects[i])
	}
	return dtos, nil
}

func (s *CatalogService) GetProject(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.ProjectDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if !actor.CanAccessProject(id) {
		return nil, ErrPermissionDenied
	}
	project, err := s.repos.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("get project", "project", id, err)
	}
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *CatalogService) CreateProject(ctx context.Context, actor *auth.Actor, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	project := &domain.Project{
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repos.Projects.Create(ctx, project); err != nil {
		return nil, &DependencyError{Op: "create project", Err: err}
	}

	s.logger.Info("project created", zap.String("project_id", project.ID.String()), zap.String("name", project.Name))
	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *CatalogService) UpdateProject(ctx context.Context, actor *auth.Actor, id uuid.UUID, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	project, err := s.repos.Projects.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("update project", "project", id, err)
	}

	project.Name = strings.TrimSpace(req.Name)
	project.Location = strings.TrimSpace(req.Location)
	project.Description = req.Description
	project.IsActive = req.IsActive
	if err := s.repos.Projects.Update(ctx, project); err != nil {
		return nil, &DependencyError{Op: "update project", Err: err}
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// DeleteProject removes an empty project. Projects that still have models or units are kept.
func (s *CatalogService) DeleteProject(ctx context.Context, actor *auth.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repos.Projects.GetByID(ctx, id); err != nil {
		return translateStoreError("delete project", "project", id, err)
	}

	units, err := s.repos.Units.CountByProject(ctx, id)
	if err != nil {
		return &DependencyError{Op: "delete project", Err: err}
	}
	models, err := s.repos.Models.CountByProject(ctx, id)
	if err != nil {
		return &DependencyError{Op: "delete project", Err: err}
	}
	if units > 0 || models > 0 {
		return ErrHasDependents
	}

	if err := s.repos.Projects.Delete(ctx, id); err != nil {
		return translateStoreError("delete project", "project", id, err)
	}
	s.logger.Info("project deleted", zap.String("project_id", id.String()))
	return nil
}

// ============================================================================
// Project models
// ============================================================================

func (s *CatalogService) ListModels(ctx context.Context, actor *auth.Actor, projectID uuid.UUID) ([]domain.ProjectModelDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if !actor.CanAccessProject(projectID) {
		return nil, ErrPermissionDenied
	}
	models, err := s.repos.Models.ListByProject(ctx, projectID)
	if err != nil {
		return nil, &DependencyError{Op: "list project models", Err: err}
	}
	dtos := make([]domain.ProjectModelDTO, len(models))
	for i := range models {
		dtos[i] = mapper.ToProjectModelDTO(&models[i])
	}
	return dtos, nil
}

func (s *CatalogService) CreateModel(ctx context.Context, actor *auth.Actor, projectID uuid.UUID, req *domain.ProjectModelRequest) (*domain.ProjectModelDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.repos.Projects.GetByID(ctx, projectID); err != nil {
		return nil, translateStoreError("create project model", "project", projectID, err)
	}

	verr := &ValidationError{}
	basePrice := parseAmount(verr, "basePrice", string(req.BasePrice), false)
	if verr.HasErrors() {
		return nil, verr
	}

	model := &domain.ProjectModel{
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
		Area:      req.Area,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		BasePrice: basePrice,
	}
	if err := s.repos.Models.Create(ctx, model); err != nil {
		return nil, &DependencyError{Op: "create project model", Err: err}
	}
	dto := mapper.ToProjectModelDTO(model)
	return &dto, nil
}

func (s *CatalogService) UpdateModel(ctx context.Context, actor *auth.Actor, projectID, modelID uuid.UUID, req *domain.ProjectModelRequest) (*domain.ProjectModelDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	model, err := s.modelInProject(ctx, projectID, modelID)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	basePrice := parseAmount(verr, "basePrice", string(req.BasePrice), false)
	if verr.HasErrors() {
		return nil, verr
	}

	model.Name = strings.TrimSpace(req.Name)
	model.Area = req.Area
	model.Bedrooms = req.Bedrooms
	model.Bathrooms = req.Bathrooms
	model.BasePrice = basePrice
	if err := s.repos.Models.Update(ctx, model); err != nil {
		return nil, &DependencyError{Op: "update project model", Err: err}
	}
	dto := mapper.ToProjectModelDTO(model)
	return &dto, nil
}

// DeleteModel removes a model no unit refers to
func (s *CatalogService) DeleteModel(ctx context.Context, actor *auth.Actor, projectID, modelID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.modelInProject(ctx, projectID, modelID); err != nil {
		return err
	}

	units, err := s.repos.Units.CountByModel(ctx, modelID)
	if err != nil {
		return &DependencyError{Op: "delete project model", Err: err}
	}
	if units > 0 {
		return ErrHasDependents
	}
	if err := s.repos.Models.Delete(ctx, modelID); err != nil {
		return translateStoreError("delete project model", "project model", modelID, err)
	}
	return nil
}

func (s *CatalogService) modelInProject(ctx context.Context, projectID, modelID uuid.UUID) (*domain.ProjectModel, error) {
	model, err := s.repos.Models.GetByID(ctx, modelID)
	if err != nil {
		return nil, translateStoreError("get project model", "project model", modelID, err)
	}
	if model.ProjectID != projectID {
		return nil, &NotFoundError{Entity: "project model", ID: modelID}
	}
	return model, nil
}

// ============================================================================
// Units
// ============================================================================

func (s *CatalogService) ListUnits(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *repository.UnitFilters) (*domain.PaginatedResponse, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if filters != nil && filters.Status != nil && !filters.Status.IsValid() {
		return nil, NewValidationError("status", "unknown unit status")
	}

	page, pageSize = repository.NormalizePage(page, pageSize)
	units, total, err := s.repos.Units.List(ctx, actor, page, pageSize, filters)
	if err != nil {
		return nil, &DependencyError{Op: "list units", Err: err}
	}
	dtos := make([]domain.UnitDTO, len(units))
	for i := range units {
		dtos[i] = mapper.ToUnitDTO(&units[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *CatalogService) GetUnit(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.UnitDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	unit, err := s.repos.Units.GetWithDetails(ctx, id)
	if err != nil {
		return nil, translateStoreError("get unit", "unit", id, err)
	}
	if !actor.CanAccessProject(unit.ProjectID) {
		return nil, ErrPermissionDenied
	}
	dto := mapper.ToUnitDTO(unit)
	return &dto, nil
}

// CreateUnit adds an available unit. Without a price the model's base price is used.
func (s *CatalogService) CreateUnit(ctx context.Context, actor *auth.Actor, req *domain.CreateUnitRequest) (*domain.UnitDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	project, err := s.repos.Projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, translateStoreError("create unit", "project", req.ProjectID, err)
	}

	verr := &ValidationError{}
	price := parseAmount(verr, "price", string(req.Price), false)
	if verr.HasErrors() {
		return nil, verr
	}

	var model *domain.ProjectModel
	if req.ModelID != nil && *req.ModelID != uuid.Nil {
		model, err = s.modelInProject(ctx, project.ID, *req.ModelID)
		if err != nil {
			var notFound *NotFoundError
			if errors.As(err, &notFound) {
				return nil, NewValidationError("modelId", "model does not belong to the project")
			}
			return nil, err
		}
		if strings.TrimSpace(string(req.Price)) == "" {
			price = model.BasePrice
		}
	}

	unit := &domain.Unit{
		ProjectID: project.ID,
		Code:      strings.TrimSpace(req.Code),
		Building:  strings.TrimSpace(req.Building),
		Floor:     req.Floor,
		Area:      req.Area,
		Price:     price,
		Status:    domain.UnitStatusAvailable,
	}
	if model != nil {
		unit.ModelID = &model.ID
		if unit.Area == 0 {
			unit.Area = model.Area
		}
	}
	if err := s.repos.Units.Create(ctx, unit); err != nil {
		return nil, &DependencyError{Op: "create unit", Err: err}
	}

	s.logger.Info("unit created",
		zap.String("unit_id", unit.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.String("code", unit.Code))

	unit.Project = project
	unit.ProjectModel = model
	dto := mapper.ToUnitDTO(unit)
	return &dto, nil
}

func (s *CatalogService) UpdateUnit(ctx context.Context, actor *auth.Actor, id uuid.UUID, req *domain.UpdateUnitRequest) (*domain.UnitDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	unit, err := s.repos.Units.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateStoreError("update unit", "unit", id, err)
	}

	verr := &ValidationError{}
	price := parseAmount(verr, "price", string(req.Price), false)
	if verr.HasErrors() {
		return nil, verr
	}
	if strings.TrimSpace(string(req.Price)) == "" {
		price = unit.Price
	}

	unit.ModelID = nil
	if req.ModelID != nil && *req.ModelID != uuid.Nil {
		if _, err := s.modelInProject(ctx, unit.ProjectID, *req.ModelID); err != nil {
			return nil, NewValidationError("modelId", "model does not belong to the project")
		}
		unit.ModelID = req.ModelID
	}
	unit.Code = strings.TrimSpace(req.Code)
	unit.Building = strings.TrimSpace(req.Building)
	unit.Floor = req.Floor
	unit.Area = req.Area
	unit.Price = price

	if err := s.repos.Units.Update(ctx, unit); err != nil {
		return nil, &DependencyError{Op: "update unit", Err: err}
	}

	updated, err := s.repos.Units.GetWithDetails(ctx, id)
	if err != nil {
		return nil, translateStoreError("update unit", "unit", id, err)
	}
	dto := mapper.ToUnitDTO(updated)
	return &dto, nil
}

// DeleteUnit removes a unit that was never reserved or sold
func (s *CatalogService) DeleteUnit(ctx context.Context, actor *auth.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repos.Units.GetByID(ctx, nil, id); err != nil {
		return translateStoreError("delete unit", "unit", id, err)
	}

	reservations, err := s.repos.Reservations.CountByUnit(ctx, id)
	if err != nil {
		return &DependencyError{Op: "delete unit", Err: err}
	}
	sales, err := s.repos.Sales.CountByUnit(ctx, id)
	if err != nil {
		return &DependencyError{Op: "delete unit", Err: err}
	}
	if reservations > 0 || sales > 0 {
		return ErrHasDependents
	}

	if err := s.repos.Units.Delete(ctx, id); err != nil {
		return translateStoreError("delete unit", "unit", id, err)
	}
	s.logger.Info("unit deleted", zap.String("unit_id", id.String()))
	return nil
}

func requireAdmin(actor *auth.Actor) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}
