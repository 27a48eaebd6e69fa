package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"go.uber.org/zap"
)

// EmployeeService manages employees and their project assignments. Admin-only, except Me.
type EmployeeService struct {
	repos  Repositories
	logger *zap.Logger
}

func NewEmployeeService(repos Repositories, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{repos: repos, logger: logger}
}

// Me describes the acting employee
func (s *EmployeeService) Me(ctx context.Context, actor *auth.Actor) (*domain.EmployeeDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	return s.get(ctx, actor.EmployeeID)
}

func (s *EmployeeService) GetByID(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.EmployeeDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *EmployeeService) get(ctx context.Context, id uuid.UUID) (*domain.EmployeeDTO, error) {
	employee, err := s.repos.Employees.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("get employee", "employee", id, err)
	}
	projectIDs, err := s.repos.Employees.ListProjectIDs(ctx, id)
	if err != nil {
		return nil, &DependencyError{Op: "get employee projects", Err: err}
	}
	dto := mapper.ToEmployeeDTO(employee)
	dto.ProjectIDs = projectIDs
	return &dto, nil
}

func (s *EmployeeService) List(ctx context.Context, actor *auth.Actor) ([]domain.EmployeeDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	employees, err := s.repos.Employees.List(ctx)
	if err != nil {
		return nil, &DependencyError{Op: "list employees", Err: err}
	}
	dtos := make([]domain.EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = mapper.ToEmployeeDTO(&employees[i])
	}
	return dtos, nil
}

func (s *EmployeeService) Create(ctx context.Context, actor *auth.Actor, req *domain.CreateEmployeeRequest) (*domain.EmployeeDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Role.IsValid() {
		return nil, NewValidationError("role", "must be admin or sales")
	}

	employee := &domain.Employee{
		AuthUserID: strings.TrimSpace(req.AuthUserID),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      strings.TrimSpace(req.Phone),
		Role:       req.Role,
		IsActive:   true,
	}
	if err := s.repos.Employees.Create(ctx, employee); err != nil {
		return nil, &DependencyError{Op: "create employee", Err: err}
	}

	s.logger.Info("employee created",
		zap.String("employee_id", employee.ID.String()),
		zap.String("role", string(employee.Role)),
		zap.String("created_by", actor.EmployeeID.String()))

	dto := mapper.ToEmployeeDTO(employee)
	return &dto, nil
}

func (s *EmployeeService) Update(ctx context.Context, actor *auth.Actor, id uuid.UUID, req *domain.UpdateEmployeeRequest) (*domain.EmployeeDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Role.IsValid() {
		return nil, NewValidationError("role", "must be admin or sales")
	}
	if id == actor.EmployeeID && (!req.IsActive || req.Role != domain.EmployeeRoleAdmin) {
		return nil, NewValidationError("role", "admins cannot demote or deactivate themselves")
	}

	employee, err := s.repos.Employees.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("update employee", "employee", id, err)
	}
	employee.Name = strings.TrimSpace(req.Name)
	employee.Phone = strings.TrimSpace(req.Phone)
	employee.Role = req.Role
	employee.IsActive = req.IsActive
	if err := s.repos.Employees.Update(ctx, employee); err != nil {
		return nil, &DependencyError{Op: "update employee", Err: err}
	}
	return s.get(ctx, id)
}

// AssignProjects replaces the employee's project assignments. Duplicate ids are ignored.
func (s *EmployeeService) AssignProjects(ctx context.Context, actor *auth.Actor, id uuid.UUID, projectIDs []uuid.UUID) (*domain.EmployeeDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.repos.Employees.GetByID(ctx, id); err != nil {
		return nil, translateStoreError("assign projects", "employee", id, err)
	}

	seen := make(map[uuid.UUID]struct{}, len(projectIDs))
	unique := make([]uuid.UUID, 0, len(projectIDs))
	for _, projectID := range projectIDs {
		if _, ok := seen[projectID]; ok {
			continue
		}
		seen[projectID] = struct{}{}
		unique = append(unique, projectID)
	}

	found, err := s.repos.Projects.CountByIDs(ctx, unique)
	if err != nil {
		return nil, &DependencyError{Op: "assign projects", Err: err}
	}
	if found != int64(len(unique)) {
		return nil, NewValidationError("projectIds", "one or more projects do not exist")
	}

	if err := s.repos.Employees.ReplaceProjects(ctx, id, unique); err != nil {
		return nil, &DependencyError{Op: "assign projects", Err: err}
	}

	s.logger.Info("employee projects assigned",
		zap.String("employee_id", id.String()),
		zap.Int("projects", len(unique)))
	return s.get(ctx, id)
}
