package handler

import (
	"net/http"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

type EmployeeHandler struct {
	employeeService *service.EmployeeService
	logger          *zap.Logger
}

func NewEmployeeHandler(employeeService *service.EmployeeService, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService, logger: logger}
}

// Me godoc
// @Summary Current employee
// @Tags Employees
// @Produce json
// @Success 200 {object} domain.EmployeeDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /me [get]
func (h *EmployeeHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	me, err := h.employeeService.Me(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "load current employee")
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Success 200 {array} domain.EmployeeDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /employees [get]
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	employees, err := h.employeeService.List(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list employees")
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

// GetByID godoc
// @Summary Get an employee
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} domain.EmployeeDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /employees/{id} [get]
func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	employee, err := h.employeeService.GetByID(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get employee")
		return
	}
	respondJSON(w, http.StatusOK, employee)
}

// Create godoc
// @Summary Create an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param request body domain.CreateEmployeeRequest true "Employee"
// @Success 201 {object} domain.EmployeeDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /employees [post]
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.CreateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	employee, err := h.employeeService.Create(r.Context(), actor, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create employee")
		return
	}
	respondJSON(w, http.StatusCreated, employee)
}

// Update godoc
// @Summary Update an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param request body domain.UpdateEmployeeRequest true "Employee"
// @Success 200 {object} domain.EmployeeDTO
// @Security BearerAuth
// @Router /employees/{id} [put]
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	employee, err := h.employeeService.Update(r.Context(), actor, id, &req)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update employee")
		return
	}
	respondJSON(w, http.StatusOK, employee)
}

// AssignProjects godoc
// @Summary Replace an employee's project assignments
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param request body domain.AssignProjectsRequest true "Projects"
// @Success 200 {object} domain.EmployeeDTO
// @Security BearerAuth
// @Router /employees/{id}/projects [put]
func (h *EmployeeHandler) AssignProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AssignProjectsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	employee, err := h.employeeService.AssignProjects(r.Context(), actor, id, req.ProjectIDs)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "assign projects")
		return
	}
	respondJSON(w, http.StatusOK, employee)
}
