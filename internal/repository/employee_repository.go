package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	var employee domain.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// GetByAuthUserID finds the employee linked to an auth provider account
func (r *EmployeeRepository) GetByAuthUserID(ctx context.Context, authUserID string) (*domain.Employee, error) {
	var employee domain.Employee
	if err := r.db.WithContext(ctx).Where("auth_user_id = ?", authUserID).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *EmployeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	return r.db.WithContext(ctx).Model(employee).
		Select("name", "phone", "role", "is_active", "updated_at").
		Updates(employee).Error
}

func (r *EmployeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).Order("name ASC").Find(&employees).Error
	return employees, err
}

// ListProjectIDs returns the projects the employee is assigned to
func (r *EmployeeRepository) ListProjectIDs(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.EmployeeProject{}).
		Where("employee_id = ?", employeeID).
		Pluck("project_id", &ids).Error
	return ids, err
}

// ReplaceProjects sets the employee's project assignments to exactly projectIDs
func (r *EmployeeRepository) ReplaceProjects(ctx context.Context, employeeID uuid.UUID, projectIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).Delete(&domain.EmployeeProject{}).Error; err != nil {
			return err
		}
		if len(projectIDs) == 0 {
			return nil
		}
		rows := make([]domain.EmployeeProject, 0, len(projectIDs))
		for _, projectID := range projectIDs {
			rows = append(rows, domain.EmployeeProject{EmployeeID: employeeID, ProjectID: projectID})
		}
		return tx.Create(&rows).Error
	})
}
