package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Model(project).
		Select("name", "location", "description", "is_active", "updated_at").
		Updates(project).Error
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Project{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns the projects visible to the actor, by name
func (r *ProjectRepository) List(ctx context.Context, actor *auth.Actor) ([]domain.Project, error) {
	var projects []domain.Project
	query := ApplyProjectScope(r.db.WithContext(ctx).Model(&domain.Project{}), actor, "id")
	err := query.Order("name ASC").Find(&projects).Error
	return projects, err
}

// CountByIDs counts how many of the given project ids exist
func (r *ProjectRepository) CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Project{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

type ProjectModelRepository struct {
	db *gorm.DB
}

func NewProjectModelRepository(db *gorm.DB) *ProjectModelRepository {
	return &ProjectModelRepository{db: db}
}

func (r *ProjectModelRepository) Create(ctx context.Context, model *domain.ProjectModel) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *ProjectModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectModel, error) {
	var model domain.ProjectModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *ProjectModelRepository) Update(ctx context.Context, model *domain.ProjectModel) error {
	return r.db.WithContext(ctx).Model(model).
		Select("name", "area", "bedrooms", "bathrooms", "base_price", "updated_at").
		Updates(model).Error
}

func (r *ProjectModelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.ProjectModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProjectModelRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.ProjectModel, error) {
	var models []domain.ProjectModel
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("name ASC").Find(&models).Error
	return models, err
}

func (r *ProjectModelRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProjectModel{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
