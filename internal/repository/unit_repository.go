package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

type UnitRepository struct {
	db *gorm.DB
}

func NewUnitRepository(db *gorm.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// UnitFilters narrows unit listings
type UnitFilters struct {
	ProjectID *uuid.UUID
	ModelID   *uuid.UUID
	Status    *domain.UnitStatus
}

func (r *UnitRepository) Create(ctx context.Context, unit *domain.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *UnitRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Unit, error) {
	var unit domain.Unit
	if err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetWithDetails loads the unit with its project and model for display
func (r *UnitRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("ProjectModel").
		Where("id = ?", id).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// Update saves descriptive fields. Status is changed through CompareAndSwapStatus only.
func (r *UnitRepository) Update(ctx context.Context, unit *domain.Unit) error {
	return r.db.WithContext(ctx).Model(unit).
		Select("model_id", "code", "building", "floor", "area", "price", "updated_at").
		Updates(unit).Error
}

// CompareAndSwapStatus moves the unit from one status to another. It returns ErrStatusChanged
// if the unit is no longer in the expected status and gorm.ErrRecordNotFound if it is gone.
func (r *UnitRepository) CompareAndSwapStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to domain.UnitStatus) error {
	db := conn(r.db, tx).WithContext(ctx)
	result := db.Model(&domain.Unit{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to update unit status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrChanged(db, &domain.Unit{}, id)
	}
	return nil
}

func (r *UnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Unit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UnitRepository) List(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *UnitFilters) ([]domain.Unit, int64, error) {
	var units []domain.Unit
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Unit{})
	query = ApplyProjectScope(query, actor, "project_id")
	if filters != nil {
		if filters.ProjectID != nil {
			query = query.Where("project_id = ?", *filters.ProjectID)
		}
		if filters.ModelID != nil {
			query = query.Where("model_id = ?", *filters.ModelID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Preload("Project").Preload("ProjectModel").Order("code ASC"), page, pageSize).Find(&units).Error
	return units, total, err
}

func (r *UnitRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Unit{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}

func (r *UnitRepository) CountByModel(ctx context.Context, modelID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Unit{}).Where("model_id = ?", modelID).Count(&count).Error
	return count, err
}

// missingOrChanged tells a vanished row apart from one whose status moved on
func missingOrChanged(db *gorm.DB, model interface{}, id uuid.UUID) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStatusChanged
}
