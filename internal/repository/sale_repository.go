package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// SaleFilters narrows sale listings and exports
type SaleFilters struct {
	ProjectID  *uuid.UUID
	EmployeeID *uuid.UUID
	ClientID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

var saleSortFields = map[string]string{
	"createdAt":      "created_at",
	"saleDate":       "sale_date",
	"priceBeforeTax": "price_before_tax",
}

func (r *SaleRepository) Create(ctx context.Context, tx *gorm.DB, sale *domain.Sale) error {
	return conn(r.db, tx).WithContext(ctx).Create(sale).Error
}

func (r *SaleRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Sale, error) {
	var sale domain.Sale
	if err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetWithDetails loads the sale with client, unit, project and employee for display
func (r *SaleRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Unit").
		Preload("Project").
		Preload("Employee").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *SaleRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := conn(r.db, tx).WithContext(ctx).Delete(&domain.Sale{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sale: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetContractKey records where the signed contract is stored
func (r *SaleRepository) SetContractKey(ctx context.Context, id uuid.UUID, key string) error {
	result := r.db.WithContext(ctx).Model(&domain.Sale{}).Where("id = ?", id).Update("contract_key", key)
	if result.Error != nil {
		return fmt.Errorf("failed to update sale contract: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SaleRepository) applyFilters(query *gorm.DB, filters *SaleFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.ProjectID != nil {
		query = query.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filters.EmployeeID)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.From != nil {
		query = query.Where("sale_date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("sale_date <= ?", *filters.To)
	}
	return query
}

func (r *SaleRepository) List(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *SaleFilters, sort SortConfig) ([]domain.Sale, int64, error) {
	var sales []domain.Sale
	var total int64

	query := ApplyProjectScope(r.db.WithContext(ctx).Model(&domain.Sale{}), actor, "project_id")
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Client").Preload("Unit").Preload("Project").Preload("Employee").
		Order(BuildOrderClause(sort, saleSortFields, "created_at"))
	err := Paginate(query, page, pageSize).Find(&sales).Error
	return sales, total, err
}

// ListForExport returns every matching sale without pagination, oldest sale date first
func (r *SaleRepository) ListForExport(ctx context.Context, actor *auth.Actor, filters *SaleFilters) ([]domain.Sale, error) {
	var sales []domain.Sale
	query := ApplyProjectScope(r.db.WithContext(ctx).Model(&domain.Sale{}), actor, "project_id")
	query = r.applyFilters(query, filters)
	err := query.Preload("Client").Preload("Unit").Preload("Project").Preload("Employee").
		Order("sale_date ASC").
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Project").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Sale{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

func (r *SaleRepository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Sale{}).Where("unit_id = ?", unitID).Count(&count).Error
	return count, err
}
