package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// ClientFilters narrows client listings
type ClientFilters struct {
	Search             string
	Status             *domain.ClientStatus
	AssignedEmployeeID *uuid.UUID
}

var clientSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"status":    "status",
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *ClientRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// Update saves the client's descriptive fields. Status is written through UpdateStatus only.
func (r *ClientRepository) Update(ctx context.Context, tx *gorm.DB, client *domain.Client) error {
	return conn(r.db, tx).WithContext(ctx).Model(client).Select(
		"name", "phone", "email", "national_id", "source", "notes", "assigned_employee_id", "updated_at",
	).Updates(client).Error
}

// UpdateStatus sets the client's status unconditionally
func (r *ClientRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ClientStatus) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update client status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := conn(r.db, tx).WithContext(ctx).Delete(&domain.Client{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ClientRepository) List(ctx context.Context, page, pageSize int, filters *ClientFilters, sort SortConfig) ([]domain.Client, int64, error) {
	var clients []domain.Client
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Client{})
	if filters != nil {
		if filters.Search != "" {
			like := "%" + filters.Search + "%"
			query = query.Where("name LIKE ? OR phone LIKE ? OR email LIKE ?", like, like, like)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.AssignedEmployeeID != nil {
			query = query.Where("assigned_employee_id = ?", *filters.AssignedEmployeeID)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(BuildOrderClause(sort, clientSortFields, "created_at"))
	err := Paginate(query, page, pageSize).Find(&clients).Error
	return clients, total, err
}
