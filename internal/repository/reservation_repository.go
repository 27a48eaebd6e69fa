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

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ReservationFilters narrows reservation listings
type ReservationFilters struct {
	ClientID  *uuid.UUID
	UnitID    *uuid.UUID
	ProjectID *uuid.UUID
	Status    *domain.ReservationStatus
}

func (r *ReservationRepository) Create(ctx context.Context, tx *gorm.DB, reservation *domain.Reservation) error {
	return conn(r.db, tx).WithContext(ctx).Create(reservation).Error
}

func (r *ReservationRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Reservation, error) {
	var reservation domain.Reservation
	if err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Delete removes the reservation row
func (r *ReservationRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := conn(r.db, tx).WithContext(ctx).Delete(&domain.Reservation{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete reservation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompareAndSwapStatus moves the reservation from one status to another, applying extra column
// updates in the same statement.
func (r *ReservationRepository) CompareAndSwapStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to domain.ReservationStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	db := conn(r.db, tx).WithContext(ctx)
	result := db.Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update reservation status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrChanged(db, &domain.Reservation{}, id)
	}
	return nil
}

// CountByClient counts the client's reservations. With no statuses given, every reservation counts.
func (r *ReservationRepository) CountByClient(ctx context.Context, tx *gorm.DB, clientID uuid.UUID, statuses ...domain.ReservationStatus) (int64, error) {
	var count int64
	query := conn(r.db, tx).WithContext(ctx).Model(&domain.Reservation{}).Where("client_id = ?", clientID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *ReservationRepository) CountByUnit(ctx context.Context, unitID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Reservation{}).Where("unit_id = ?", unitID).Count(&count).Error
	return count, err
}

// CountActiveByUnit counts the unit's active reservations
func (r *ReservationRepository) CountActiveByUnit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (int64, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("unit_id = ? AND status = ?", unitID, domain.ReservationStatusActive).
		Count(&count).Error
	return count, err
}

// ListByClientUnit returns the pair's reservations in the given status, newest first
func (r *ReservationRepository) ListByClientUnit(ctx context.Context, tx *gorm.DB, clientID, unitID uuid.UUID, status domain.ReservationStatus) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	err := conn(r.db, tx).WithContext(ctx).
		Where("client_id = ? AND unit_id = ? AND status = ?", clientID, unitID, status).
		Order("created_at DESC").
		Find(&reservations).Error
	return reservations, err
}

// FindLatestActiveByClient returns the client's newest active reservation
func (r *ReservationRepository) FindLatestActiveByClient(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := conn(r.db, tx).WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, domain.ReservationStatusActive).
		Order("created_at DESC").
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// StampFollowUp records the latest follow-up on the reservation
func (r *ReservationRepository) StampFollowUp(ctx context.Context, tx *gorm.DB, id, employeeID uuid.UUID, at time.Time, details string) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"follow_employee_id": employeeID,
			"last_follow_up_at":  at,
			"follow_up_details":  details,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to stamp follow-up on reservation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReservationRepository) List(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *ReservationFilters) ([]domain.Reservation, int64, error) {
	var reservations []domain.Reservation
	var total int64

	query := ApplyProjectScope(r.db.WithContext(ctx).Model(&domain.Reservation{}), actor, "project_id")
	if filters != nil {
		if filters.ClientID != nil {
			query = query.Where("client_id = ?", *filters.ClientID)
		}
		if filters.UnitID != nil {
			query = query.Where("unit_id = ?", *filters.UnitID)
		}
		if filters.ProjectID != nil {
			query = query.Where("project_id = ?", *filters.ProjectID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Client").Preload("Unit").Order("created_at DESC")
	err := Paginate(query, page, pageSize).Find(&reservations).Error
	return reservations, total, err
}

// ListByClient returns every reservation of the client, newest first
func (r *ReservationRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&reservations).Error
	return reservations, err
}
