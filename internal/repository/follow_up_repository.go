package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

// FollowUpRepository appends and reads follow-ups. They are never edited, only removed along
// with their client.
type FollowUpRepository struct {
	db *gorm.DB
}

func NewFollowUpRepository(db *gorm.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

func (r *FollowUpRepository) Create(ctx context.Context, tx *gorm.DB, followUp *domain.FollowUp) error {
	return conn(r.db, tx).WithContext(ctx).Create(followUp).Error
}

// ListByClient returns the client's follow-ups, newest first
func (r *FollowUpRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit int) ([]domain.FollowUp, error) {
	var followUps []domain.FollowUp
	query := r.db.WithContext(ctx).
		Preload("Employee").
		Where("client_id = ?", clientID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&followUps).Error
	return followUps, err
}

func (r *FollowUpRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowUp{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

// DeleteByClient removes every follow-up of the client
func (r *FollowUpRepository) DeleteByClient(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (int64, error) {
	result := conn(r.db, tx).WithContext(ctx).Delete(&domain.FollowUp{}, "client_id = ?", clientID)
	return result.RowsAffected, result.Error
}
