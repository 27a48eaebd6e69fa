package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"gorm.io/gorm"
)

// TransitionLogRepository persists the transition journal. Its writes never join a lifecycle
// transaction, so entries survive a rollback.
type TransitionLogRepository struct {
	db *gorm.DB
}

func NewTransitionLogRepository(db *gorm.DB) *TransitionLogRepository {
	return &TransitionLogRepository{db: db}
}

func (r *TransitionLogRepository) Create(ctx context.Context, entry *domain.TransitionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *TransitionLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TransitionLog, error) {
	var entry domain.TransitionLog
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetLatestRetryOf returns the newest entry that retried the given entry
func (r *TransitionLogRepository) GetLatestRetryOf(ctx context.Context, id uuid.UUID) (*domain.TransitionLog, error) {
	var entry domain.TransitionLog
	err := r.db.WithContext(ctx).
		Where("retry_of_id = ?", id).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Finish moves a pending entry to completed or failed
func (r *TransitionLogRepository) Finish(ctx context.Context, id uuid.UUID, status domain.TransitionStatus, entityID *uuid.UUID, steps, failedStep, errMsg string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       status,
		"steps":        steps,
		"failed_step":  failedStep,
		"error":        errMsg,
		"completed_at": now,
	}
	if entityID != nil {
		updates["entity_id"] = *entityID
	}

	result := r.db.WithContext(ctx).
		Model(&domain.TransitionLog{}).
		Where("id = ? AND status = ?", id, domain.TransitionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to finish transition log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrChanged(r.db.WithContext(ctx), &domain.TransitionLog{}, id)
	}
	return nil
}

// MarkRetried claims a failed entry for retry. Only one caller can claim a given entry.
func (r *TransitionLogRepository) MarkRetried(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&domain.TransitionLog{}).
		Where("id = ? AND status = ?", id, domain.TransitionStatusFailed).
		Update("status", domain.TransitionStatusRetried)
	if result.Error != nil {
		return fmt.Errorf("failed to mark transition log retried: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrChanged(db, &domain.TransitionLog{}, id)
	}
	return nil
}

// ReleaseRetry hands a claimed entry back to failed when its retry never produced a new entry
func (r *TransitionLogRepository) ReleaseRetry(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&domain.TransitionLog{}).
		Where("id = ? AND status = ?", id, domain.TransitionStatusRetried).
		Update("status", domain.TransitionStatusFailed)
	if result.Error != nil {
		return fmt.Errorf("failed to release transition log retry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return missingOrChanged(db, &domain.TransitionLog{}, id)
	}
	return nil
}

// FailStale marks pending entries created before cutoff as failed and returns how many changed
func (r *TransitionLogRepository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.TransitionLog{}).
		Where("status = ? AND created_at < ?", domain.TransitionStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":       domain.TransitionStatusFailed,
			"error":        "abandoned: no outcome recorded",
			"completed_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *TransitionLogRepository) List(ctx context.Context, page, pageSize int, status *domain.TransitionStatus, operation *domain.TransitionOperation) ([]domain.TransitionLog, int64, error) {
	var entries []domain.TransitionLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.TransitionLog{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if operation != nil {
		query = query.Where("operation = ?", *operation)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query.Order("created_at DESC"), page, pageSize).Find(&entries).Error
	return entries, total, err
}
