package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransitionService exposes the transition journal to admins
type TransitionService struct {
	repo       *repository.TransitionLogRepository
	lifecycle  *LifecycleService
	metrics    *metrics.Metrics
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewTransitionService(repo *repository.TransitionLogRepository, lifecycle *LifecycleService, m *metrics.Metrics, staleAfter time.Duration, logger *zap.Logger) *TransitionService {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &TransitionService{
		repo:       repo,
		lifecycle:  lifecycle,
		metrics:    m,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (s *TransitionService) List(ctx context.Context, actor *auth.Actor, page, pageSize int, status *domain.TransitionStatus, operation *domain.TransitionOperation) (*domain.PaginatedResponse, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if status != nil && !status.IsValid() {
		return nil, NewValidationError("status", "unknown transition status")
	}
	if operation != nil && !operation.IsValid() {
		return nil, NewValidationError("operation", "unknown transition operation")
	}

	page, pageSize = repository.NormalizePage(page, pageSize)
	entries, total, err := s.repo.List(ctx, page, pageSize, status, operation)
	if err != nil {
		return nil, &DependencyError{Op: "list transitions", Err: err}
	}

	dtos := make([]domain.TransitionLogDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToTransitionLogDTO(&entries[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *TransitionService) GetByID(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.TransitionLogDTO, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("get transition", "transition", id, err)
	}
	dto := mapper.ToTransitionLogDTO(entry)
	return &dto, nil
}

// Retry claims a failed journal entry and runs its operation again from the stored payload.
// The new run is journaled with a reference to the failed entry and returned. The retried
// operation's own error is returned unchanged.
func (s *TransitionService) Retry(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.TransitionLogDTO, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreError("retry transition", "transition", id, err)
	}
	if entry.Status != domain.TransitionStatusFailed {
		return nil, ErrTransitionNotRetryable
	}

	if err := s.repo.MarkRetried(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, ErrTransitionNotRetryable
		}
		return nil, translateStoreError("retry transition", "transition", id, err)
	}

	s.logger.Info("retrying transition",
		zap.String("transition_id", id.String()),
		zap.String("operation", string(entry.Operation)),
		zap.String("employee_id", actor.EmployeeID.String()))

	if err := s.replay(withRetryOf(ctx, id), actor, entry); err != nil && !IsConsistencyWarning(err) {
		s.releaseUnjournaledRetry(ctx, id)
		return nil, err
	}

	retried, err := s.repo.GetLatestRetryOf(ctx, id)
	if err != nil {
		return nil, translateStoreError("retry transition", "transition", id, err)
	}
	dto := mapper.ToTransitionLogDTO(retried)
	return &dto, nil
}

// releaseUnjournaledRetry returns the entry to failed when the replay was rejected before it
// wrote a journal entry of its own, so the entry stays retryable.
func (s *TransitionService) releaseUnjournaledRetry(ctx context.Context, id uuid.UUID) {
	_, err := s.repo.GetLatestRetryOf(ctx, id)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("failed to look up retry of transition",
			zap.String("transition_id", id.String()),
			zap.Error(err))
		return
	}
	if err := s.repo.ReleaseRetry(ctx, id); err != nil {
		s.logger.Warn("failed to release transition retry",
			zap.String("transition_id", id.String()),
			zap.Error(err))
	}
}

func (s *TransitionService) replay(ctx context.Context, actor *auth.Actor, entry *domain.TransitionLog) error {
	raw := []byte(entry.Payload)
	decode := func(v interface{}) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return &DependencyError{Op: "decode transition payload", Err: err}
		}
		return nil
	}

	switch entry.Operation {
	case domain.OperationRecordFollowUp:
		var p followUpPayload
		if err := decode(&p); err != nil {
			return err
		}
		_, err := s.lifecycle.RecordFollowUp(ctx, actor, p.ClientID, &p.Request)
		return err
	case domain.OperationCreateReservation:
		var req domain.CreateReservationRequest
		if err := decode(&req); err != nil {
			return err
		}
		_, err := s.lifecycle.CreateReservation(ctx, actor, &req)
		return err
	case domain.OperationCancelReservation:
		var p reservationPayload
		if err := decode(&p); err != nil {
			return err
		}
		_, err := s.lifecycle.CancelReservation(ctx, actor, p.ReservationID, p.Reason)
		return err
	case domain.OperationDeleteReservation:
		var p reservationPayload
		if err := decode(&p); err != nil {
			return err
		}
		return s.lifecycle.DeleteReservation(ctx, actor, p.ReservationID)
	case domain.OperationConvertToSale:
		var p convertPayload
		if err := decode(&p); err != nil {
			return err
		}
		_, err := s.lifecycle.ConvertToSale(ctx, actor, p.ReservationID, &p.Request)
		return err
	case domain.OperationDeleteSale:
		var p salePayload
		if err := decode(&p); err != nil {
			return err
		}
		return s.lifecycle.DeleteSale(ctx, actor, p.SaleID)
	default:
		return fmt.Errorf("unknown transition operation %q", entry.Operation)
	}
}

// SweepStale fails pending entries older than the stale threshold. Such entries belong to
// requests that died between writing the journal and recording the outcome.
func (s *TransitionService) SweepStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	n, err := s.repo.FailStale(ctx, cutoff)
	if err != nil {
		return 0, &DependencyError{Op: "sweep stale transitions", Err: err}
	}
	if n > 0 {
		s.metrics.AbandonedTransitions(n)
		s.logger.Warn("marked abandoned transitions as failed",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff))
	}
	return n, nil
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

