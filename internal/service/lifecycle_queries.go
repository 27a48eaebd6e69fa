package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/repository"
)

const maxFollowUpPage = 500

// ListFollowUps returns the client's follow-ups, newest first
func (s *LifecycleService) ListFollowUps(ctx context.Context, actor *auth.Actor, clientID uuid.UUID, limit int) ([]domain.FollowUpDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if _, err := s.loadClient(ctx, clientID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxFollowUpPage {
		limit = maxFollowUpPage
	}

	var followUps []domain.FollowUp
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		followUps, err = s.repos.FollowUps.ListByClient(ctx, clientID, limit)
		return err
	})
	if err != nil {
		return nil, &DependencyError{Op: "list follow-ups", Err: err}
	}

	dtos := make([]domain.FollowUpDTO, len(followUps))
	for i := range followUps {
		dtos[i] = mapper.ToFollowUpDTO(&followUps[i])
	}
	return dtos, nil
}

// ListReservations pages through reservations in the actor's projects
func (s *LifecycleService) ListReservations(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *repository.ReservationFilters) (*domain.PaginatedResponse, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if filters != nil && filters.Status != nil && !filters.Status.IsValid() {
		return nil, NewValidationError("status", "unknown reservation status")
	}

	page, pageSize = repository.NormalizePage(page, pageSize)
	var (
		reservations []domain.Reservation
		total        int64
	)
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		reservations, total, err = s.repos.Reservations.List(ctx, actor, page, pageSize, filters)
		return err
	})
	if err != nil {
		return nil, &DependencyError{Op: "list reservations", Err: err}
	}

	dtos := make([]domain.ReservationDTO, len(reservations))
	for i := range reservations {
		dtos[i] = mapper.ToReservationDTO(&reservations[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *LifecycleService) GetReservation(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.ReservationDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	reservation, err := s.loadReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessProject(reservation.ProjectID) {
		return nil, ErrPermissionDenied
	}
	dto := mapper.ToReservationDTO(reservation)
	return &dto, nil
}
