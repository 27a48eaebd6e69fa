package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const timelineFollowUpLimit = 200

// ClientService manages client records. Client status is only written here for the
// pre-reservation states; everything past that belongs to LifecycleService.
type ClientService struct {
	repos         Repositories
	defaultRegion string
	logger        *zap.Logger
	db            *gorm.DB
}

func NewClientService(repos Repositories, defaultRegion string, logger *zap.Logger, db *gorm.DB) *ClientService {
	if defaultRegion == "" {
		defaultRegion = "EG"
	}
	return &ClientService{
		repos:         repos,
		defaultRegion: strings.ToUpper(defaultRegion),
		logger:        logger,
		db:            db,
	}
}

// NormalizePhone returns the number in E.164 form. Numbers without a country prefix are read
// in region. An empty input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", errors.New("not a valid phone number")
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

func (s *ClientService) Create(ctx context.Context, actor *auth.Actor, req *domain.CreateClientRequest) (*domain.ClientDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}

	phone, err := NormalizePhone(req.Phone, s.defaultRegion)
	if err != nil {
		return nil, NewValidationError("phone", "must be a valid phone number")
	}
	if err := s.ensureUniquePhone(ctx, phone, uuid.Nil); err != nil {
		return nil, err
	}

	assignedTo := &actor.EmployeeID
	if req.AssignedEmployeeID != nil && *req.AssignedEmployeeID != uuid.Nil {
		if err := s.ensureEmployee(ctx, *req.AssignedEmployeeID); err != nil {
			return nil, err
		}
		assignedTo = req.AssignedEmployeeID
	}

	client := &domain.Client{
		Name:               strings.TrimSpace(req.Name),
		Phone:              phone,
		Email:              strings.TrimSpace(req.Email),
		NationalID:         strings.TrimSpace(req.NationalID),
		Source:             strings.TrimSpace(req.Source),
		Notes:              req.Notes,
		Status:             domain.ClientStatusNew,
		AssignedEmployeeID: assignedTo,
	}
	if err := s.repos.Clients.Create(ctx, client); err != nil {
		return nil, &DependencyError{Op: "create client", Err: err}
	}

	s.logger.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("employee_id", actor.EmployeeID.String()))

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClientDTO, error) {
	client, err := s.repos.Clients.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateStoreError("get client", "client", id, err)
	}
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

func (s *ClientService) List(ctx context.Context, page, pageSize int, filters *repository.ClientFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if filters != nil && filters.Status != nil && !filters.Status.IsValid() {
		return nil, NewValidationError("status", "unknown client status")
	}

	page, pageSize = repository.NormalizePage(page, pageSize)
	clients, total, err := s.repos.Clients.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, &DependencyError{Op: "list clients", Err: err}
	}

	dtos := make([]domain.ClientDTO, len(clients))
	for i := range clients {
		dtos[i] = mapper.ToClientDTO(&clients[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update changes the client's details. A status change is only accepted between
// pre-reservation states.
func (s *ClientService) Update(ctx context.Context, actor *auth.Actor, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.ClientDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}

	client, err := s.repos.Clients.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateStoreError("update client", "client", id, err)
	}

	phone, err := NormalizePhone(req.Phone, s.defaultRegion)
	if err != nil {
		return nil, NewValidationError("phone", "must be a valid phone number")
	}
	if phone != client.Phone {
		if err := s.ensureUniquePhone(ctx, phone, client.ID); err != nil {
			return nil, err
		}
	}

	if req.AssignedEmployeeID != nil && *req.AssignedEmployeeID != uuid.Nil {
		if err := s.ensureEmployee(ctx, *req.AssignedEmployeeID); err != nil {
			return nil, err
		}
		client.AssignedEmployeeID = req.AssignedEmployeeID
	}

	var newStatus *domain.ClientStatus
	if req.Status != nil && *req.Status != client.Status {
		if !req.Status.IsPreReservation() {
			return nil, NewValidationError("status", "reserved and converted are set by reservations and sales")
		}
		if !client.Status.IsPreReservation() {
			return nil, NewValidationError("status", "status of a client with a reservation or sale is managed by the lifecycle")
		}
		newStatus = req.Status
	}

	client.Name = strings.TrimSpace(req.Name)
	client.Phone = phone
	client.Email = strings.TrimSpace(req.Email)
	client.NationalID = strings.TrimSpace(req.NationalID)
	client.Source = strings.TrimSpace(req.Source)
	client.Notes = req.Notes

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.Clients.Update(ctx, tx, client); err != nil {
			return err
		}
		if newStatus != nil {
			return s.repos.Clients.UpdateStatus(ctx, tx, client.ID, *newStatus)
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreError("update client", "client", id, err)
	}
	if newStatus != nil {
		client.Status = *newStatus
	}

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Delete removes a client and their follow-ups. Clients with reservations or sales are kept.
func (s *ClientService) Delete(ctx context.Context, actor *auth.Actor, id uuid.UUID) error {
	if actor == nil || !actor.IsAdmin() {
		return ErrPermissionDenied
	}

	if _, err := s.repos.Clients.GetByID(ctx, nil, id); err != nil {
		return translateStoreError("delete client", "client", id, err)
	}

	reservations, err := s.repos.Reservations.CountByClient(ctx, nil, id)
	if err != nil {
		return &DependencyError{Op: "delete client", Err: err}
	}
	sales, err := s.repos.Sales.CountByClient(ctx, id)
	if err != nil {
		return &DependencyError{Op: "delete client", Err: err}
	}
	if reservations > 0 || sales > 0 {
		return ErrHasDependents
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repos.FollowUps.DeleteByClient(ctx, tx, id); err != nil {
			return err
		}
		return s.repos.Clients.Delete(ctx, tx, id)
	})
	if err != nil {
		return translateStoreError("delete client", "client", id, err)
	}

	s.logger.Info("client deleted",
		zap.String("client_id", id.String()),
		zap.String("employee_id", actor.EmployeeID.String()))
	return nil
}

// Timeline loads the client with their follow-ups, reservations and sales. Reservations and
// sales outside the actor's projects are left out.
func (s *ClientService) Timeline(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.ClientTimelineDTO, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}

	client, err := s.repos.Clients.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateStoreError("client timeline", "client", id, err)
	}

	var (
		followUps    []domain.FollowUp
		reservations []domain.Reservation
		sales        []domain.Sale
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		followUps, err = s.repos.FollowUps.ListByClient(gctx, id, timelineFollowUpLimit)
		return err
	})
	g.Go(func() error {
		var err error
		reservations, err = s.repos.Reservations.ListByClient(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repos.Sales.ListByClient(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &DependencyError{Op: "client timeline", Err: err}
	}

	timeline := &domain.ClientTimelineDTO{
		Client:       mapper.ToClientDTO(client),
		FollowUps:    make([]domain.FollowUpDTO, 0, len(followUps)),
		Reservations: make([]domain.ReservationDTO, 0, len(reservations)),
		Sales:        make([]domain.SaleDTO, 0, len(sales)),
	}
	for i := range followUps {
		timeline.FollowUps = append(timeline.FollowUps, mapper.ToFollowUpDTO(&followUps[i]))
	}
	for i := range reservations {
		if actor.CanAccessProject(reservations[i].ProjectID) {
			timeline.Reservations = append(timeline.Reservations, mapper.ToReservationDTO(&reservations[i]))
		}
	}
	for i := range sales {
		if actor.CanAccessProject(sales[i].ProjectID) {
			timeline.Sales = append(timeline.Sales, mapper.ToSaleDTO(&sales[i]))
		}
	}
	return timeline, nil
}

func (s *ClientService) ensureUniquePhone(ctx context.Context, phone string, self uuid.UUID) error {
	if phone == "" {
		return nil
	}
	existing, err := s.repos.Clients.GetByPhone(ctx, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return &DependencyError{Op: "check client phone", Err: err}
	}
	if existing.ID != self {
		return ErrDuplicateClient
	}
	return nil
}

func (s *ClientService) ensureEmployee(ctx context.Context, id uuid.UUID) error {
	employee, err := s.repos.Employees.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewValidationError("assignedEmployeeId", "employee does not exist")
	}
	if err != nil {
		return &DependencyError{Op: "check employee", Err: err}
	}
	if !employee.IsActive {
		return NewValidationError("assignedEmployeeId", "employee is not active")
	}
	return nil
}
