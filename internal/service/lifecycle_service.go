package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/locking"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	"github.com/straye-as/estate-sales-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LifecycleOptions tunes the transition rules
type LifecycleOptions struct {
	// EnforceUnitAvailability rejects reservations of units that are not available
	EnforceUnitAvailability bool
	ReadRetryDelay          time.Duration
}

// LifecycleOptionsFromConfig builds options from the lifecycle config section
func LifecycleOptionsFromConfig(cfg *config.LifecycleConfig) LifecycleOptions {
	return LifecycleOptions{
		EnforceUnitAvailability: cfg.EnforceUnitAvailability,
		ReadRetryDelay:          cfg.ReadRetryDelay(),
	}
}

// LifecycleService owns every status change of clients, units, reservations and sales. Each
// operation runs its writes in one transaction under a per-unit lock and is journaled.
type LifecycleService struct {
	repos     Repositories
	journal   *Journal
	locker    locking.UnitLocker
	documents storage.Storage
	metrics   *metrics.Metrics
	opts      LifecycleOptions
	logger    *zap.Logger
	db        *gorm.DB
}

func NewLifecycleService(
	repos Repositories,
	locker locking.UnitLocker,
	documents storage.Storage,
	m *metrics.Metrics,
	opts LifecycleOptions,
	logger *zap.Logger,
	db *gorm.DB,
) *LifecycleService {
	if locker == nil {
		locker = locking.NoopLocker{}
	}
	return &LifecycleService{
		repos:     repos,
		journal:   NewJournal(repos.Transitions, logger),
		locker:    locker,
		documents: documents,
		metrics:   m,
		opts:      opts,
		logger:    logger,
		db:        db,
	}
}

// Journal payloads, replayed by Retry

type followUpPayload struct {
	ClientID uuid.UUID                    `json:"clientId"`
	Request  domain.RecordFollowUpRequest `json:"request"`
}

type reservationPayload struct {
	ReservationID uuid.UUID `json:"reservationId"`
	Reason        string    `json:"reason,omitempty"`
}

type convertPayload struct {
	ReservationID uuid.UUID                   `json:"reservationId"`
	Request       domain.ConvertToSaleRequest `json:"request"`
}

type salePayload struct {
	SaleID uuid.UUID `json:"saleId"`
}

// ============================================================================
// Follow-ups
// ============================================================================

// RecordFollowUp logs contact with a client and moves the client to interested, or visited for
// a visit. The latest active reservation of the client is stamped with the follow-up.
func (s *LifecycleService) RecordFollowUp(ctx context.Context, actor *auth.Actor, clientID uuid.UUID, req *domain.RecordFollowUpRequest) (result *domain.FollowUpDTO, err error) {
	const op = domain.OperationRecordFollowUp
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return nil, ErrUnauthorized
	}
	if verr := validateFollowUp(clientID, req); verr.HasErrors() {
		return nil, verr
	}

	employeeID, employeeName := actor.EmployeeID, actor.Name
	if req.EmployeeID != nil && *req.EmployeeID != uuid.Nil && *req.EmployeeID != actor.EmployeeID {
		if !actor.IsAdmin() {
			return nil, ErrPermissionDenied
		}
		employee, err := s.loadEmployee(ctx, *req.EmployeeID)
		if err != nil {
			return nil, err
		}
		employeeID, employeeName = employee.ID, employee.Name
	}

	if _, err := s.loadClient(ctx, clientID); err != nil {
		return nil, err
	}

	followUp := &domain.FollowUp{
		ClientID:         clientID,
		EmployeeID:       employeeID,
		Type:             req.Type,
		Notes:            strings.TrimSpace(req.Notes),
		Location:         strings.TrimSpace(req.Location),
		NextFollowUpDate: req.NextFollowUpDate,
	}
	newStatus := req.Type.ResultingClientStatus()

	payload := followUpPayload{ClientID: clientID, Request: *req}
	payload.Request.EmployeeID = &employeeID
	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		if err := run.do("insert_follow_up", func() error {
			return s.repos.FollowUps.Create(ctx, tx, followUp)
		}); err != nil {
			return err
		}
		run.setEntity(followUp.ID)

		if err := run.do("update_client_status", func() error {
			return translateStoreError(string(op), "client", clientID, s.repos.Clients.UpdateStatus(ctx, tx, clientID, newStatus))
		}); err != nil {
			return err
		}

		return run.do("stamp_reservation", func() error {
			reservation, err := s.repos.Reservations.FindLatestActiveByClient(ctx, tx, clientID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return s.repos.Reservations.StampFollowUp(ctx, tx, reservation.ID, employeeID, followUp.CreatedAt, followUpDetails(followUp))
		})
	}, nil)
	if err != nil && !IsConsistencyWarning(err) {
		return nil, err
	}

	s.logger.Info("follow-up recorded",
		zap.String("client_id", clientID.String()),
		zap.String("type", string(req.Type)),
		zap.String("client_status", string(newStatus)),
		zap.String("employee_id", employeeID.String()))

	dto := mapper.ToFollowUpDTO(followUp)
	dto.EmployeeName = employeeName
	return &dto, err
}

func validateFollowUp(clientID uuid.UUID, req *domain.RecordFollowUpRequest) *ValidationError {
	verr := &ValidationError{}
	requireID(verr, "clientId", clientID)
	if req == nil {
		verr.Add("type", "is required")
		return verr
	}
	if !req.Type.IsValid() {
		verr.Add("type", "must be one of call, whatsapp, visit")
		return verr
	}
	if req.Type == domain.FollowUpTypeVisit && strings.TrimSpace(req.Location) == "" {
		verr.Add("location", "is required for a visit")
	}
	return verr
}

func followUpDetails(f *domain.FollowUp) string {
	details := string(f.Type)
	if f.Location != "" {
		details += " @ " + f.Location
	}
	if f.Notes != "" {
		details += ": " + f.Notes
	}
	return details
}

// ============================================================================
// Reservations
// ============================================================================

// CreateReservation reserves a unit for a client. The unit moves to reserved and the client to
// reserved in the same transaction as the insert.
func (s *LifecycleService) CreateReservation(ctx context.Context, actor *auth.Actor, req *domain.CreateReservationRequest) (result *domain.ReservationDTO, err error) {
	const op = domain.OperationCreateReservation
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return nil, ErrUnauthorized
	}
	if req == nil {
		return nil, NewValidationError("request", "is required")
	}

	verr := &ValidationError{}
	requireID(verr, "clientId", req.ClientID)
	requireID(verr, "unitId", req.UnitID)
	downPayment := parseAmount(verr, "downPayment", string(req.DownPayment), false)
	financing := parseAmount(verr, "financingAmount", string(req.FinancingAmount), false)
	if req.FinancingYears < 0 {
		verr.Add("financingYears", "must not be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	employeeID := actor.EmployeeID
	if req.EmployeeID != nil && *req.EmployeeID != uuid.Nil && *req.EmployeeID != actor.EmployeeID {
		if !actor.IsAdmin() {
			return nil, ErrPermissionDenied
		}
		if _, err := s.loadEmployee(ctx, *req.EmployeeID); err != nil {
			return nil, err
		}
		employeeID = *req.EmployeeID
	}

	unit, err := s.loadUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessProject(unit.ProjectID) {
		return nil, ErrPermissionDenied
	}
	client, err := s.loadClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if s.opts.EnforceUnitAvailability && unit.Status != domain.UnitStatusAvailable {
		return nil, fmt.Errorf("%w: unit %s is %s", ErrUnitNotAvailable, unit.Code, unit.Status)
	}

	release, err := s.locker.LockUnit(ctx, unit.ID)
	if err != nil {
		return nil, translateStoreError(string(op), "unit", unit.ID, err)
	}
	defer release()

	reservationDate := time.Now().UTC()
	if req.ReservationDate != nil {
		reservationDate = req.ReservationDate.UTC()
	}
	reservation := &domain.Reservation{
		ClientID:        client.ID,
		UnitID:          unit.ID,
		ProjectID:       unit.ProjectID,
		EmployeeID:      employeeID,
		Status:          domain.ReservationStatusActive,
		ReservationDate: reservationDate,
		DownPayment:     downPayment,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		Notes:           strings.TrimSpace(req.Notes),
		BankName:        strings.TrimSpace(req.BankName),
		FinancingAmount: financing,
		FinancingYears:  req.FinancingYears,
	}

	payload := *req
	payload.EmployeeID = &employeeID
	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		// Re-read under the lock; the status seen before locking may be stale.
		current, err := s.repos.Units.GetByID(ctx, tx, unit.ID)
		if err != nil {
			return translateStoreError(string(op), "unit", unit.ID, err)
		}
		if s.opts.EnforceUnitAvailability && current.Status != domain.UnitStatusAvailable {
			return fmt.Errorf("%w: unit %s is %s", ErrUnitNotAvailable, current.Code, current.Status)
		}

		if err := run.do("insert_reservation", func() error {
			return s.repos.Reservations.Create(ctx, tx, reservation)
		}); err != nil {
			return err
		}
		run.setEntity(reservation.ID)

		if err := run.do("reserve_unit", func() error {
			return translateStoreError(string(op), "unit", unit.ID,
				s.repos.Units.CompareAndSwapStatus(ctx, tx, unit.ID, current.Status, domain.UnitStatusReserved))
		}); err != nil {
			return err
		}

		return run.do("update_client_status", func() error {
			return translateStoreError(string(op), "client", client.ID,
				s.repos.Clients.UpdateStatus(ctx, tx, client.ID, domain.ClientStatusReserved))
		})
	}, nil)
	if err != nil && !IsConsistencyWarning(err) {
		return nil, err
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("unit_id", unit.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.String("employee_id", employeeID.String()))

	unit.Status = domain.UnitStatusReserved
	client.Status = domain.ClientStatusReserved
	reservation.Unit = unit
	reservation.Client = client
	dto := mapper.ToReservationDTO(reservation)
	return &dto, err
}

// CancelReservation ends an active reservation without a sale. The unit becomes available again
// unless another active reservation holds it, and the client falls back to new when nothing else
// is reserved or bought.
func (s *LifecycleService) CancelReservation(ctx context.Context, actor *auth.Actor, reservationID uuid.UUID, reason string) (result *domain.ReservationDTO, err error) {
	const op = domain.OperationCancelReservation
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return nil, ErrUnauthorized
	}
	if reservationID == uuid.Nil {
		return nil, NewValidationError("reservationId", "is required")
	}

	reservation, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessProject(reservation.ProjectID) {
		return nil, ErrPermissionDenied
	}
	if reservation.Status != domain.ReservationStatusActive {
		return nil, ErrReservationNotActive
	}

	release, err := s.locker.LockUnit(ctx, reservation.UnitID)
	if err != nil {
		return nil, translateStoreError(string(op), "unit", reservation.UnitID, err)
	}
	defer release()

	now := time.Now().UTC()
	reason = strings.TrimSpace(reason)

	payload := reservationPayload{ReservationID: reservationID, Reason: reason}
	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		run.setEntity(reservationID)

		if err := run.do("cancel_reservation", func() error {
			err := s.repos.Reservations.CompareAndSwapStatus(ctx, tx, reservationID,
				domain.ReservationStatusActive, domain.ReservationStatusCancelled,
				map[string]interface{}{"cancelled_at": now, "cancel_reason": reason})
			return translateStoreError(string(op), "reservation", reservationID, err)
		}); err != nil {
			return err
		}

		if err := run.do("release_unit", func() error {
			return s.releaseUnit(ctx, tx, op, reservation.UnitID)
		}); err != nil {
			return err
		}

		return run.do("update_client_status", func() error {
			open, err := s.repos.Reservations.CountByClient(ctx, tx, reservation.ClientID,
				domain.ReservationStatusActive, domain.ReservationStatusConverted)
			if err != nil {
				return err
			}
			if open > 0 {
				return nil
			}
			return translateStoreError(string(op), "client", reservation.ClientID,
				s.repos.Clients.UpdateStatus(ctx, tx, reservation.ClientID, domain.ClientStatusNew))
		})
	}, nil)
	if err != nil && !IsConsistencyWarning(err) {
		return nil, err
	}

	s.logger.Info("reservation cancelled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("unit_id", reservation.UnitID.String()),
		zap.String("employee_id", actor.EmployeeID.String()))

	reservation.Status = domain.ReservationStatusCancelled
	reservation.CancelledAt = &now
	reservation.CancelReason = reason
	dto := mapper.ToReservationDTO(reservation)
	return &dto, err
}

// DeleteReservation removes a reservation. An active reservation releases its unit; the client
// reverts to new only when no other reservation of any status remains for it. Converted
// reservations cannot be deleted while their sale exists.
func (s *LifecycleService) DeleteReservation(ctx context.Context, actor *auth.Actor, reservationID uuid.UUID) (err error) {
	const op = domain.OperationDeleteReservation
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return ErrUnauthorized
	}
	if reservationID == uuid.Nil {
		return NewValidationError("reservationId", "is required")
	}

	reservation, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if !actor.CanAccessProject(reservation.ProjectID) {
		return ErrPermissionDenied
	}
	if reservation.Status == domain.ReservationStatusConverted {
		return ErrReservationConverted
	}

	release, err := s.locker.LockUnit(ctx, reservation.UnitID)
	if err != nil {
		return translateStoreError(string(op), "unit", reservation.UnitID, err)
	}
	defer release()

	payload := reservationPayload{ReservationID: reservationID}
	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		run.setEntity(reservationID)

		current, err := s.repos.Reservations.GetByID(ctx, tx, reservationID)
		if err != nil {
			return translateStoreError(string(op), "reservation", reservationID, err)
		}
		if current.Status == domain.ReservationStatusConverted {
			return ErrReservationConverted
		}

		if err := run.do("delete_reservation", func() error {
			return translateStoreError(string(op), "reservation", reservationID,
				s.repos.Reservations.Delete(ctx, tx, reservationID))
		}); err != nil {
			return err
		}

		if current.Status == domain.ReservationStatusActive {
			if err := run.do("release_unit", func() error {
				return s.releaseUnit(ctx, tx, op, current.UnitID)
			}); err != nil {
				return err
			}
		}

		return run.do("update_client_status", func() error {
			remaining, err := s.repos.Reservations.CountByClient(ctx, tx, current.ClientID)
			if err != nil {
				return err
			}
			if remaining > 0 {
				return nil
			}
			return translateStoreError(string(op), "client", current.ClientID,
				s.repos.Clients.UpdateStatus(ctx, tx, current.ClientID, domain.ClientStatusNew))
		})
	}, nil)
	if err != nil && !IsConsistencyWarning(err) {
		return err
	}

	s.logger.Info("reservation deleted",
		zap.String("reservation_id", reservationID.String()),
		zap.String("unit_id", reservation.UnitID.String()),
		zap.String("employee_id", actor.EmployeeID.String()))
	return err
}

// releaseUnit moves a reserved unit back to available unless another active reservation still
// holds it. Must run after the releasing reservation has left the active status.
func (s *LifecycleService) releaseUnit(ctx context.Context, tx *gorm.DB, op domain.TransitionOperation, unitID uuid.UUID) error {
	holders, err := s.repos.Reservations.CountActiveByUnit(ctx, tx, unitID)
	if err != nil {
		return err
	}
	if holders > 0 {
		s.logger.Warn("unit still held by another active reservation",
			zap.String("unit_id", unitID.String()),
			zap.Int64("active_reservations", holders))
		return nil
	}

	unit, err := s.repos.Units.GetByID(ctx, tx, unitID)
	if err != nil {
		return translateStoreError(string(op), "unit", unitID, err)
	}
	if unit.Status == domain.UnitStatusAvailable {
		return nil
	}
	return translateStoreError(string(op), "unit", unitID,
		s.repos.Units.CompareAndSwapStatus(ctx, tx, unitID, domain.UnitStatusReserved, domain.UnitStatusAvailable))
}

// ============================================================================
// Sales
// ============================================================================

// ConvertToSale turns an active reservation into a sale. The sale insert and the moves of the
// reservation to converted, the unit to sold and the client to converted commit together.
func (s *LifecycleService) ConvertToSale(ctx context.Context, actor *auth.Actor, reservationID uuid.UUID, req *domain.ConvertToSaleRequest) (result *domain.SaleDTO, err error) {
	const op = domain.OperationConvertToSale
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return nil, ErrUnauthorized
	}
	if req == nil {
		req = &domain.ConvertToSaleRequest{}
	}

	verr := &ValidationError{}
	requireID(verr, "reservationId", reservationID)
	requireID(verr, "clientId", req.ClientID)
	requireID(verr, "unitId", req.UnitID)
	requireID(verr, "employeeId", req.EmployeeID)
	price := parseAmount(verr, "priceBeforeTax", string(req.PriceBeforeTax), true)
	taxRate := parseTaxRate(verr, "taxRate", string(req.TaxRate))
	downPayment := parseAmount(verr, "downPayment", string(req.DownPayment), false)
	if req.Installments < 0 {
		verr.Add("installments", "must not be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	reservation, err := s.loadReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.ClientID != req.ClientID || reservation.UnitID != req.UnitID {
		return nil, NewValidationError("reservationId", "does not belong to the given client and unit")
	}
	if !actor.CanAccessProject(reservation.ProjectID) {
		return nil, ErrPermissionDenied
	}
	if reservation.Status != domain.ReservationStatusActive {
		return nil, ErrReservationNotActive
	}

	unit, err := s.loadUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	client, err := s.loadClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	employee, err := s.loadEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.LockUnit(ctx, unit.ID)
	if err != nil {
		return nil, translateStoreError(string(op), "unit", unit.ID, err)
	}
	defer release()

	saleDate := time.Now().UTC()
	if req.SaleDate != nil {
		saleDate = req.SaleDate.UTC()
	}
	sale := &domain.Sale{
		ClientID:       client.ID,
		UnitID:         unit.ID,
		ProjectID:      unit.ProjectID,
		EmployeeID:     employee.ID,
		ReservationID:  &reservation.ID,
		ContractNumber: strings.TrimSpace(req.ContractNumber),
		ContractDate:   req.ContractDate,
		SaleDate:       saleDate,
		PriceBeforeTax: price,
		TaxRate:        taxRate,
		DownPayment:    downPayment,
		Installments:   req.Installments,
		PaymentPlan:    strings.TrimSpace(req.PaymentPlan),
		Notes:          strings.TrimSpace(req.Notes),
	}

	payload := convertPayload{ReservationID: reservationID, Request: *req}
	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		if err := run.do("insert_sale", func() error {
			return s.repos.Sales.Create(ctx, tx, sale)
		}); err != nil {
			return err
		}
		run.setEntity(sale.ID)

		if err := run.do("convert_reservation", func() error {
			return translateStoreError(string(op), "reservation", reservationID,
				s.repos.Reservations.CompareAndSwapStatus(ctx, tx, reservationID,
					domain.ReservationStatusActive, domain.ReservationStatusConverted, nil))
		}); err != nil {
			return err
		}

		if err := run.do("sell_unit", func() error {
			return translateStoreError(string(op), "unit", unit.ID,
				s.repos.Units.CompareAndSwapStatus(ctx, tx, unit.ID, domain.UnitStatusReserved, domain.UnitStatusSold))
		}); err != nil {
			return err
		}

		return run.do("update_client_status", func() error {
			return translateStoreError(string(op), "client", client.ID,
				s.repos.Clients.UpdateStatus(ctx, tx, client.ID, domain.ClientStatusConverted))
		})
	}, nil)
	if err != nil && !IsConsistencyWarning(err) {
		return nil, err
	}

	s.logger.Info("reservation converted to sale",
		zap.String("sale_id", sale.ID.String()),
		zap.String("reservation_id", reservationID.String()),
		zap.String("unit_id", unit.ID.String()),
		zap.String("price_before_tax", price.String()))

	unit.Status = domain.UnitStatusSold
	client.Status = domain.ClientStatusConverted
	sale.Unit = unit
	sale.Client = client
	sale.Employee = employee
	dto := mapper.ToSaleDTO(sale)
	return &dto, err
}

// DeleteSale reverses a sale: the converted reservation of the same client and unit becomes
// active again, the unit goes back to reserved and the client to reserved. The contract
// document is removed after commit; if that fails the sale stays deleted and a
// ConsistencyWarning is returned.
func (s *LifecycleService) DeleteSale(ctx context.Context, actor *auth.Actor, saleID uuid.UUID) (err error) {
	const op = domain.OperationDeleteSale
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if actor == nil {
		return ErrUnauthorized
	}
	if saleID == uuid.Nil {
		return NewValidationError("saleId", "is required")
	}

	sale, err := s.loadSale(ctx, saleID)
	if err != nil {
		return err
	}
	if !actor.CanAccessProject(sale.ProjectID) {
		return ErrPermissionDenied
	}

	release, err := s.locker.LockUnit(ctx, sale.UnitID)
	if err != nil {
		return translateStoreError(string(op), "unit", sale.UnitID, err)
	}
	defer release()

	var reopened *domain.Reservation

	payload := salePayload{SaleID: saleID}
	after := func(run *transitionRun) *ConsistencyWarning {
		if sale.ContractKey == "" || s.documents == nil {
			return nil
		}
		if err := s.documents.Delete(context.WithoutCancel(ctx), sale.ContractKey); err != nil {
			run.warn("delete_contract", err)
			return &ConsistencyWarning{
				Op:     string(op),
				Detail: fmt.Sprintf("sale deleted but contract document %s could not be removed", sale.ContractKey),
				Err:    err,
			}
		}
		run.steps = append(run.steps, "delete_contract")
		return nil
	}

	_, err = s.runTransition(ctx, op, actor, payload, func(tx *gorm.DB, run *transitionRun) error {
		run.setEntity(saleID)

		if err := run.do("reopen_reservation", func() error {
			candidates, err := s.repos.Reservations.ListByClientUnit(ctx, tx, sale.ClientID, sale.UnitID, domain.ReservationStatusConverted)
			if err != nil {
				return err
			}
			reopened = pickConvertedReservation(candidates, sale.ReservationID)
			if reopened == nil {
				s.logger.Warn("no converted reservation found for deleted sale",
					zap.String("sale_id", saleID.String()))
				return nil
			}
			if len(candidates) > 1 {
				s.logger.Warn("several converted reservations match deleted sale",
					zap.String("sale_id", saleID.String()),
					zap.Int("candidates", len(candidates)),
					zap.String("reopened_reservation_id", reopened.ID.String()))
			}
			return translateStoreError(string(op), "reservation", reopened.ID,
				s.repos.Reservations.CompareAndSwapStatus(ctx, tx, reopened.ID,
					domain.ReservationStatusConverted, domain.ReservationStatusActive, nil))
		}); err != nil {
			return err
		}

		if err := run.do("unsell_unit", func() error {
			return translateStoreError(string(op), "unit", sale.UnitID,
				s.repos.Units.CompareAndSwapStatus(ctx, tx, sale.UnitID, domain.UnitStatusSold, domain.UnitStatusReserved))
		}); err != nil {
			return err
		}

		if err := run.do("update_client_status", func() error {
			return translateStoreError(string(op), "client", sale.ClientID,
				s.repos.Clients.UpdateStatus(ctx, tx, sale.ClientID, domain.ClientStatusReserved))
		}); err != nil {
			return err
		}

		return run.do("delete_sale", func() error {
			return translateStoreError(string(op), "sale", saleID, s.repos.Sales.Delete(ctx, tx, saleID))
		})
	}, after)
	if err != nil && !IsConsistencyWarning(err) {
		return err
	}

	s.logger.Info("sale deleted",
		zap.String("sale_id", saleID.String()),
		zap.String("unit_id", sale.UnitID.String()),
		zap.Bool("reservation_reopened", reopened != nil),
		zap.String("employee_id", actor.EmployeeID.String()))
	return err
}

// pickConvertedReservation prefers the reservation the sale was converted from and otherwise the
// newest candidate. candidates are ordered newest first.
func pickConvertedReservation(candidates []domain.Reservation, linked *uuid.UUID) *domain.Reservation {
	if len(candidates) == 0 {
		return nil
	}
	if linked != nil {
		for i := range candidates {
			if candidates[i].ID == *linked {
				return &candidates[i]
			}
		}
	}
	return &candidates[0]
}

// ============================================================================
// Helpers
// ============================================================================

// runTransition journals op, runs fn in one transaction and then after, if given, once the
// transaction has committed. The returned error is a ConsistencyWarning when the transaction
// committed but a follow-through step failed.
func (s *LifecycleService) runTransition(
	ctx context.Context,
	op domain.TransitionOperation,
	actor *auth.Actor,
	payload interface{},
	fn func(tx *gorm.DB, run *transitionRun) error,
	after func(run *transitionRun) *ConsistencyWarning,
) (*transitionRun, error) {
	run, err := s.journal.Begin(ctx, op, actor, payload)
	if err != nil {
		return nil, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, run)
	})
	if txErr != nil {
		txErr = translateStoreError(string(op), string(op), uuid.Nil, txErr)
		_ = s.journal.Finish(ctx, run, txErr)
		return run, txErr
	}

	var warning *ConsistencyWarning
	if after != nil {
		warning = after(run)
	}

	if err := s.journal.Finish(ctx, run, nil); err != nil && warning == nil {
		warning = &ConsistencyWarning{
			Op:     string(op),
			Detail: "transition committed but its journal entry could not be completed",
			Err:    err,
		}
	}
	if warning != nil {
		s.logger.Warn("transition committed with consistency warning",
			zap.String("operation", string(op)),
			zap.String("transition_id", run.entry.ID.String()),
			zap.String("detail", warning.Detail),
			zap.Error(warning.Err))
		return run, warning
	}
	return run, nil
}

// observe records the outcome of a lifecycle operation
func (s *LifecycleService) observe(op domain.TransitionOperation, start time.Time, err error) {
	if IsConsistencyWarning(err) {
		s.metrics.ConsistencyWarning(string(op))
	}
	s.metrics.ObserveTransition(string(op), outcomeOf(err), time.Since(start))
}

func outcomeOf(err error) string {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
	)
	switch {
	case err == nil, IsConsistencyWarning(err):
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrConcurrentModification), errors.Is(err, locking.ErrUnitBusy):
		return metrics.OutcomeConflict
	case errors.As(err, &validationErr), errors.As(err, &notFoundErr),
		errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrUnitNotAvailable), errors.Is(err, ErrReservationNotActive),
		errors.Is(err, ErrReservationConverted):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

func (s *LifecycleService) loadClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var client *domain.Client
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		client, err = s.repos.Clients.GetByID(ctx, nil, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("load client", "client", id, err)
	}
	return client, nil
}

func (s *LifecycleService) loadUnit(ctx context.Context, id uuid.UUID) (*domain.Unit, error) {
	var unit *domain.Unit
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		unit, err = s.repos.Units.GetByID(ctx, nil, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("load unit", "unit", id, err)
	}
	return unit, nil
}

func (s *LifecycleService) loadReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var reservation *domain.Reservation
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		reservation, err = s.repos.Reservations.GetByID(ctx, nil, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("load reservation", "reservation", id, err)
	}
	return reservation, nil
}

func (s *LifecycleService) loadSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var sale *domain.Sale
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		sale, err = s.repos.Sales.GetByID(ctx, nil, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("load sale", "sale", id, err)
	}
	return sale, nil
}

func (s *LifecycleService) loadEmployee(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	var employee *domain.Employee
	err := readWithRetry(ctx, s.opts.ReadRetryDelay, func(ctx context.Context) error {
		var err error
		employee, err = s.repos.Employees.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, translateStoreError("load employee", "employee", id, err)
	}
	return employee, nil
}
