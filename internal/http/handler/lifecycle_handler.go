package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

// LifecycleHandler exposes the status-changing operations on clients, reservations and sales.
type LifecycleHandler struct {
	lifecycle *service.LifecycleService
	logger    *zap.Logger
}

func NewLifecycleHandler(lifecycle *service.LifecycleService, logger *zap.Logger) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle, logger: logger}
}

// RecordFollowUp godoc
// @Summary Record a follow-up
// @Description Logs a call, WhatsApp message or visit. Moves the client to interested (visited for visits) and stamps the client's active reservation.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body domain.RecordFollowUpRequest true "Follow-up"
// @Success 201 {object} domain.FollowUpDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/follow-ups [post]
func (h *LifecycleHandler) RecordFollowUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	clientID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.RecordFollowUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	followUp, err := h.lifecycle.RecordFollowUp(r.Context(), actor, clientID, &req)
	if err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "record follow-up")
		return
	}
	respondJSON(w, http.StatusCreated, followUp)
}

// ListFollowUps godoc
// @Summary List a client's follow-ups
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Client ID"
// @Param limit query int false "Maximum entries (max 500)"
// @Success 200 {array} domain.FollowUpDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/follow-ups [get]
func (h *LifecycleHandler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	clientID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	followUps, err := h.lifecycle.ListFollowUps(r.Context(), actor, clientID, limit)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list follow-ups")
		return
	}
	respondJSON(w, http.StatusOK, followUps)
}

// CreateReservation godoc
// @Summary Reserve a unit for a client
// @Description Creates an active reservation, marks the unit reserved and the client reserved, in one transaction.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param request body domain.CreateReservationRequest true "Reservation"
// @Success 201 {object} domain.ReservationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Unit not available or locked by another transition"
// @Security BearerAuth
// @Router /reservations [post]
func (h *LifecycleHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req domain.CreateReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.lifecycle.CreateReservation(r.Context(), actor, &req)
	if err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "create reservation")
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

// ListReservations godoc
// @Summary List reservations
// @Tags Lifecycle
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param clientId query string false "Filter by client"
// @Param unitId query string false "Filter by unit"
// @Param projectId query string false "Filter by project"
// @Param status query string false "Filter by status" Enums(active, converted, cancelled)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ReservationDTO}
// @Security BearerAuth
// @Router /reservations [get]
func (h *LifecycleHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filters := &repository.ReservationFilters{}
	if filters.ClientID, ok = queryUUID(w, r, "clientId"); !ok {
		return
	}
	if filters.UnitID, ok = queryUUID(w, r, "unitId"); !ok {
		return
	}
	if filters.ProjectID, ok = queryUUID(w, r, "projectId"); !ok {
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ReservationStatus(status)
		filters.Status = &s
	}

	page, pageSize := pageParams(r)
	result, err := h.lifecycle.ListReservations(r.Context(), actor, page, pageSize, filters)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list reservations")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetReservation godoc
// @Summary Get a reservation
// @Tags Lifecycle
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} domain.ReservationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /reservations/{id} [get]
func (h *LifecycleHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	reservation, err := h.lifecycle.GetReservation(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get reservation")
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// CancelReservation godoc
// @Summary Cancel an active reservation
// @Description Cancels the reservation and releases the unit unless another active reservation holds it.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body domain.CancelReservationRequest false "Cancellation reason"
// @Success 200 {object} domain.ReservationDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /reservations/{id}/cancel [post]
func (h *LifecycleHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CancelReservationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.lifecycle.CancelReservation(r.Context(), actor, id, req.Reason)
	if err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "cancel reservation")
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// DeleteReservation godoc
// @Summary Delete a reservation
// @Description Deletes a reservation that was not converted. An active reservation releases its unit.
// @Tags Lifecycle
// @Param id path string true "Reservation ID"
// @Success 204
// @Failure 409 {object} domain.APIError "Reservation was converted to a sale"
// @Security BearerAuth
// @Router /reservations/{id} [delete]
func (h *LifecycleHandler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteReservation(r.Context(), actor, id); err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "delete reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConvertToSale godoc
// @Summary Convert a reservation into a sale
// @Description Records the sale, marks the reservation converted, the unit sold and the client converted, in one transaction.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body domain.ConvertToSaleRequest true "Sale"
// @Success 201 {object} domain.SaleDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /reservations/{id}/convert [post]
func (h *LifecycleHandler) ConvertToSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ConvertToSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale, err := h.lifecycle.ConvertToSale(r.Context(), actor, id, &req)
	if err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "convert reservation")
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

// DeleteSale godoc
// @Summary Delete a sale
// @Description Reopens the converted reservation, returns the unit to reserved and the client to reserved, then deletes the sale.
// @Tags Sales
// @Param id path string true "Sale ID"
// @Success 204
// @Header 204 {string} X-Consistency-Warning "Set when the contract document could not be removed"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sales/{id} [delete]
func (h *LifecycleHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.lifecycle.DeleteSale(r.Context(), actor, id); err != nil && !flagConsistencyWarning(w, err) {
		respondServiceError(w, r, h.logger, err, "delete sale")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
