package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/http/handler"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHandler_ReserveConvertDelete(t *testing.T) {
	env := newTestEnv(t)

	reservation, sale := env.reserveAndSell(t)
	assert.Equal(t, domain.ReservationStatusActive, reservation.Status)
	assert.Equal(t, "2850000", sale.TotalPrice.String())
	require.NotNil(t, sale.ReservationID)
	assert.Equal(t, reservation.ID, *sale.ReservationID)

	w := env.do(t, env.admin, http.MethodGet, "/reservations/"+reservation.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ReservationStatusConverted, decode[domain.ReservationDTO](t, w).Status)

	w = env.do(t, env.admin, http.MethodGet, "/sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[page[domain.SaleDTO]](t, w).Total)

	w = env.do(t, env.admin, http.MethodDelete, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get(handler.ConsistencyWarningHeader))

	w = env.do(t, env.admin, http.MethodGet, "/reservations/"+reservation.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ReservationStatusActive, decode[domain.ReservationDTO](t, w).Status)

	var unit domain.Unit
	require.NoError(t, env.db.First(&unit, "id = ?", sale.UnitID).Error)
	assert.Equal(t, domain.UnitStatusReserved, unit.Status)
}

func TestLifecycleHandler_SecondReservationConflicts(t *testing.T) {
	env := newTestEnv(t)
	unit := testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)

	first := testutil.CreateClient(t, env.db, domain.ClientStatusNew)
	w := env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": first.ID,
		"unitId":   unit.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	second := testutil.CreateClient(t, env.db, domain.ClientStatusNew)
	w = env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": second.ID,
		"unitId":   unit.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrorTypeConflict, apiErr.Type)
}

func TestLifecycleHandler_CreateReservationValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing fields", func(t *testing.T) {
		w := env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{})
		require.Equal(t, http.StatusBadRequest, w.Code)

		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "clientId")
		assert.Contains(t, apiErr.Errors, "unitId")
	})

	t.Run("malformed body", func(t *testing.T) {
		w := env.do(t, env.admin, http.MethodPost, "/reservations", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		unit := testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)
		w := env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{
			"clientId": "0b7d7cf5-7b38-4a2b-9d55-4c5c58a6e0a1",
			"unitId":   unit.ID,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLifecycleHandler_InvalidUUID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.admin, http.MethodPost, "/reservations/not-a-uuid/cancel", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, env.admin, http.MethodDelete, "/sales/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLifecycleHandler_RequiresActor(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, nil, http.MethodGet, "/reservations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.ErrorTypeUnauthorized, decode[domain.APIError](t, w).Type)
}

func TestLifecycleHandler_ProjectScope(t *testing.T) {
	env := newTestEnv(t)
	unit := testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)
	client := testutil.CreateClient(t, env.db, domain.ClientStatusNew)

	other := testutil.CreateProject(t, env.db)
	seller := testutil.CreateEmployee(t, env.db, domain.EmployeeRoleSales)
	actor := testutil.SalesActor(seller, other.ID)

	w := env.do(t, actor, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": client.ID,
		"unitId":   unit.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&domain.Reservation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLifecycleHandler_CancelReservation(t *testing.T) {
	env := newTestEnv(t)
	unit := testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)
	client := testutil.CreateClient(t, env.db, domain.ClientStatusVisited)

	w := env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": client.ID,
		"unitId":   unit.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservation := decode[domain.ReservationDTO](t, w)

	w = env.do(t, env.admin, http.MethodPost, "/reservations/"+reservation.ID.String()+"/cancel", map[string]interface{}{
		"reason": "client changed their mind",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[domain.ReservationDTO](t, w)
	assert.Equal(t, domain.ReservationStatusCancelled, cancelled.Status)
	assert.Equal(t, "client changed their mind", cancelled.CancelReason)

	// Cancelling twice is rejected
	w = env.do(t, env.admin, http.MethodPost, "/reservations/"+reservation.ID.String()+"/cancel", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, w.Code)

	var reloaded domain.Unit
	require.NoError(t, env.db.First(&reloaded, "id = ?", unit.ID).Error)
	assert.Equal(t, domain.UnitStatusAvailable, reloaded.Status)
}

func TestLifecycleHandler_DeleteSaleStorageFailureWarns(t *testing.T) {
	env := newTestEnv(t, withDocuments(failingStorage{}))

	_, sale := env.reserveAndSell(t)
	require.NoError(t, env.db.Model(&domain.Sale{}).
		Where("id = ?", sale.ID).
		Update("contract_key", "sales/"+sale.ID.String()+"/contract.pdf").Error)

	w := env.do(t, env.admin, http.MethodDelete, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(handler.ConsistencyWarningHeader))

	var count int64
	require.NoError(t, env.db.Model(&domain.Sale{}).Where("id = ?", sale.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLifecycleHandler_FollowUps(t *testing.T) {
	env := newTestEnv(t)
	client := testutil.CreateClient(t, env.db, domain.ClientStatusNew)
	path := "/clients/" + client.ID.String() + "/follow-ups"

	w := env.do(t, env.admin, http.MethodPost, path, map[string]interface{}{
		"type":     "visit",
		"notes":    "Walked the show apartment",
		"location": "Sales office",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.FollowUpTypeVisit, decode[domain.FollowUpDTO](t, w).Type)

	w = env.do(t, env.admin, http.MethodPost, path, map[string]interface{}{"type": "email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[domain.APIError](t, w).Errors, "type")

	w = env.do(t, env.admin, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.FollowUpDTO](t, w), 1)

	w = env.do(t, env.admin, http.MethodGet, "/clients/"+client.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ClientStatusVisited, decode[domain.ClientDTO](t, w).Status)
}

func TestLifecycleHandler_ConvertAcceptsNumericAmounts(t *testing.T) {
	env := newTestEnv(t)
	client := testutil.CreateClient(t, env.db, domain.ClientStatusInterested)
	unit := testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)

	w := env.do(t, env.admin, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": client.ID,
		"unitId":   unit.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservation := decode[domain.ReservationDTO](t, w)
	path := "/reservations/" + reservation.ID.String() + "/convert"

	t.Run("non numeric value is a field error", func(t *testing.T) {
		w := env.do(t, env.admin, http.MethodPost, path, map[string]interface{}{
			"clientId":       client.ID,
			"unitId":         unit.ID,
			"employeeId":     env.admin.EmployeeID,
			"priceBeforeTax": true,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "priceBeforeTax")
	})

	t.Run("negative number is a field error", func(t *testing.T) {
		w := env.do(t, env.admin, http.MethodPost, path, map[string]interface{}{
			"clientId":       client.ID,
			"unitId":         unit.ID,
			"employeeId":     env.admin.EmployeeID,
			"priceBeforeTax": -5,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[domain.APIError](t, w).Errors, "priceBeforeTax")
	})

	t.Run("number is accepted", func(t *testing.T) {
		w := env.do(t, env.admin, http.MethodPost, path, map[string]interface{}{
			"clientId":       client.ID,
			"unitId":         unit.ID,
			"employeeId":     env.admin.EmployeeID,
			"priceBeforeTax": 2500000,
			"taxRate":        14,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "2850000", decode[domain.SaleDTO](t, w).TotalPrice.String())
	})
}
