package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionHandler_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.reserveAndSell(t)

	w := env.do(t, env.admin, http.MethodGet, "/transitions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all := decode[page[domain.TransitionLogDTO]](t, w)
	assert.Equal(t, int64(2), all.Total)
	for _, entry := range all.Data {
		assert.Equal(t, domain.TransitionStatusCompleted, entry.Status)
		assert.Equal(t, env.admin.EmployeeID, entry.ActorID)
		assert.NotEmpty(t, entry.Steps)
	}

	w = env.do(t, env.admin, http.MethodGet, "/transitions?operation=convert_to_sale", nil)
	require.Equal(t, http.StatusOK, w.Code)
	converted := decode[page[domain.TransitionLogDTO]](t, w)
	require.Equal(t, int64(1), converted.Total)
	assert.Equal(t, domain.OperationConvertToSale, converted.Data[0].Operation)

	w = env.do(t, env.admin, http.MethodGet, "/transitions?status=failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[page[domain.TransitionLogDTO]](t, w).Total)
}
