package handler_test

import (
	"net/http"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler_CreateProjectAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]interface{}{"name": "Palm Hills East", "location": "New Cairo"}

	seller := testutil.SalesActor(testutil.CreateEmployee(t, env.db, domain.EmployeeRoleSales), env.project.ID)
	w := env.do(t, seller, http.MethodPost, "/projects", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, env.admin, http.MethodPost, "/projects", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decode[domain.ProjectDTO](t, w)
	assert.Equal(t, "Palm Hills East", project.Name)
	assert.True(t, project.IsActive)

	w = env.do(t, env.admin, http.MethodPost, "/projects", map[string]interface{}{"location": "Nowhere"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[domain.APIError](t, w).Errors, "name")
}

func TestCatalogHandler_ListUnitsFilters(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusAvailable)
	testutil.CreateUnit(t, env.db, env.project.ID, domain.UnitStatusSold)

	w := env.do(t, env.admin, http.MethodGet, "/units?projectId="+env.project.ID.String()+"&status=available", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	units := decode[page[domain.UnitDTO]](t, w)
	require.Equal(t, int64(1), units.Total)
	assert.Equal(t, domain.UnitStatusAvailable, units.Data[0].Status)

	w = env.do(t, env.admin, http.MethodGet, "/units?projectId=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
