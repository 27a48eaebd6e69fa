package handler_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleHandler_ContractRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	_, sale := env.reserveAndSell(t)
	path := "/sales/" + sale.ID.String() + "/contract"

	w := env.do(t, env.admin, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	content := []byte("%PDF-1.4 signed contract")
	w = env.upload(t, env.admin, path, "Contract.PDF", content)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[domain.SaleDTO](t, w).HasContract)

	w = env.do(t, env.admin, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)
}

func TestSaleHandler_UploadRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	_, sale := env.reserveAndSell(t)

	w := env.upload(t, env.admin, "/sales/"+sale.ID.String()+"/contract", "contract.exe", []byte("MZ"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[domain.APIError](t, w).Errors, "file")
}

func TestSaleHandler_UploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	_, sale := env.reserveAndSell(t)

	w := env.do(t, env.admin, http.MethodPost, "/sales/"+sale.ID.String()+"/contract", map[string]string{})
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestSaleHandler_UploadStorageUnavailable(t *testing.T) {
	env := newTestEnv(t, withDocuments(failingStorage{}))
	_, sale := env.reserveAndSell(t)

	w := env.upload(t, env.admin, "/sales/"+sale.ID.String()+"/contract", "contract.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domain.ErrorTypeUnavailable, decode[domain.APIError](t, w).Type)
}

func TestSaleHandler_ProjectScope(t *testing.T) {
	env := newTestEnv(t)
	_, sale := env.reserveAndSell(t)

	outsider := testutil.SalesActor(testutil.CreateEmployee(t, env.db, domain.EmployeeRoleSales), testutil.CreateProject(t, env.db).ID)

	w := env.do(t, outsider, http.MethodGet, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, outsider, http.MethodGet, "/sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[page[domain.SaleDTO]](t, w).Total)

	insider := testutil.SalesActor(testutil.CreateEmployee(t, env.db, domain.EmployeeRoleSales), env.project.ID)
	w = env.do(t, insider, http.MethodGet, "/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaleHandler_Export(t *testing.T) {
	env := newTestEnv(t)
	env.reserveAndSell(t)

	w := env.do(t, env.admin, http.MethodGet, "/sales/export?projectId="+env.project.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), w.Body.Bytes()[:2])

	w = env.do(t, env.admin, http.MethodGet, "/sales/export?projectId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
