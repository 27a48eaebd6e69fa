package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/storage"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newSaleService(t *testing.T, f *lifecycleFixture) (*service.SaleService, storage.Storage) {
	t.Helper()
	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return service.NewSaleService(service.NewRepositories(f.db), documents, nil, zap.NewNop()), documents
}

// sell runs a client through reservation and conversion on a fresh unit in project
func (f *lifecycleFixture) sell(t *testing.T, project *domain.Project) *domain.SaleDTO {
	t.Helper()
	client := testutil.CreateClient(t, f.db, domain.ClientStatusInterested)
	unit := testutil.CreateUnit(t, f.db, project.ID, domain.UnitStatusAvailable)
	return f.convert(t, f.reserve(t, client, unit))
}

func TestSaleService_ListAndGet(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	svc, _ := newSaleService(t, f)

	other := testutil.CreateProject(t, f.db)
	mine := f.sell(t, f.project)
	theirs := f.sell(t, other)

	seller := testutil.CreateEmployee(t, f.db, domain.EmployeeRoleSales)
	actor := testutil.SalesActor(seller, f.project.ID)

	t.Run("admin sees every project", func(t *testing.T) {
		page, err := svc.List(ctx, f.admin, 1, 20, nil, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("sales employee sees assigned projects only", func(t *testing.T) {
		page, err := svc.List(ctx, actor, 1, 20, nil, repository.DefaultSortConfig())
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		sales := page.Data.([]domain.SaleDTO)
		assert.Equal(t, mine.ID, sales[0].ID)
	})

	t.Run("get includes total price", func(t *testing.T) {
		sale, err := svc.GetByID(ctx, actor, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, "2850000", sale.TotalPrice.String())
		assert.False(t, sale.HasContract)
	})

	t.Run("get outside assigned projects", func(t *testing.T) {
		_, err := svc.GetByID(ctx, actor, theirs.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("get unknown sale", func(t *testing.T) {
		_, err := svc.GetByID(ctx, actor, uuid.New())
		var notFound *service.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestSaleService_Export(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	svc, _ := newSaleService(t, f)

	f.sell(t, f.project)
	f.sell(t, f.project)
	f.sell(t, testutil.CreateProject(t, f.db))

	data, filename, err := svc.Export(ctx, f.admin, &repository.SaleFilters{ProjectID: &f.project.ID})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Sale Date", rows[0][0])
	assert.Equal(t, "Total Price", rows[0][9])

	assert.Equal(t, f.project.Name, rows[1][2])
	assert.Equal(t, f.project.Name, rows[2][2])
	assert.Equal(t, "2850000", rows[1][9])
}

func TestSaleService_Contracts(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	svc, documents := newSaleService(t, f)
	sale := f.sell(t, f.project)

	t.Run("download before upload", func(t *testing.T) {
		_, err := svc.DownloadContract(ctx, f.admin, sale.ID)
		assert.ErrorIs(t, err, service.ErrContractNotFound)
	})

	t.Run("rejects unsupported files", func(t *testing.T) {
		_, err := svc.UploadContract(ctx, f.admin, sale.ID, "contract.exe", strings.NewReader("MZ"))
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "file")
	})

	t.Run("upload then download", func(t *testing.T) {
		updated, err := svc.UploadContract(ctx, f.admin, sale.ID, "Signed.PDF", strings.NewReader("%PDF-1.7 signed"))
		require.NoError(t, err)
		assert.True(t, updated.HasContract)

		doc, err := svc.DownloadContract(ctx, f.admin, sale.ID)
		require.NoError(t, err)
		defer doc.Body.Close()

		body, err := io.ReadAll(doc.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7 signed", string(body))
		assert.Equal(t, "application/pdf", doc.ContentType)
		assert.True(t, strings.HasSuffix(doc.Filename, ".pdf"))
	})

	t.Run("replacing with another type removes the old document", func(t *testing.T) {
		_, err := svc.UploadContract(ctx, f.admin, sale.ID, "scan.png", strings.NewReader("png bytes"))
		require.NoError(t, err)

		doc, err := svc.DownloadContract(ctx, f.admin, sale.ID)
		require.NoError(t, err)
		defer doc.Body.Close()
		assert.Equal(t, "image/png", doc.ContentType)

		_, err = documents.Get(ctx, storage.ContractKey(sale.ID.String(), "contract.pdf"))
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("storage failure leaves the sale unchanged", func(t *testing.T) {
		broken := service.NewSaleService(service.NewRepositories(f.db), failingStorage{err: errors.New("blob unavailable")}, nil, zap.NewNop())
		other := f.sell(t, f.project)

		_, err := broken.UploadContract(ctx, f.admin, other.ID, "contract.pdf", strings.NewReader("x"))
		var depErr *service.DependencyError
		require.True(t, errors.As(err, &depErr))

		reloaded, err := svc.GetByID(ctx, f.admin, other.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.HasContract)
	})
}
