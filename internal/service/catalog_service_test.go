package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogService_Projects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := service.NewCatalogService(service.NewRepositories(db), zap.NewNop())
	admin := testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin))

	project, err := svc.CreateProject(ctx, admin, &domain.CreateProjectRequest{Name: " Palm Hills ", Location: "October"})
	require.NoError(t, err)
	assert.Equal(t, "Palm Hills", project.Name)
	assert.True(t, project.IsActive)

	other, err := svc.CreateProject(ctx, admin, &domain.CreateProjectRequest{Name: "Bay View"})
	require.NoError(t, err)

	seller := testutil.CreateEmployee(t, db, domain.EmployeeRoleSales)
	actor := testutil.SalesActor(seller, project.ID)

	t.Run("sales employee lists assigned projects", func(t *testing.T) {
		projects, err := svc.ListProjects(ctx, actor)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, project.ID, projects[0].ID)
	})

	t.Run("sales employee cannot open other projects", func(t *testing.T) {
		_, err := svc.GetProject(ctx, actor, other.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("writes are admin only", func(t *testing.T) {
		_, err := svc.CreateProject(ctx, actor, &domain.CreateProjectRequest{Name: "Nope"})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("project with units is kept", func(t *testing.T) {
		testutil.CreateUnit(t, db, project.ID, domain.UnitStatusAvailable)
		err := svc.DeleteProject(ctx, admin, project.ID)
		assert.ErrorIs(t, err, service.ErrHasDependents)
	})

	t.Run("empty project is deleted", func(t *testing.T) {
		require.NoError(t, svc.DeleteProject(ctx, admin, other.ID))
		_, err := svc.GetProject(ctx, admin, other.ID)
		var notFound *service.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestCatalogService_ModelsAndUnits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := service.NewCatalogService(service.NewRepositories(db), zap.NewNop())
	admin := testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin))
	project := testutil.CreateProject(t, db)
	foreign := testutil.CreateProject(t, db)

	model, err := svc.CreateModel(ctx, admin, project.ID, &domain.ProjectModelRequest{
		Name:      "Type B",
		Area:      165.5,
		Bedrooms:  3,
		Bathrooms: 2,
		BasePrice: "3100000",
	})
	require.NoError(t, err)

	t.Run("invalid base price", func(t *testing.T) {
		_, err := svc.CreateModel(ctx, admin, project.ID, &domain.ProjectModelRequest{Name: "X", BasePrice: "cheap"})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "basePrice")
	})

	t.Run("unit inherits price and area from the model", func(t *testing.T) {
		unit, err := svc.CreateUnit(ctx, admin, &domain.CreateUnitRequest{
			ProjectID: project.ID,
			ModelID:   &model.ID,
			Code:      "B-301",
			Floor:     3,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.UnitStatusAvailable, unit.Status)
		assert.Equal(t, "3100000", unit.Price.String())
		assert.Equal(t, 165.5, unit.Area)
		assert.Equal(t, "Type B", unit.ModelName)
	})

	t.Run("model from another project", func(t *testing.T) {
		_, err := svc.CreateUnit(ctx, admin, &domain.CreateUnitRequest{
			ProjectID: foreign.ID,
			ModelID:   &model.ID,
			Code:      "Z-1",
		})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "modelId")
	})

	t.Run("update never touches status", func(t *testing.T) {
		reserved := testutil.CreateUnit(t, db, project.ID, domain.UnitStatusReserved)
		updated, err := svc.UpdateUnit(ctx, admin, reserved.ID, &domain.UpdateUnitRequest{
			Code:  "A-999",
			Area:  130,
			Price: "2750000",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.UnitStatusReserved, updated.Status)
		assert.Equal(t, "A-999", updated.Code)
		assert.Equal(t, "2750000", updated.Price.String())
	})

	t.Run("model in use is kept", func(t *testing.T) {
		err := svc.DeleteModel(ctx, admin, project.ID, model.ID)
		assert.ErrorIs(t, err, service.ErrHasDependents)
	})

	t.Run("reserved unit is kept", func(t *testing.T) {
		unit := testutil.CreateUnit(t, db, project.ID, domain.UnitStatusReserved)
		client := testutil.CreateClient(t, db, domain.ClientStatusReserved)
		testutil.CreateReservation(t, db, client, unit, admin.EmployeeID, domain.ReservationStatusActive, unit.CreatedAt)

		err := svc.DeleteUnit(ctx, admin, unit.ID)
		assert.ErrorIs(t, err, service.ErrHasDependents)
	})

	t.Run("list filters by status and scope", func(t *testing.T) {
		testutil.CreateUnit(t, db, foreign.ID, domain.UnitStatusAvailable)
		seller := testutil.SalesActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleSales), project.ID)
		status := domain.UnitStatusAvailable

		page, err := svc.ListUnits(ctx, seller, 1, 50, &repository.UnitFilters{Status: &status})
		require.NoError(t, err)
		units := page.Data.([]domain.UnitDTO)
		require.NotEmpty(t, units)
		for _, unit := range units {
			assert.Equal(t, project.ID, unit.ProjectID)
			assert.Equal(t, domain.UnitStatusAvailable, unit.Status)
		}
	})

	t.Run("unknown status filter", func(t *testing.T) {
		status := domain.UnitStatus("demolished")
		_, err := svc.ListUnits(ctx, admin, 1, 20, &repository.UnitFilters{Status: &status})
		var verr *service.ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}
