package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmployeeService(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := service.NewEmployeeService(service.NewRepositories(db), zap.NewNop())
	admin := testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin))

	created, err := svc.Create(ctx, admin, &domain.CreateEmployeeRequest{
		Name:  "Karim Fathy",
		Email: " Karim@Example.com ",
		Role:  domain.EmployeeRoleSales,
	})
	require.NoError(t, err)
	assert.Equal(t, "karim@example.com", created.Email)
	assert.True(t, created.IsActive)

	seller := testutil.SalesActor(&domain.Employee{
		BaseModel: domain.BaseModel{ID: created.ID},
		Name:      created.Name,
		Email:     created.Email,
	})

	t.Run("assign projects ignores duplicates", func(t *testing.T) {
		p1 := testutil.CreateProject(t, db)
		p2 := testutil.CreateProject(t, db)

		updated, err := svc.AssignProjects(ctx, admin, created.ID, []uuid.UUID{p1.ID, p2.ID, p1.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, updated.ProjectIDs)

		updated, err = svc.AssignProjects(ctx, admin, created.ID, []uuid.UUID{p2.ID})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p2.ID}, updated.ProjectIDs)
	})

	t.Run("assign unknown project", func(t *testing.T) {
		_, err := svc.AssignProjects(ctx, admin, created.ID, []uuid.UUID{uuid.New()})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "projectIds")
	})

	t.Run("me works for sales", func(t *testing.T) {
		me, err := svc.Me(ctx, seller)
		require.NoError(t, err)
		assert.Equal(t, created.ID, me.ID)
	})

	t.Run("management is admin only", func(t *testing.T) {
		_, err := svc.List(ctx, seller)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)

		_, err = svc.GetByID(ctx, seller, admin.EmployeeID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("admin cannot demote themselves", func(t *testing.T) {
		_, err := svc.Update(ctx, admin, admin.EmployeeID, &domain.UpdateEmployeeRequest{
			Name:     admin.Name,
			Role:     domain.EmployeeRoleSales,
			IsActive: true,
		})
		var verr *service.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("deactivate another employee", func(t *testing.T) {
		updated, err := svc.Update(ctx, admin, created.ID, &domain.UpdateEmployeeRequest{
			Name:     created.Name,
			Role:     domain.EmployeeRoleSales,
			IsActive: false,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
	})
}
